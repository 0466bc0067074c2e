package xtransport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterBackend_Validation(t *testing.T) {
	err := RegisterBackend("", func(cfg map[string]any) (Backend, error) { return nil, nil })
	assert.Error(t, err)

	err = RegisterBackend("valid", nil)
	assert.Error(t, err)
}

func TestNewBackend_Unknown(t *testing.T) {
	_, err := NewBackend("nope", nil)
	assert.EqualError(t, err, "unknown backend: nope")
}

func TestNewBackend_UsesRegisteredFactory(t *testing.T) {
	require.NoError(t, RegisterBackend("base-test", func(cfg map[string]any) (Backend, error) {
		return New()
	}))

	b, err := NewBackend("base-test", nil)
	require.NoError(t, err)
	assert.False(t, b.Listening())
}

func TestCodecRegistry_JSONDefault(t *testing.T) {
	c, err := NewCodec("json")
	require.NoError(t, err)
	assert.Equal(t, "json", c.Name())

	data, err := c.Marshal(map[string]int{"n": 1})
	require.NoError(t, err)

	var out map[string]int
	require.NoError(t, c.Unmarshal(data, &out))
	assert.Equal(t, 1, out["n"])

	_, err = NewCodec("missing")
	assert.Error(t, err)
}
