package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByteArray_MarshalJSON(t *testing.T) {
	t.Run("plain integer array", func(t *testing.T) {
		b, err := json.Marshal(ByteArray{0, 37, 255})
		require.NoError(t, err)
		assert.Equal(t, "[0,37,255]", string(b))
	})

	t.Run("nil encodes as empty array", func(t *testing.T) {
		b, err := json.Marshal(ByteArray(nil))
		require.NoError(t, err)
		assert.Equal(t, "[]", string(b))
	})

	t.Run("embedded in processed file", func(t *testing.T) {
		b, err := json.Marshal(ProcessedFile{ID: "x", Data: ByteArray("%P")})
		require.NoError(t, err)
		assert.Contains(t, string(b), `"data":[37,80]`)
	})
}

func TestByteArray_UnmarshalJSON(t *testing.T) {
	var b ByteArray
	require.NoError(t, json.Unmarshal([]byte("[1,2,3]"), &b))
	assert.Equal(t, ByteArray{1, 2, 3}, b)

	err := json.Unmarshal([]byte("[1,256]"), &b)
	assert.Error(t, err)

	err = json.Unmarshal([]byte(`"AQID"`), &b)
	assert.Error(t, err)
}
