package compressor

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressors(t *testing.T) {

	payload := bytes.Repeat([]byte(`{"read":true}activities:2024-5-9`), 200)

	for _, typ := range []Type{None, Snappy, LZ4, Zstd} {
		t.Run(typ.String(), func(t *testing.T) {
			c := New(typ)
			assert.Equal(t, typ, c.Type())

			compressed, err := c.Compress(payload)
			require.NoError(t, err)
			if typ != None {
				assert.Less(t, len(compressed), len(payload), "repetitive payload should shrink")
			}

			restored, err := c.Decompress(compressed)
			require.NoError(t, err)
			assert.Equal(t, payload, restored)
		})
	}

	t.Run("empty input survives", func(t *testing.T) {
		c := New(Snappy)
		compressed, err := c.Compress(nil)
		require.NoError(t, err)
		restored, err := c.Decompress(compressed)
		require.NoError(t, err)
		assert.Empty(t, restored)
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		_, err := New(Snappy).Decompress([]byte{0x05, 0xff})
		assert.Error(t, err)
		_, err = New(Zstd).Decompress([]byte("definitely not zstd"))
		assert.Error(t, err)
	})
}

func TestParseType(t *testing.T) {
	cases := map[string]Type{
		"":       Snappy,
		"snappy": Snappy,
		" LZ4 ":  LZ4,
		"zstd":   Zstd,
		"none":   None,
	}
	for in, want := range cases {
		got, err := ParseType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	got, err := ParseType("brotli")
	assert.Error(t, err)
	assert.Equal(t, Snappy, got)
}
