package bitcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_EncodeDecodeUint32_roundTrips(t *testing.T) {
	assert := assert.New(t)

	enc, err := encodeUint32(424242)
	if !assert.NoError(err) {
		return
	}
	v, n, err := decodeUint32(enc)
	if !assert.NoError(err) {
		return
	}
	assert.Equal(uint32(424242), v)
	assert.Equal(len(enc), n)
}

func Test_EncodeDecodeString_roundTrips(t *testing.T) {
	assert := assert.New(t)

	enc, err := encodeString("hello gbnf")
	if !assert.NoError(err) {
		return
	}
	s, n, err := decodeString(enc)
	if !assert.NoError(err) {
		return
	}
	assert.Equal("hello gbnf", s)
	assert.Equal(len(enc), n)
}

func Test_VBR_roundTrips(t *testing.T) {
	testCases := []struct {
		name string
		v    uint64
	}{
		{"zero", 0},
		{"small", 5},
		{"fits one chunk", 31},
		{"needs two chunks", 1000},
		{"large", 1 << 40},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			enc := EncodeVBR(tc.v, 6)
			got, n, err := DecodeVBR(enc, 6)
			if !assert.NoError(err) {
				return
			}
			assert.Equal(tc.v, got)
			assert.Equal(len(enc), n)
		})
	}
}

func Test_VBR_invalidChunkWidth_panics(t *testing.T) {
	assert.Panics(t, func() { EncodeVBR(5, 1) })
}

func Test_DecodeVBR_truncated_isError(t *testing.T) {
	assert := assert.New(t)

	// a byte whose continuation bit is set but with nothing following
	_, _, err := DecodeVBR([]byte{0x20}, 6)
	assert.Error(err)
}
