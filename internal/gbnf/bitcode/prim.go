// Package bitcode implements the artifact container's primitive layer: an
// LLVM-bitstream-flavored format of magic header, blocks, abbreviations,
// and variable-bit-rate integers. The format is byte-level: each 6-bit VBR
// group takes one byte, and only the finished stream is padded to a multiple
// of 4 bytes. Integer and string primitive encoding is delegated to
// github.com/dekarrin/rezi (a teacher dependency already used for
// server/dao/sqlite's blob encoding) instead of hand-rolled binary.Write
// calls; the block/record/abbreviation structure itself has no rezi
// equivalent and is bespoke.
package bitcode

import (
	"fmt"

	"github.com/dekarrin/rezi"
)

// Magic is the 4-byte header every artifact begins with.
var Magic = [4]byte{'G', 'B', 'N', 'F'}

// encodeUint32 rezi-encodes a little-endian uint32 primitive.
func encodeUint32(v uint32) ([]byte, error) {
	return rezi.Enc(int64(v))
}

func decodeUint32(data []byte) (uint32, int, error) {
	var v int64
	n, err := rezi.Dec(data, &v)
	if err != nil {
		return 0, 0, err
	}
	return uint32(v), n, nil
}

// encodeString rezi-encodes a length-prefixed UTF-8 string primitive.
func encodeString(s string) ([]byte, error) {
	return rezi.Enc(s)
}

func decodeString(data []byte) (string, int, error) {
	var s string
	n, err := rezi.Dec(data, &s)
	if err != nil {
		return "", 0, err
	}
	return s, n, nil
}

// EncodeVBR encodes v as a variable-bit-rate integer using chunkBits-wide groups,
// each group's top bit signaling "more groups follow", the format LLVM
// bitstream uses for IDs and small counts that don't need a fixed 32-bit
// slot.
func EncodeVBR(v uint64, chunkBits uint) []byte {
	if chunkBits < 2 || chunkBits > 32 {
		panic(fmt.Sprintf("invalid VBR chunk width %d", chunkBits))
	}
	mask := uint64(1)<<(chunkBits-1) - 1
	var out []byte
	for {
		chunk := v & mask
		v >>= (chunkBits - 1)
		if v != 0 {
			chunk |= mask + 1
		}
		out = append(out, byte(chunk))
		if v == 0 {
			break
		}
	}
	return out
}

// DecodeVBR reads a VBR-encoded integer from data, returning the value and
// the number of bytes consumed.
func DecodeVBR(data []byte, chunkBits uint) (uint64, int, error) {
	if chunkBits < 2 || chunkBits > 32 {
		return 0, 0, fmt.Errorf("invalid VBR chunk width %d", chunkBits)
	}
	mask := uint64(1)<<(chunkBits-1) - 1
	var v uint64
	var shift uint
	for i := 0; i < len(data); i++ {
		b := uint64(data[i])
		v |= (b & mask) << shift
		shift += chunkBits - 1
		if b&(mask+1) == 0 {
			return v, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("truncated VBR integer")
}
