package bitcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Writer_NewWriter_startsWithMagic(t *testing.T) {
	assert := assert.New(t)

	w := NewWriter()
	out := w.Bytes()
	if !assert.True(len(out) >= 4) {
		return
	}
	assert.Equal(Magic[:], out[:4])
}

func Test_Writer_Bytes_isAlignedTo4(t *testing.T) {
	assert := assert.New(t)

	w := NewWriter()
	w.UnabbrevRecord(1, []uint64{1, 2, 3})
	out := w.Bytes()
	assert.Equal(0, len(out)%4)
}

func Test_Reader_rejectsBadMagic(t *testing.T) {
	assert := assert.New(t)

	_, err := NewReader([]byte{0, 0, 0, 0})
	assert.Error(err)
}

func Test_Writer_Reader_blockAndRecordRoundTrip(t *testing.T) {
	assert := assert.New(t)

	w := NewWriter()
	w.EnterSubblock(5, 3)
	w.UnabbrevRecord(7, []uint64{10, 20, 30})
	if err := w.String(8, "a terminal"); !assert.NoError(err) {
		return
	}
	w.EndBlock()

	r, err := NewReader(w.Bytes())
	if !assert.NoError(err) {
		return
	}

	e1, err := r.Next()
	if !assert.NoError(err) {
		return
	}
	assert.Equal(AbbrevEnterSubblock, e1.Abbrev)
	assert.Equal(uint32(5), e1.BlockID)
	assert.Equal(uint64(3), e1.AbbrevWidth)

	e2, err := r.Next()
	if !assert.NoError(err) {
		return
	}
	assert.Equal(AbbrevUnabbrevRecord, e2.Abbrev)
	assert.Equal(uint32(7), e2.RecordCode)
	assert.Equal([]uint64{10, 20, 30}, e2.Values)

	e3, err := r.Next()
	if !assert.NoError(err) {
		return
	}
	assert.Equal(AbbrevStringRecord, e3.Abbrev)
	assert.Equal(uint32(8), e3.RecordCode)
	assert.Equal("a terminal", e3.StringValue)

	e4, err := r.Next()
	if !assert.NoError(err) {
		return
	}
	assert.Equal(AbbrevEndBlock, e4.Abbrev)
}

func Test_Writer_DefineAbbrev_roundTrips(t *testing.T) {
	assert := assert.New(t)

	w := NewWriter()
	w.DefineAbbrev([]AbbrevOp{
		{IsLiteral: true, Literal: 42},
		{Encoding: "vbr6"},
		{Encoding: "fixed8", Width: 8},
		{Encoding: "array"},
		{Encoding: "string"},
	})

	r, err := NewReader(w.Bytes())
	if !assert.NoError(err) {
		return
	}

	e, err := r.Next()
	if !assert.NoError(err) {
		return
	}
	if !assert.Equal(AbbrevDefineAbbrev, e.Abbrev) {
		return
	}
	if !assert.Len(e.AbbrevOps, 5) {
		return
	}
	assert.True(e.AbbrevOps[0].IsLiteral)
	assert.Equal(uint64(42), e.AbbrevOps[0].Literal)
	assert.Equal("vbr6", e.AbbrevOps[1].Encoding)
	assert.Equal("fixed8", e.AbbrevOps[2].Encoding)
	assert.Equal(uint(8), e.AbbrevOps[2].Width)
	assert.Equal("array", e.AbbrevOps[3].Encoding)
	assert.Equal("string", e.AbbrevOps[4].Encoding)
}

func Test_Writer_DefineAbbrev_unknownEncoding_panics(t *testing.T) {
	w := NewWriter()
	assert.Panics(t, func() {
		w.DefineAbbrev([]AbbrevOp{{Encoding: "bogus"}})
	})
}

func Test_Reader_Seek_allowsSpeculativePeek(t *testing.T) {
	assert := assert.New(t)

	w := NewWriter()
	w.UnabbrevRecord(1, []uint64{99})
	w.EndBlock()

	r, err := NewReader(w.Bytes())
	if !assert.NoError(err) {
		return
	}

	start := r.Pos()
	_, err = r.Next()
	if !assert.NoError(err) {
		return
	}
	r.Seek(start)

	again, err := r.Next()
	if !assert.NoError(err) {
		return
	}
	assert.Equal(AbbrevUnabbrevRecord, again.Abbrev)
}
