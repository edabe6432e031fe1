package bitcode

import (
	"bytes"
	"fmt"
)

// Abbreviation codes reserved by the container format itself, mirroring
// LLVM bitstream's builtin abbrev IDs.
const (
	AbbrevEndBlock uint32 = iota
	AbbrevEnterSubblock
	AbbrevDefineAbbrev
	AbbrevUnabbrevRecord
	AbbrevStringRecord
	FirstAppAbbrev
)

// BlockInfoBlockID is the reserved block ID for the BLOCKINFO block, which
// records abbreviation definitions that apply to every instance of another
// block ID (spec §6.1).
const BlockInfoBlockID uint32 = 0

// AbbrevOp is one operand template of a DEFINE_ABBREV record: either a
// literal constant value or an encoded-operand slot.
type AbbrevOp struct {
	IsLiteral bool
	Literal   uint64
	// Encoding selects how a non-literal operand is packed: "vbr6", "fixed8",
	// "array", "string" (spec §6.1's abbreviation operand encodings).
	Encoding string
	Width    uint
}

// Writer serializes a bitcode stream: a magic header followed by a tree of
// blocks and records. Blocks carry no length field; the only alignment step
// is Bytes padding the finished stream with zero bytes to a multiple of 4.
type Writer struct {
	buf       bytes.Buffer
	blockInfo map[uint32][]AbbrevOp
}

func NewWriter() *Writer {
	w := &Writer{blockInfo: map[uint32][]AbbrevOp{}}
	w.buf.Write(Magic[:])
	return w
}

func (w *Writer) Bytes() []byte {
	out := append([]byte(nil), w.buf.Bytes()...)
	for len(out)%4 != 0 {
		out = append(out, 0)
	}
	return out
}

func (w *Writer) writeVBR(v uint64) {
	w.buf.Write(EncodeVBR(v, 6))
}

// EnterSubblock starts a new block of the given ID; abbrevWidth reserves
// room (informationally; this byte-level implementation doesn't need a bit
// width) for how many abbreviation IDs the block expects to define locally.
func (w *Writer) EnterSubblock(blockID uint32, abbrevWidth uint) {
	w.writeVBR(uint64(AbbrevEnterSubblock))
	w.writeVBR(uint64(blockID))
	w.writeVBR(uint64(abbrevWidth))
}

func (w *Writer) EndBlock() {
	w.writeVBR(uint64(AbbrevEndBlock))
}

// DefineAbbrev writes a local abbreviation template to the stream. It
// returns nothing.
func (w *Writer) DefineAbbrev(ops []AbbrevOp) {
	w.writeVBR(uint64(AbbrevDefineAbbrev))
	w.writeVBR(uint64(len(ops)))
	for _, op := range ops {
		if op.IsLiteral {
			w.writeVBR(1)
			w.writeVBR(op.Literal)
			continue
		}
		w.writeVBR(0)
		switch op.Encoding {
		case "vbr6":
			w.writeVBR(1)
		case "fixed8":
			w.writeVBR(2)
			w.writeVBR(uint64(op.Width))
		case "array":
			w.writeVBR(3)
		case "string":
			w.writeVBR(4)
		default:
			panic(fmt.Sprintf("unknown abbrev operand encoding %q", op.Encoding))
		}
	}
}

// UnabbrevRecord writes a record using the generic (unabbreviated) encoding:
// a record code followed by a count and each value, all as VBR6 integers.
func (w *Writer) UnabbrevRecord(code uint32, values []uint64) {
	w.writeVBR(uint64(AbbrevUnabbrevRecord))
	w.writeVBR(uint64(code))
	w.writeVBR(uint64(len(values)))
	for _, v := range values {
		w.writeVBR(v)
	}
}

// String writes a record holding a single string payload, via the rezi-
// backed length-prefixed string primitive.
func (w *Writer) String(code uint32, s string) error {
	enc, err := encodeString(s)
	if err != nil {
		return err
	}
	w.writeVBR(uint64(AbbrevStringRecord))
	w.writeVBR(uint64(code))
	w.writeVBR(uint64(len(enc)))
	w.buf.Write(enc)
	return nil
}

// Reader deserializes a stream written by Writer.
type Reader struct {
	data []byte
	pos  int
}

func NewReader(data []byte) (*Reader, error) {
	if len(data) < 4 || !bytes.Equal(data[:4], Magic[:]) {
		return nil, fmt.Errorf("bad magic header")
	}
	return &Reader{data: data, pos: 4}, nil
}

func (r *Reader) readVBR() (uint64, error) {
	v, n, err := DecodeVBR(r.data[r.pos:], 6)
	if err != nil {
		return 0, err
	}
	r.pos += n
	return v, nil
}

// Entry is the sum type returned by Reader.Next: one of the builtin abbrev
// IDs described above, or an application-defined abbreviation ID.
type Entry struct {
	Abbrev uint32
	// For EnterSubblock:
	BlockID     uint32
	AbbrevWidth uint64
	// For UnabbrevRecord:
	RecordCode uint32
	Values     []uint64
	// For DefineAbbrev:
	AbbrevOps []AbbrevOp
	// For StringRecord:
	StringValue string
}

func (r *Reader) AtEnd() bool { return r.pos >= len(r.data) }

// Pos returns the reader's current byte offset, for use with Seek to
// speculatively peek at the next entry and back out.
func (r *Reader) Pos() int { return r.pos }

// Seek resets the reader's byte offset, e.g. to undo a speculative Next call.
func (r *Reader) Seek(pos int) { r.pos = pos }

// Next reads the next entry from the stream (a block boundary marker, an
// abbrev definition marker, or a record).
func (r *Reader) Next() (Entry, error) {
	abbrev, err := r.readVBR()
	if err != nil {
		return Entry{}, err
	}
	switch uint32(abbrev) {
	case AbbrevEnterSubblock:
		blockID, err := r.readVBR()
		if err != nil {
			return Entry{}, err
		}
		width, err := r.readVBR()
		if err != nil {
			return Entry{}, err
		}
		return Entry{Abbrev: AbbrevEnterSubblock, BlockID: uint32(blockID), AbbrevWidth: width}, nil
	case AbbrevEndBlock:
		return Entry{Abbrev: AbbrevEndBlock}, nil
	case AbbrevUnabbrevRecord:
		code, err := r.readVBR()
		if err != nil {
			return Entry{}, err
		}
		count, err := r.readVBR()
		if err != nil {
			return Entry{}, err
		}
		values := make([]uint64, count)
		for i := range values {
			v, err := r.readVBR()
			if err != nil {
				return Entry{}, err
			}
			values[i] = v
		}
		return Entry{Abbrev: AbbrevUnabbrevRecord, RecordCode: uint32(code), Values: values}, nil
	case AbbrevDefineAbbrev:
		count, err := r.readVBR()
		if err != nil {
			return Entry{}, err
		}
		ops := make([]AbbrevOp, count)
		for i := range ops {
			isLit, err := r.readVBR()
			if err != nil {
				return Entry{}, err
			}
			if isLit == 1 {
				lit, err := r.readVBR()
				if err != nil {
					return Entry{}, err
				}
				ops[i] = AbbrevOp{IsLiteral: true, Literal: lit}
				continue
			}
			enc, err := r.readVBR()
			if err != nil {
				return Entry{}, err
			}
			switch enc {
			case 1:
				ops[i] = AbbrevOp{Encoding: "vbr6"}
			case 2:
				w, err := r.readVBR()
				if err != nil {
					return Entry{}, err
				}
				ops[i] = AbbrevOp{Encoding: "fixed8", Width: uint(w)}
			case 3:
				ops[i] = AbbrevOp{Encoding: "array"}
			case 4:
				ops[i] = AbbrevOp{Encoding: "string"}
			default:
				return Entry{}, fmt.Errorf("unknown abbrev operand encoding tag %d", enc)
			}
		}
		return Entry{Abbrev: AbbrevDefineAbbrev, AbbrevOps: ops}, nil
	case AbbrevStringRecord:
		code, err := r.readVBR()
		if err != nil {
			return Entry{}, err
		}
		byteLen, err := r.readVBR()
		if err != nil {
			return Entry{}, err
		}
		if r.pos+int(byteLen) > len(r.data) {
			return Entry{}, fmt.Errorf("truncated string record at offset %d", r.pos)
		}
		s, _, err := decodeString(r.data[r.pos:])
		if err != nil {
			return Entry{}, err
		}
		r.pos += int(byteLen)
		return Entry{Abbrev: AbbrevStringRecord, RecordCode: uint32(code), StringValue: s}, nil
	default:
		return Entry{}, fmt.Errorf("unsupported abbrev id %d at offset %d", abbrev, r.pos)
	}
}
