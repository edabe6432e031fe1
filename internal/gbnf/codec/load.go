package codec

import (
	"fmt"
	"io"

	"github.com/dekarrin/gbnfc/internal/gbnf/bitcode"
	"github.com/dekarrin/gbnfc/internal/gbnf/gbnferr"
)

// Load reads a byte artifact produced by Emit back into a LoadedGrammar.
// Matching Emit, it walks the stream once in the exact block/record order
// Emit wrote it in (spec §4.8's "two-pass" loader simplifies, for this
// format, to a single structured walk: nothing here needs a second pass to
// discover a count it didn't already write up front).
func Load(r io.Reader) (*LoadedGrammar, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("codec: reading artifact: %w", err)
	}

	br, err := bitcode.NewReader(data)
	if err != nil {
		return nil, gbnferr.NewArtifactError(gbnferr.ArtifactBadMagic, 0, err.Error())
	}

	var strs []string

	expectBlock := func(id uint32) error {
		e, err := br.Next()
		if err != nil {
			return err
		}
		if e.Abbrev != bitcode.AbbrevEnterSubblock || e.BlockID != id {
			return gbnferr.NewArtifactError(gbnferr.ArtifactCorruptAbbrev, 0, fmt.Sprintf("expected block %d", id))
		}
		return nil
	}
	expectEnd := func() error {
		e, err := br.Next()
		if err != nil {
			return err
		}
		if e.Abbrev != bitcode.AbbrevEndBlock {
			return gbnferr.NewArtifactError(gbnferr.ArtifactCorruptAbbrev, 0, "expected end of block")
		}
		return nil
	}

	// STRINGS
	if err := expectBlock(StringsBlockID); err != nil {
		return nil, err
	}
	for {
		e, err := br.Next()
		if err != nil {
			return nil, err
		}
		if e.Abbrev == bitcode.AbbrevEndBlock {
			break
		}
		if e.Abbrev != bitcode.AbbrevStringRecord {
			return nil, gbnferr.NewArtifactError(gbnferr.ArtifactCorruptAbbrev, 0, "expected string record")
		}
		strs = append(strs, e.StringValue)
	}
	str := func(i uint64) string {
		if int(i) < 0 || int(i) >= len(strs) {
			return ""
		}
		return strs[i]
	}

	// INTFAS
	if err := expectBlock(IntFAsBlockID); err != nil {
		return nil, err
	}
	numIntFAs, err := readHeaderCount(br)
	if err != nil {
		return nil, err
	}
	intfas := make([]IntFARecord, 0, numIntFAs)
	for i := 0; i < numIntFAs; i++ {
		rec, err := readIntDFA(br)
		if err != nil {
			return nil, fmt.Errorf("codec: intfa %d: %w", i, err)
		}
		intfas = append(intfas, rec)
	}
	if err := expectEnd(); err != nil {
		return nil, err
	}

	var terminals []TerminalRecord
	for i, rec := range intfas {
		for _, st := range rec.States {
			for _, name := range st.Finals {
				terminals = append(terminals, TerminalRecord{Name: name, IntFAIdx: i})
			}
		}
	}

	// RTNS
	if err := expectBlock(RTNsBlockID); err != nil {
		return nil, err
	}
	numRules, err := readHeaderCount(br)
	if err != nil {
		return nil, err
	}
	rules := make([]RTNRecord, 0, numRules)
	for i := 0; i < numRules; i++ {
		rec, err := readRTN(br, str)
		if err != nil {
			return nil, fmt.Errorf("codec: rtn %d: %w", i, err)
		}
		rules = append(rules, rec)
	}
	if err := expectEnd(); err != nil {
		return nil, err
	}

	// GLAS
	if err := expectBlock(GLAsBlockID); err != nil {
		return nil, err
	}
	numGLAs, err := readHeaderCount(br)
	if err != nil {
		return nil, err
	}
	glas := make([]GLARecord, 0, numGLAs)
	for i := 0; i < numGLAs; i++ {
		rec, err := readGLA(br, str)
		if err != nil {
			return nil, fmt.Errorf("codec: gla %d: %w", i, err)
		}
		glas = append(glas, rec)
	}
	if err := expectEnd(); err != nil {
		return nil, err
	}

	lg := &LoadedGrammar{
		Terminals: terminals,
		IntFAs:    intfas,
		Rules:     rules,
		GLAs:      glas,
	}
	if len(strs) > 0 {
		lg.StartRule = strs[0]
	}
	if len(strs) > buildIDStringIndex {
		lg.BuildID = strs[buildIDStringIndex]
	}
	return lg, nil
}

func readHeaderCount(br *bitcode.Reader) (int, error) {
	e, err := br.Next()
	if err != nil {
		return 0, err
	}
	if e.Abbrev != bitcode.AbbrevUnabbrevRecord || len(e.Values) < 1 {
		return 0, gbnferr.NewArtifactError(gbnferr.ArtifactCorruptAbbrev, 0, "expected header record")
	}
	return int(e.Values[0]), nil
}

func readIntDFA(br *bitcode.Reader) (IntFARecord, error) {
	e, err := br.Next()
	if err != nil {
		return IntFARecord{}, err
	}
	if e.Abbrev != bitcode.AbbrevUnabbrevRecord || len(e.Values) < 2 {
		return IntFARecord{}, gbnferr.NewArtifactError(gbnferr.ArtifactCorruptAbbrev, 0, "expected intfa header")
	}
	rec := IntFARecord{StartState: int(e.Values[1])}
	numStates := int(e.Values[0])
	rec.States = make([]IntFAStateRecord, 0, numStates)

	for s := 0; s < numStates; s++ {
		se, err := br.Next()
		if err != nil {
			return IntFARecord{}, err
		}
		if se.Abbrev != bitcode.AbbrevUnabbrevRecord || len(se.Values) < 3 {
			return IntFARecord{}, gbnferr.NewArtifactError(gbnferr.ArtifactCorruptAbbrev, 0, "expected intfa state record")
		}
		state := IntFAStateRecord{Accepting: se.Values[1] == 1}
		numTrans := int(se.Values[2])
		for t := 0; t < numTrans; t++ {
			te, err := br.Next()
			if err != nil {
				return IntFARecord{}, err
			}
			if te.Abbrev != bitcode.AbbrevUnabbrevRecord || len(te.Values) < 3 {
				return IntFARecord{}, gbnferr.NewArtifactError(gbnferr.ArtifactCorruptAbbrev, 0, "expected intfa transition record")
			}
			v := te.Values
			trans := IntFATransitionRecord{
				ToState: int(v[0]),
				Negated: v[1] == 1,
			}
			numRanges := int(v[2])
			off := 3
			for i := 0; i < numRanges; i++ {
				if off+1 >= len(v) {
					return IntFARecord{}, gbnferr.NewArtifactError(gbnferr.ArtifactCorruptAbbrev, 0, "truncated intfa range list")
				}
				trans.Ranges = append(trans.Ranges, IntRangeRecord{Lo: int32(v[off]), Hi: int32(v[off+1])})
				off += 2
			}
			state.Transitions = append(state.Transitions, trans)
		}
		// zero or more final-name string records until something else.
		for {
			pos := br.Pos()
			fe, err := br.Next()
			if err != nil {
				return IntFARecord{}, err
			}
			if fe.Abbrev != bitcode.AbbrevStringRecord {
				br.Seek(pos)
				break
			}
			state.Finals = append(state.Finals, fe.StringValue)
		}
		rec.States = append(rec.States, state)
	}
	return rec, nil
}

func readRTN(br *bitcode.Reader, str func(uint64) string) (RTNRecord, error) {
	e, err := br.Next()
	if err != nil {
		return RTNRecord{}, err
	}
	if e.Abbrev != bitcode.AbbrevUnabbrevRecord || len(e.Values) < 3 {
		return RTNRecord{}, gbnferr.NewArtifactError(gbnferr.ArtifactCorruptAbbrev, 0, "expected rtn header")
	}
	rec := RTNRecord{
		Name:       str(e.Values[0]),
		StartState: int(e.Values[2]),
	}
	numStates := int(e.Values[1])
	rec.States = make([]RTNStateRecord, 0, numStates)

	for s := 0; s < numStates; s++ {
		se, err := br.Next()
		if err != nil {
			return RTNRecord{}, err
		}
		if se.Abbrev != bitcode.AbbrevUnabbrevRecord || len(se.Values) < 3 {
			return RTNRecord{}, gbnferr.NewArtifactError(gbnferr.ArtifactCorruptAbbrev, 0, "expected rtn state record")
		}
		state := RTNStateRecord{Final: se.Values[1] == 1}
		numTrans := int(se.Values[2])
		for t := 0; t < numTrans; t++ {
			te, err := br.Next()
			if err != nil {
				return RTNRecord{}, err
			}
			if te.Abbrev != bitcode.AbbrevUnabbrevRecord || len(te.Values) < 8 {
				return RTNRecord{}, gbnferr.NewArtifactError(gbnferr.ArtifactCorruptAbbrev, 0, "expected rtn transition record")
			}
			v := te.Values
			trans := RTNTransitionRecord{
				Kind:        int(v[0]),
				Name:        str(v[1]),
				ToState:     int(v[2]),
				SlotIndex:   int(v[3]),
				HasSlot:     v[4] == 1,
				SlotName:    str(v[5]),
				GLAIdx:      int(v[6]) - 1,
				IsSubparser: v[7] == 1,
			}
			state.Transitions = append(state.Transitions, trans)
		}
		rec.States = append(rec.States, state)
	}
	return rec, nil
}

func readGLA(br *bitcode.Reader, str func(uint64) string) (GLARecord, error) {
	e, err := br.Next()
	if err != nil {
		return GLARecord{}, err
	}
	if e.Abbrev != bitcode.AbbrevUnabbrevRecord || len(e.Values) < 2 {
		return GLARecord{}, gbnferr.NewArtifactError(gbnferr.ArtifactCorruptAbbrev, 0, "expected gla header")
	}
	rec := GLARecord{StartState: int(e.Values[1])}
	numStates := int(e.Values[0])
	rec.States = make([]GLAStateRecord, 0, numStates)

	for s := 0; s < numStates; s++ {
		se, err := br.Next()
		if err != nil {
			return GLARecord{}, err
		}
		if se.Abbrev != bitcode.AbbrevUnabbrevRecord || len(se.Values) < 4 {
			return GLARecord{}, gbnferr.NewArtifactError(gbnferr.ArtifactCorruptAbbrev, 0, "expected gla state record")
		}
		state := GLAStateRecord{
			Accepting:    se.Values[1] == 1,
			PredictedAlt: -1,
		}
		if state.Accepting {
			state.PredictedAlt = int(se.Values[2])
		}
		numTrans := int(se.Values[3])
		for t := 0; t < numTrans; t++ {
			te, err := br.Next()
			if err != nil {
				return GLARecord{}, err
			}
			if te.Abbrev != bitcode.AbbrevUnabbrevRecord || len(te.Values) < 3 {
				return GLARecord{}, gbnferr.NewArtifactError(gbnferr.ArtifactCorruptAbbrev, 0, "expected gla transition record")
			}
			trans := GLATransitionRecord{
				EOF:      te.Values[0] == 1,
				Terminal: str(te.Values[1]),
				ToState:  int(te.Values[2]),
			}
			state.Transitions = append(state.Transitions, trans)
		}
		rec.States = append(rec.States, state)
	}
	return rec, nil
}
