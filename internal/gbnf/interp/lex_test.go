package interp

import (
	"testing"

	"github.com/dekarrin/gbnfc/internal/gbnf/codec"
	"github.com/stretchr/testify/assert"
)

// digitsDFA accepts one or more ASCII digits, longest match.
func digitsDFA() codec.IntFARecord {
	return codec.IntFARecord{
		StartState: 0,
		States: []codec.IntFAStateRecord{
			{
				Accepting: false,
				Transitions: []codec.IntFATransitionRecord{
					{Ranges: []codec.IntRangeRecord{{Lo: '0', Hi: '9'}}, ToState: 1},
				},
			},
			{
				Accepting: true,
				Finals:    []string{"NUM"},
				Transitions: []codec.IntFATransitionRecord{
					{Ranges: []codec.IntRangeRecord{{Lo: '0', Hi: '9'}}, ToState: 1},
				},
			},
		},
	}
}

func Test_LexNext_longestMatch(t *testing.T) {
	assert := assert.New(t)

	dfa := digitsDFA()
	name, length, matched, needMore := lexNext(dfa, []byte("123abc"), 0)
	assert.True(matched)
	assert.False(needMore)
	assert.Equal("NUM", name)
	assert.Equal(3, length)
}

func Test_LexNext_needsMoreAtBufferEnd(t *testing.T) {
	assert := assert.New(t)

	dfa := digitsDFA()
	_, _, matched, needMore := lexNext(dfa, []byte("123"), 0)
	assert.False(matched)
	assert.True(needMore)
}

func Test_LexNext_noMatchAtStart(t *testing.T) {
	assert := assert.New(t)

	dfa := digitsDFA()
	_, _, matched, needMore := lexNext(dfa, []byte("abc"), 0)
	assert.False(matched)
	assert.False(needMore)
}

func Test_LexNext_startsAtOffset(t *testing.T) {
	assert := assert.New(t)

	dfa := digitsDFA()
	name, length, matched, needMore := lexNext(dfa, []byte("xx42y"), 2)
	assert.True(matched)
	assert.False(needMore)
	assert.Equal("NUM", name)
	assert.Equal(2, length)
}
