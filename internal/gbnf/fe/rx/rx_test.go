package rx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func runDFA(t *testing.T, dfa interface {
	Next(state string, v int32) string
}, start string, accepting func(string) bool, input string) bool {
	t.Helper()
	state := start
	for _, c := range input {
		state = dfa.Next(state, int32(c))
		if state == "" {
			return false
		}
	}
	return accepting(state)
}

func Test_Compile_literalConcat(t *testing.T) {
	assert := assert.New(t)

	dfa, err := Compile("abc", "ABC")
	if !assert.NoError(err) {
		return
	}

	accepting := func(s string) bool { return dfa.States[s] != nil && dfa.States[s].Accepting }
	assert.True(runDFA(t, dfa, dfa.Start, accepting, "abc"))
	assert.False(runDFA(t, dfa, dfa.Start, accepting, "ab"))
	assert.False(runDFA(t, dfa, dfa.Start, accepting, "abcd"))
}

func Test_Compile_alternation(t *testing.T) {
	assert := assert.New(t)

	dfa, err := Compile("cat|dog", "PET")
	if !assert.NoError(err) {
		return
	}
	accepting := func(s string) bool { return dfa.States[s] != nil && dfa.States[s].Accepting }

	assert.True(runDFA(t, dfa, dfa.Start, accepting, "cat"))
	assert.True(runDFA(t, dfa, dfa.Start, accepting, "dog"))
	assert.False(runDFA(t, dfa, dfa.Start, accepting, "cow"))
}

func Test_Compile_starAndPlus(t *testing.T) {
	assert := assert.New(t)

	dfa, err := Compile("a*b+", "AB")
	if !assert.NoError(err) {
		return
	}
	accepting := func(s string) bool { return dfa.States[s] != nil && dfa.States[s].Accepting }

	assert.True(runDFA(t, dfa, dfa.Start, accepting, "b"))
	assert.True(runDFA(t, dfa, dfa.Start, accepting, "aaab"))
	assert.True(runDFA(t, dfa, dfa.Start, accepting, "aaabbb"))
	assert.False(runDFA(t, dfa, dfa.Start, accepting, "a"))
	assert.False(runDFA(t, dfa, dfa.Start, accepting, ""))
}

func Test_Compile_optional(t *testing.T) {
	assert := assert.New(t)

	dfa, err := Compile("colou?r", "COLOR")
	if !assert.NoError(err) {
		return
	}
	accepting := func(s string) bool { return dfa.States[s] != nil && dfa.States[s].Accepting }

	assert.True(runDFA(t, dfa, dfa.Start, accepting, "color"))
	assert.True(runDFA(t, dfa, dfa.Start, accepting, "colour"))
	assert.False(runDFA(t, dfa, dfa.Start, accepting, "colouur"))
}

func Test_Compile_characterClass(t *testing.T) {
	assert := assert.New(t)

	dfa, err := Compile("[a-z]+", "WORD")
	if !assert.NoError(err) {
		return
	}
	accepting := func(s string) bool { return dfa.States[s] != nil && dfa.States[s].Accepting }

	assert.True(runDFA(t, dfa, dfa.Start, accepting, "hello"))
	assert.False(runDFA(t, dfa, dfa.Start, accepting, "Hello"))
}

func Test_Compile_negatedCharacterClass(t *testing.T) {
	assert := assert.New(t)

	dfa, err := Compile(`[^"]*`, "NOTQUOTE")
	if !assert.NoError(err) {
		return
	}
	accepting := func(s string) bool { return dfa.States[s] != nil && dfa.States[s].Accepting }

	assert.True(runDFA(t, dfa, dfa.Start, accepting, "hello world"))
	assert.False(runDFA(t, dfa, dfa.Start, accepting, `has"quote`))
}

func Test_Compile_unbalancedParen_isError(t *testing.T) {
	assert := assert.New(t)

	_, err := Compile("(abc", "X")
	assert.Error(err)
}
