package bracket

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestCheck(t *testing.T) {
	for _, test := range []struct {
		input string
		valid bool
	}{
		{"(a(b)c)", true},
		{"()", true},
		{"no brackets at all", true},
		{"{[()()]}", true},
		{"\t(x)\t", true},
		{"（a）", true},
		{"(a(b", false},
		{")(", false},
		{"(]", false},
		{"([)]", false},
		{"((a)", false},
		{"（a)]", false},
	} {
		valid, err := Check(test.input)
		assert.NoError(t, err, test.input)
		assert.Equal(t, test.valid, valid, test.input)
	}
}

func TestCheckErrors(t *testing.T) {
	for _, test := range []struct {
		input string
		kind  Kind
		msg   string
	}{
		{"", Empty, "empty string"},
		{"(a\xffb)", Encoding, "invalid utf-8 sequence at position 2"},
		{"(\x00)", Control, "unexpected control character U+0000 at position 1"},
		{"ab\x1b[31m", Control, "unexpected control character U+001B at position 2"},
	} {
		valid, err := Check(test.input)
		assert.False(t, valid)
		var berr *Error
		if assert.True(t, errors.As(err, &berr), test.input) {
			assert.Equal(t, test.kind, berr.Kind)
			assert.Equal(t, test.msg, berr.Error())
		}
	}
}

func TestReplacementCharIsNotAnEncodingError(t *testing.T) {
	valid, err := Check("(�)")
	assert.NoError(t, err)
	assert.True(t, valid)
}
