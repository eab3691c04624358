package bracket

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/width"
)

// Kind classifies why a line could not be checked at all.
type Kind int

const (
	Empty Kind = iota
	Encoding
	Control
)

// Error is returned by Check for input that is not a sequence of printable characters.
// It is not returned for unbalanced brackets, that is a regular negative result.
type Error struct {
	Kind Kind
	// byte offset of the offending character, before width folding
	Offset int
	Char   rune
}

func (e *Error) Error() string {
	switch e.Kind {
	case Empty:
		return "empty string"
	case Encoding:
		return fmt.Sprintf("invalid utf-8 sequence at position %d", e.Offset)
	default:
		return fmt.Sprintf("unexpected control character %U at position %d", e.Char, e.Offset)
	}
}

var pairs = map[rune]rune{
	')': '(',
	']': '[',
	'}': '{',
}

// Check reports whether the brackets (), [] and {} in line are balanced and properly nested.
// Any other printable character is ignored. Fullwidth brackets count as their ASCII counterparts.
func Check(line string) (bool, error) {
	if line == "" {
		return false, &Error{Kind: Empty}
	}
	for i, r := range line {
		if r == utf8.RuneError {
			if _, size := utf8.DecodeRuneInString(line[i:]); size <= 1 {
				return false, &Error{Kind: Encoding, Offset: i}
			}
		}
		if unicode.IsControl(r) && r != '\t' {
			return false, &Error{Kind: Control, Offset: i, Char: r}
		}
	}

	var stack []rune
	for _, r := range width.Fold.String(line) {
		switch r {
		case '(', '[', '{':
			stack = append(stack, r)
		case ')', ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != pairs[r] {
				return false, nil
			}
			stack = stack[:len(stack)-1]
		}
	}
	return len(stack) == 0, nil
}

// Checker adapts Check to the validator interface used by connection handlers.
type Checker struct{}

func (Checker) Check(line string) (bool, error) {
	return Check(line)
}
