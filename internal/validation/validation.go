package validation

import (
	"errors"
	"unicode/utf8"
)

// ErrQueryEmpty is returned when the query has no characters.
var ErrQueryEmpty = errors.New("query is empty")

// ErrQueryTooLong is returned when the query length exceeds the maximum.
var ErrQueryTooLong = errors.New("query too long")

// ErrQueryInvalidUTF8 is returned when the query is not valid UTF-8.
var ErrQueryInvalidUTF8 = errors.New("query is not valid UTF-8")

// ErrQueryControlChars is returned when the query contains control characters.
var ErrQueryControlChars = errors.New("query contains control characters")

// ValidateQuery checks an autocomplete prefix. maxLen is in runes; 0 disables
// the bound. The input is returned unchanged: whitespace is significant to a
// prefix match, so nothing is trimmed.
func ValidateQuery(input string, maxLen int) (string, error) {
	if input == "" {
		return "", ErrQueryEmpty
	}
	if !utf8.ValidString(input) {
		return "", ErrQueryInvalidUTF8
	}
	if maxLen > 0 && utf8.RuneCountInString(input) > maxLen {
		return "", ErrQueryTooLong
	}
	for _, r := range input {
		if r < 0x20 || r == 0x7f {
			return "", ErrQueryControlChars
		}
	}
	return input, nil
}
