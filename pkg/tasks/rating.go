package tasks

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

var numberRE = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// ErrInvalidRating is wrapped when a rating answer is not a number in [1,5].
var ErrInvalidRating = errors.New("invalid rating")

// ParseRating extracts the first number from text, e.g. "4.2" or
// "Rating: 4/5", and checks it lies in [1,5].
func ParseRating(text string) (any, error) {
	m := numberRE.FindString(text)
	if m == "" {
		return nil, fmt.Errorf("%w: no number in %q", ErrInvalidRating, text)
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRating, err)
	}
	if v < 1 || v > 5 {
		return nil, fmt.Errorf("%w: %v outside [1,5]", ErrInvalidRating, v)
	}
	return v, nil
}
