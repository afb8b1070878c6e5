// Package shift implements the wrapped relative-index arithmetic used to move
// between resources, and the small shift expression language callers send as
// arguments.
package shift

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const logPrefix = "shift:shift"

// LengthToken is replaced by the length passed to Evaluate.
const LengthToken = "<length>"

// Wrap returns the index shift positions away from index in a ring of count
// elements. The result is always in [0, count), for shifts of any magnitude.
// A non-positive count yields 0.
func Wrap(index, shift, count int) int {
	if count <= 0 {
		return 0
	}
	index = ((index % count) + count) % count
	// Both terms lie in (-count, count), so the sum cannot overflow.
	return ((index+shift%count)%count + count) % count
}

// Step moves a list selection by delta with wrap-around.
func Step(selected, delta, count int) int {
	return Wrap(selected, delta, count)
}

// Evaluate computes a shift expression such as "1", "-2" or "<length> - 1".
// Tokens are separated by whitespace; "+" and "-" switch between adding and
// subtracting the following operands.
func Evaluate(expr string, length int) (int, error) {
	tokens := strings.Fields(expr)
	if len(tokens) == 0 {
		return 0, fmt.Errorf("%s - empty shift expression", logPrefix)
	}

	result := 0
	subtract := false
	for _, tok := range tokens {
		switch tok {
		case "+":
			subtract = false
			continue
		case "-":
			subtract = true
			continue
		}

		var operand int
		if tok == LengthToken {
			operand = length
		} else {
			v, err := strconv.Atoi(tok)
			if err != nil {
				return 0, fmt.Errorf("%s - invalid operand %q in %q", logPrefix, tok, expr)
			}
			operand = v
		}

		if subtract {
			if (operand > 0 && result < math.MinInt+operand) || (operand < 0 && result > math.MaxInt+operand) {
				return 0, fmt.Errorf("%s - %q overflows", logPrefix, expr)
			}
			result -= operand
		} else {
			if (operand > 0 && result > math.MaxInt-operand) || (operand < 0 && result < math.MinInt-operand) {
				return 0, fmt.Errorf("%s - %q overflows", logPrefix, expr)
			}
			result += operand
		}
	}
	return result, nil
}
