package dice

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// amountPattern matches "7", "d6", "3d4", "1d4+1" and "10d10-5".
var amountPattern = regexp.MustCompile(`^(?:(\d*)d(\d+))?([+-]?\d+)?$`)

// Expression is a parsed amount such as "1d4+1". A bare number is an
// Expression with no dice.
//
// Invariant: Count == 0 or Sides >= 2.
type Expression struct {
	Raw      string
	Count    int
	Sides    int
	Modifier int
}

// Parse reads an amount expression. Whitespace and case are ignored.
//
// Postcondition: Returns a valid Expression or an error naming raw.
func Parse(raw string) (Expression, error) {
	s := strings.ToLower(strings.Join(strings.Fields(raw), ""))
	if s == "" {
		return Expression{}, fmt.Errorf("dice: empty expression")
	}
	m := amountPattern.FindStringSubmatch(s)
	if m == nil {
		return Expression{}, fmt.Errorf("dice: malformed expression %q", raw)
	}
	e := Expression{Raw: raw}
	if strings.Contains(s, "d") {
		e.Count = 1
		if m[1] != "" {
			n, err := strconv.Atoi(m[1])
			if err != nil || n < 1 {
				return Expression{}, fmt.Errorf("dice: die count in %q must be >= 1", raw)
			}
			e.Count = n
		}
		sides, err := strconv.Atoi(m[2])
		if err != nil || sides < 2 {
			return Expression{}, fmt.Errorf("dice: die sides in %q must be >= 2", raw)
		}
		e.Sides = sides
	} else if m[3] == "" {
		return Expression{}, fmt.Errorf("dice: malformed expression %q", raw)
	}
	if m[3] != "" {
		mod, err := strconv.Atoi(m[3])
		if err != nil {
			return Expression{}, fmt.Errorf("dice: modifier in %q: %w", raw, err)
		}
		e.Modifier = mod
	}
	return e, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(raw string) Expression {
	e, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return e
}

// Min is the smallest total e can roll.
func (e Expression) Min() int { return e.Count + e.Modifier }

// Max is the largest total e can roll.
func (e Expression) Max() int { return e.Count*e.Sides + e.Modifier }

// Roll draws every die from src.
//
// Postcondition: len(result.Dice) == e.Count; Min() <= Total() <= Max().
func (e Expression) Roll(src Source) RollResult {
	res := RollResult{Expression: e.Raw, Modifier: e.Modifier}
	if e.Count > 0 {
		res.Dice = make([]int, e.Count)
		for i := range res.Dice {
			res.Dice[i] = src.Intn(e.Sides) + 1
		}
	}
	return res
}

// RollResult records one evaluation of an Expression.
type RollResult struct {
	Expression string
	Dice       []int
	Modifier   int
}

// Total is the dice sum plus the modifier.
func (r RollResult) Total() int {
	total := r.Modifier
	for _, d := range r.Dice {
		total += d
	}
	return total
}

// String renders the roll as "1d4+1: [3] +1 = 4".
func (r RollResult) String() string {
	return fmt.Sprintf("%s: %v %+d = %d", r.Expression, r.Dice, r.Modifier, r.Total())
}
