package command

import (
	"strconv"
	"strings"
)

// Input is one tokenised line: a lowercased command word and its arguments
// in their original case.
type Input struct {
	Name string
	Args []string
}

// Parse tokenises line on whitespace.
//
// Postcondition: a blank line yields the zero Input.
func Parse(line string) Input {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Input{}
	}
	in := Input{Name: strings.ToLower(fields[0])}
	if len(fields) > 1 {
		in.Args = fields[1:]
	}
	return in
}

// Arg returns the i-th argument, or "" when there are fewer.
func (in Input) Arg(i int) string {
	if i < 0 || i >= len(in.Args) {
		return ""
	}
	return in.Args[i]
}

// Int reads the i-th argument as an integer.
func (in Input) Int(i int) (int, error) {
	return strconv.Atoi(in.Arg(i))
}

// Float reads the i-th argument as a float.
func (in Input) Float(i int) (float64, error) {
	return strconv.ParseFloat(in.Arg(i), 64)
}
