package model

import "fmt"

// Operation is the arithmetic applied by a Rule.
type Operation string

const (
	OpAdd Operation = "ADD"
	OpSub Operation = "SUB"
	OpMul Operation = "MUL"
	OpDiv Operation = "DIV"
)

// ValidOperations defines allowed rule operations.
var ValidOperations = map[Operation]bool{
	OpAdd: true,
	OpSub: true,
	OpMul: true,
	OpDiv: true,
}

// ParseOperation accepts the canonical codes plus the long names used in
// organizer-facing forms ("ADDITION", "DIVISION", ...).
func ParseOperation(s string) (Operation, error) {
	switch s {
	case "ADD", "ADDITION":
		return OpAdd, nil
	case "SUB", "SUBTRACTION":
		return OpSub, nil
	case "MUL", "MULTIPLICATION":
		return OpMul, nil
	case "DIV", "DIVISION":
		return OpDiv, nil
	}
	return "", fmt.Errorf("unknown operation %q", s)
}
