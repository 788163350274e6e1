// package opcode contains the operations recorded on a tape.
//
// The numeric value of each Op is part of the compact wire format and must never change.
package opcode

import "fmt"

// Op is a tape operation
type Op uint8

const (
	// CONST: () -> literal
	CONST Op = iota
	// NEG: (x) -> -x
	NEG
	// ADD: (x, y) -> x + y
	ADD
	// SUB: (x, y) -> x - y
	SUB
	// MUL: (x, y) -> x * y
	MUL
	// DIV: (x, y) -> x / y
	DIV
	// POW: (x, y) -> x ** y
	POW
	ABS
	EXP
	LOG
	SQRT
	// MAX: (x, y) -> the larger of x and y
	MAX
	// MIN: (x, y) -> the smaller of x and y
	MIN
	SIN
	COS
	TAN
	SINH
	COSH
	TANH

	// IFEQ guards a block which runs when x == y
	IFEQ
	// IFNE guards a block which runs when x != y
	IFNE
	// IFLT guards a block which runs when x < y
	IFLT
	// IFGE guards a block which runs when x >= y
	IFGE
	// IFGT guards a block which runs when x > y
	IFGT
	// IFLE guards a block which runs when x <= y
	IFLE

	numOps
)

var names = [numOps]string{
	CONST: "CONST",
	NEG:   "NEG",
	ADD:   "ADD",
	SUB:   "SUB",
	MUL:   "MUL",
	DIV:   "DIV",
	POW:   "POW",
	ABS:   "ABS",
	EXP:   "EXP",
	LOG:   "LOG",
	SQRT:  "SQRT",
	MAX:   "MAX",
	MIN:   "MIN",
	SIN:   "SIN",
	COS:   "COS",
	TAN:   "TAN",
	SINH:  "SINH",
	COSH:  "COSH",
	TANH:  "TANH",
	IFEQ:  "IFEQ",
	IFNE:  "IFNE",
	IFLT:  "IFLT",
	IFGE:  "IFGE",
	IFGT:  "IFGT",
	IFLE:  "IFLE",
}

// String returns the mnemonic used by the readable tape format.
func (o Op) String() string {
	if !o.Valid() {
		return fmt.Sprintf("Op(%d)", uint8(o))
	}
	return names[o]
}

// Valid returns true if o is one of the defined operations.
func (o Op) Valid() bool {
	return o < numOps
}

// Code returns the integer used by the compact tape format.
func (o Op) Code() int {
	return int(o)
}

// FromCode returns the Op for a compact format code.
func FromCode(code int) (Op, error) {
	if code < 0 || code >= int(numOps) {
		return 0, fmt.Errorf("opcode: unknown operation code %d", code)
	}
	return Op(code), nil
}

// Parse returns the Op named by a mnemonic.
func Parse(mnemonic string) (Op, error) {
	op, ok := byName[mnemonic]
	if !ok {
		return 0, fmt.Errorf("opcode: unknown operation %q", mnemonic)
	}
	return op, nil
}

var byName = func() map[string]Op {
	ret := make(map[string]Op, numOps)
	for i, name := range names {
		ret[name] = Op(i)
	}
	return ret
}()
