package opcode

import "math"

// Info is information about Operations
type Info struct {
	// InDegree is the number of operands.
	InDegree int `json:"inDegree"`
	// Commutative operations are deduplicated regardless of operand order.
	Commutative bool `json:"commutative"`
}

func (o Op) Info() Info {
	if !o.Valid() {
		return Info{}
	}
	return infos[o]
}

// InDegree returns the number of operands an operation with this code takes
func (o Op) InDegree() int {
	return o.Info().InDegree
}

func (o Op) IsCommutative() bool {
	return o.Info().Commutative
}

// IsBranch returns true for the comparison operations which guard a block.
func (o Op) IsBranch() bool {
	return IFEQ <= o && o <= IFLE
}

// Inverse returns the comparison which is true exactly when o is false.
// Inverse panics if o is not a branch.
func (o Op) Inverse() Op {
	switch o {
	case IFEQ:
		return IFNE
	case IFNE:
		return IFEQ
	case IFLT:
		return IFGE
	case IFGE:
		return IFLT
	case IFGT:
		return IFLE
	case IFLE:
		return IFGT
	default:
		panic(o)
	}
}

// Compare evaluates a branch operation on concrete values.
// Compare panics if o is not a branch.
func (o Op) Compare(x, y float64) bool {
	switch o {
	case IFEQ:
		return x == y
	case IFNE:
		return x != y
	case IFLT:
		return x < y
	case IFGE:
		return x >= y
	case IFGT:
		return x > y
	case IFLE:
		return x <= y
	default:
		panic(o)
	}
}

// Apply evaluates an arithmetic operation on concrete values.
// y is ignored by unary operations.
// CONST and branch operations have no arithmetic meaning, Apply panics on them.
func (o Op) Apply(x, y float64) float64 {
	switch o {
	case NEG:
		return -x
	case ADD:
		return x + y
	case SUB:
		return x - y
	case MUL:
		return x * y
	case DIV:
		return x / y
	case POW:
		return math.Pow(x, y)
	case ABS:
		return math.Abs(x)
	case EXP:
		return math.Exp(x)
	case LOG:
		return math.Log(x)
	case SQRT:
		return math.Sqrt(x)
	case MAX:
		if x > y {
			return x
		}
		return y
	case MIN:
		if x < y {
			return x
		}
		return y
	case SIN:
		return math.Sin(x)
	case COS:
		return math.Cos(x)
	case TAN:
		return math.Tan(x)
	case SINH:
		return math.Sinh(x)
	case COSH:
		return math.Cosh(x)
	case TANH:
		return math.Tanh(x)
	default:
		panic(o)
	}
}

var infos = [numOps]Info{
	CONST: {InDegree: 0},

	NEG:  {InDegree: 1},
	ABS:  {InDegree: 1},
	EXP:  {InDegree: 1},
	LOG:  {InDegree: 1},
	SQRT: {InDegree: 1},
	SIN:  {InDegree: 1},
	COS:  {InDegree: 1},
	TAN:  {InDegree: 1},
	SINH: {InDegree: 1},
	COSH: {InDegree: 1},
	TANH: {InDegree: 1},

	ADD: {InDegree: 2, Commutative: true},
	SUB: {InDegree: 2},
	MUL: {InDegree: 2, Commutative: true},
	DIV: {InDegree: 2},
	POW: {InDegree: 2},
	MAX: {InDegree: 2, Commutative: true},
	MIN: {InDegree: 2, Commutative: true},

	IFEQ: {InDegree: 2},
	IFNE: {InDegree: 2},
	IFLT: {InDegree: 2},
	IFGE: {InDegree: 2},
	IFGT: {InDegree: 2},
	IFLE: {InDegree: 2},
}
