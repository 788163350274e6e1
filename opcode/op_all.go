package opcode

func All() (ret []Op) {
	for i := Op(0); i < numOps; i++ {
		ret = append(ret, i)
	}
	return ret
}

// AllBranches contains all the operations that guard a block
func AllBranches() []Op {
	return []Op{IFEQ, IFNE, IFLT, IFGE, IFGT, IFLE}
}

// AllArith contains all the operations computed by the interpreter
func AllArith() (ret []Op) {
	for _, op := range All() {
		if op != CONST && !op.IsBranch() {
			ret = append(ret, op)
		}
	}
	return ret
}
