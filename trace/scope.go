package trace

import "tracetape.org/tracetape/opcode"

type exprKey struct {
	a  int
	op opcode.Op
	b  int
}

// blockScope holds the deduplication tables for one level of conditional nesting.
type blockScope struct {
	consts map[float64]int
	exprs  map[exprKey]int
}

func newBlockScope() blockScope {
	return blockScope{
		consts: make(map[float64]int),
		exprs:  make(map[exprKey]int),
	}
}

// scopeStack is a stack of blockScopes.
// The root scope at index 0 is unconditional, and is never popped.
type scopeStack struct {
	scopes []blockScope
}

func newScopeStack() scopeStack {
	return scopeStack{scopes: []blockScope{newBlockScope()}}
}

// depth is the number of open conditional scopes, not counting the root.
func (s *scopeStack) depth() int {
	return len(s.scopes) - 1
}

func (s *scopeStack) push() {
	s.scopes = append(s.scopes, newBlockScope())
}

func (s *scopeStack) pop() {
	if s.depth() == 0 {
		panic("pop of root scope")
	}
	s.scopes[len(s.scopes)-1] = blockScope{}
	s.scopes = s.scopes[:len(s.scopes)-1]
}

// reset empties the innermost scope.
func (s *scopeStack) reset() {
	if s.depth() == 0 {
		panic("reset of root scope")
	}
	s.scopes[len(s.scopes)-1] = newBlockScope()
}

// unwind pops every conditional scope.
func (s *scopeStack) unwind() {
	for s.depth() > 0 {
		s.pop()
	}
}

// lookupExpr searches from the innermost scope outwards.
func (s *scopeStack) lookupExpr(k exprKey) (int, bool) {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if id, ok := s.scopes[i].exprs[k]; ok {
			return id, true
		}
	}
	return 0, false
}

func (s *scopeStack) lookupConst(v float64) (int, bool) {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if id, ok := s.scopes[i].consts[v]; ok {
			return id, true
		}
	}
	return 0, false
}

func (s *scopeStack) putExpr(k exprKey, id int) {
	s.scopes[len(s.scopes)-1].exprs[k] = id
}

func (s *scopeStack) putConst(v float64, id int) {
	s.scopes[len(s.scopes)-1].consts[v] = id
}
