package opcode

// Branch returns the non-fallthrough target of the control instruction at pc.
// The VM uses the same arithmetic when it takes the branch:
//
//	If          pc + len + 1  (skip body)
//	IfElse      pc + len + 2  (skip then-branch and its Jump)
//	Jump        pc + len + 1  (skip else-branch)
//	RepeatBasic pc + len + 2  (skip body and end marker)
//	RepeatEnd   pc - len - 1  (back to header)
//
// ok is false for instructions that never branch, including RepeatInf.
func (p Program) Branch(pc int) (target int, ok bool) {
	in, found := p.At(pc)
	if !found {
		return 0, false
	}
	n, err := in.Length()
	switch in.Op {
	case If, Jump:
		if err != nil {
			return 0, false
		}
		return pc + n + 1, true
	case IfElse, RepeatBasic:
		if err != nil {
			return 0, false
		}
		return pc + n + 2, true
	case RepeatEnd:
		if err != nil {
			return 0, false
		}
		return pc - n - 1, true
	}
	return 0, false
}
