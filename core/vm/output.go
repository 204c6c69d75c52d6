package vm

// outputKind discriminates the output policy variants.
type outputKind int

const (
	outputReturnFixed outputKind = iota
	outputReturnFlexible
	outputInitContract
)

// OutputPolicy describes where interpreter RETURN data goes: into a caller
// provided buffer for message calls, or into pending contract code for a
// creation frame. It is chosen once at frame construction and consulted
// exactly once, when the interpreter signals RETURN.
type OutputPolicy struct {
	kind     outputKind
	fixed    []byte
	flexible *[]byte
	copyOut  *[]byte
}

// ReturnFixed places min(len(buf), len(data)) bytes of return data into buf.
func ReturnFixed(buf []byte, copyOut *[]byte) OutputPolicy {
	return OutputPolicy{kind: outputReturnFixed, fixed: buf, copyOut: copyOut}
}

// ReturnFlexible replaces *dst with the full return data.
func ReturnFlexible(dst *[]byte, copyOut *[]byte) OutputPolicy {
	return OutputPolicy{kind: outputReturnFlexible, flexible: dst, copyOut: copyOut}
}

// InitContract persists the return data as the new contract's code.
func InitContract(copyOut *[]byte) OutputPolicy {
	return OutputPolicy{kind: outputInitContract, copyOut: copyOut}
}

// isCreate reports whether the policy belongs to a creation frame.
func (p OutputPolicy) isCreate() bool { return p.kind == outputInitContract }

func (p OutputPolicy) handleCopy(data []byte) {
	if p.copyOut != nil {
		*p.copyOut = append([]byte(nil), data...)
	}
}
