package vm

// ConfidentialCtx is the session a confidential contract executes under.
// The key-management and sealing machinery behind it lives outside the
// execution layer; the boundary only needs to know whether a session is
// active and what data it authenticates.
type ConfidentialCtx interface {
	// Activated reports whether a confidential session is open.
	Activated() bool

	// AdditionalAuthenticatedData returns the data bound to the session's
	// authenticated encryption, or nil.
	AdditionalAuthenticatedData() []byte
}

// confidentialVM wraps every interpreter the factory hands out. It refuses
// to run a confidential contract without an active session and binds the
// session's authenticated data into the frame before execution.
type confidentialVM struct {
	ctx   ConfidentialCtx
	inner VM
}

func (c *confidentialVM) Exec(p *ActionParams, ext Ext) (GasLeft, error) {
	if p.Contract != nil && p.Contract.Header.IsConfidential() {
		if c.ctx == nil || !c.ctx.Activated() {
			return GasLeft{}, ErrConfidentiality
		}
		p.AAD = c.ctx.AdditionalAuthenticatedData()
	}
	return c.inner.Exec(p, ext)
}
