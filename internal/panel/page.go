package panel

// Vendor command set of the ILI9881C-class controller on Motivo panels.
const (
	CmdSwitchPage byte = 0xFF
	vendorID0     byte = 0x98
	vendorID1     byte = 0x81

	// DefaultPage holds the standard MIPI DCS registers.
	DefaultPage byte = 0x00
)

// PageRouter issues register writes with the vendor page convention. It
// keeps no record of the current page: every write to a non-default page
// must be preceded by an explicit SelectPage, and repeated selects are
// always sent.
type PageRouter struct {
	T     Transport
	Retry RetryPolicy
}

// SelectPage switches the controller register bank, retrying per the policy.
func (r *PageRouter) SelectPage(page byte) error {
	return r.Retry.Write(CmdSwitchPage, func() error {
		return r.T.WriteDCS(CmdSwitchPage, []byte{vendorID0, vendorID1, page})
	})
}

// Write is a single, unretried register write.
func (r *PageRouter) Write(opcode byte, payload []byte) error {
	return r.T.WriteDCS(opcode, payload)
}
