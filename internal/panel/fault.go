package panel

import "sync/atomic"

// faultLatch is shared by every Panel in the process. It is raised when an
// Enable or Disable gives up and cleared when Prepare or Enable starts, so a
// reader learns that some panel stopped responding, not which one. Per-panel
// isolation would move this onto Panel.
var faultLatch atomic.Bool

// FaultLatched reports whether the last Enable/Disable on any panel failed
// and no Prepare/Enable has started since.
func FaultLatched() bool {
	return faultLatch.Load()
}

func setFault(v bool) {
	faultLatch.Store(v)
}
