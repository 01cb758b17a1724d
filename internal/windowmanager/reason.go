package windowmanager

// Reason explains why a reconciliation pass or refresh is running.
type Reason int

const (
	ReasonFirstRun Reason = iota
	ReasonDpiChange
	ReasonDisplayChange
	ReasonDeviceChange
	ReasonDwmChange
	ReasonReconciliation
)

func (r Reason) String() string {
	switch r {
	case ReasonFirstRun:
		return "first-run"
	case ReasonDpiChange:
		return "dpi-change"
	case ReasonDisplayChange:
		return "display-change"
	case ReasonDeviceChange:
		return "device-change"
	case ReasonDwmChange:
		return "dwm-change"
	case ReasonReconciliation:
		return "reconciliation"
	default:
		return "unknown"
	}
}

// ParseReason is the inverse of Reason.String.
func ParseReason(s string) (Reason, bool) {
	for r := ReasonFirstRun; r <= ReasonReconciliation; r++ {
		if r.String() == s {
			return r, true
		}
	}
	return 0, false
}

// EventArgs accompany refresh requests and change events.
type EventArgs struct {
	DisplaysChanged bool
	Reason          Reason
}
