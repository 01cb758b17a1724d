package platform

// EventType identifies a window-system notification delivered to bar windows.
type EventType int

const (
	EventDisplayChange EventType = iota + 1
	EventDPIChanged
	EventDeviceChange
	EventCompositorChange
	EventDock
	EventActivate
	EventPosChanging
	EventPosChanged
	// EventClientList reports that client windows or their states changed.
	EventClientList
)

func (t EventType) String() string {
	switch t {
	case EventDisplayChange:
		return "display-change"
	case EventDPIChanged:
		return "dpi-changed"
	case EventDeviceChange:
		return "device-change"
	case EventCompositorChange:
		return "compositor-change"
	case EventDock:
		return "dock"
	case EventActivate:
		return "activate"
	case EventPosChanging:
		return "pos-changing"
	case EventPosChanged:
		return "pos-changed"
	case EventClientList:
		return "client-list"
	default:
		return "unknown"
	}
}

// DeviceNodesChanged is the device-change code that triggers reconciliation.
const DeviceNodesChanged = 0x0007

// DockNotification is the sub-code of a dock message.
type DockNotification int

const (
	DockPosChanged DockNotification = iota + 1
	DockWindowArrange
	DockFullScreenApp
)

func (n DockNotification) String() string {
	switch n {
	case DockPosChanged:
		return "pos-changed"
	case DockWindowArrange:
		return "window-arrange"
	case DockFullScreenApp:
		return "fullscreen-app"
	default:
		return "unknown"
	}
}

// Event is a single notification. Window is zero for broadcasts.
type Event struct {
	Type   EventType
	Window WindowID

	// EventDock
	Message      uint32
	Notification DockNotification
	Before       bool

	// EventDPIChanged
	DPI int

	// EventDeviceChange
	Code int

	// EventPosChanging
	ZOrderChanging bool

	// EventPosChanged
	Bounds Rect
}
