package notify

// Notifier delivers real-time events to a recipient's logical channel
// ("driver:<id>" or "user:<id>"). Delivery is best-effort: the dispatcher's
// state transitions are authoritative and never roll back on a failed push.
type Notifier interface {
	Push(channel, event string, payload any) error
}

func DriverChannel(driverID string) string { return "driver:" + driverID }
func UserChannel(userID string) string     { return "user:" + userID }

// Event is the wire envelope for every websocket frame, inbound and
// outbound.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}
