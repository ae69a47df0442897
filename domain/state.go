package domain

// ChannelState tracks which transport the realtime channel is running on.
type ChannelState int

const (
	Disconnected ChannelState = iota
	Connecting
	Connected
	FallingBack
)

func (s ChannelState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case FallingBack:
		return "falling_back"
	default:
		return "disconnected"
	}
}
