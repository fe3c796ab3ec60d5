package service

// State is a lifecycle stage of the pipeline. Values match the
// pipeline_state gauge.
type State int32

const (
	StateStarting State = iota + 1
	StateConnectingBroker
	StateConnectingStorage
	StateSubscribed
	StateRunning
	StateDraining
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateConnectingBroker:
		return "connecting_broker"
	case StateConnectingStorage:
		return "connecting_storage"
	case StateSubscribed:
		return "subscribed"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
