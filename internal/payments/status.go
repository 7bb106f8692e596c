package payments

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusVerified  Status = "VERIFIED"
	StatusCaptured  Status = "CAPTURED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusVerified: true, StatusCaptured: true, StatusFailed: true, StatusCancelled: true},
	StatusVerified:  {StatusCaptured: true, StatusFailed: true, StatusCancelled: true},
	StatusCaptured:  {},
	StatusFailed:    {},
	StatusCancelled: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Terminal statuses admit no further transitions.
func (s Status) Terminal() bool {
	return len(validNext[s]) == 0
}

// EventSource records which path produced the last transition.
type EventSource string

const (
	SourceClient  EventSource = "CLIENT"
	SourceWebhook EventSource = "WEBHOOK"
)
