package service

// Realtime event names pushed over the websocket hub
const (
	EventRequestCreated      = "pending_request.created"
	EventRequestResolved     = "pending_request.resolved"
	EventNotificationCreated = "notification.created"
	EventTaskUpdated         = "design_task.updated"
)

// EventPublisher is the subset of the websocket hub the services use.
type EventPublisher interface {
	Broadcast(event string, data interface{})
	SendToUser(userID, event string, data interface{})
}

type noopPublisher struct{}

func (noopPublisher) Broadcast(string, interface{})          {}
func (noopPublisher) SendToUser(string, string, interface{}) {}

func publisherOrNoop(p EventPublisher) EventPublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}
