package pubsub

// Topic names used across FocusNest services.
const (
	TopicUserEvents = "user.events"
)
