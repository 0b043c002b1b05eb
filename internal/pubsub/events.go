package pubsub

// EventType identifies the kind of event being published.
type EventType string

const (
	// EventCatalogReloaded fires after the manager rebuilds the catalog.
	EventCatalogReloaded EventType = "catalog_reloaded"
	// EventPublished fires after a node type version is published.
	EventPublished EventType = "published"
	// EventDiscarded fires after an editable checkout is discarded.
	EventDiscarded EventType = "discarded"
)

// Event pairs an event type with its payload.
type Event[T any] struct {
	Type    EventType
	Payload T
}
