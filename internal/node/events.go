package node

import (
	"log/slog"
	"sort"
	"sync"

	"zcl-node/internal/zcl"
)

// Event types
const (
	EventAttributeChanged = "attribute_changed"
	EventCommandReceived  = "command_received"
	EventReportSent       = "report_sent"
	EventReportReceived   = "report_received"
	EventReportTimeout    = "report_timeout"
	EventDefaultResponse  = "default_response"
	EventResponse         = "response_received"
	EventFrameError       = "frame_error"
	EventSendError        = "send_error"
)

// Event is a node event.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// AttributeEvent is the payload of EventAttributeChanged.
type AttributeEvent struct {
	Endpoint     uint8     `json:"endpoint"`
	Cluster      uint16    `json:"cluster"`
	Attribute    uint16    `json:"attribute"`
	Manufacturer uint16    `json:"manufacturer,omitempty"`
	Name         string    `json:"name"`
	Value        zcl.Value `json:"value"`
	Origin       Origin    `json:"origin"`
}

// CommandEvent is the payload of EventCommandReceived.
type CommandEvent struct {
	Endpoint uint8    `json:"endpoint"`
	Cluster  uint16   `json:"cluster"`
	Command  uint8    `json:"command"`
	Name     string   `json:"name"`
	Source   uint16   `json:"source"`
	SourceEP uint8    `json:"source_ep"`
	Args     zcl.Args `json:"-"`
}

// ReportEvent is the payload of EventReportSent and EventReportReceived.
type ReportEvent struct {
	Endpoint uint8                 `json:"endpoint"`
	Cluster  uint16                `json:"cluster"`
	Peer     uint16                `json:"peer"`
	PeerEP   uint8                 `json:"peer_ep"`
	Records  []zcl.AttributeRecord `json:"records"`
}

// ResponseEvent is the payload of EventDefaultResponse and EventResponse.
type ResponseEvent struct {
	Endpoint uint8      `json:"endpoint"`
	Cluster  uint16     `json:"cluster"`
	Source   uint16     `json:"source"`
	Seq      uint8      `json:"seq"`
	Command  uint8      `json:"command"`
	Status   zcl.Status `json:"status"`
	Payload  []byte     `json:"payload,omitempty"`
}

// TimeoutEvent is the payload of EventReportTimeout.
type TimeoutEvent struct {
	Endpoint  uint8  `json:"endpoint"`
	Cluster   uint16 `json:"cluster"`
	Attribute uint16 `json:"attribute"`
	Timeout   uint16 `json:"timeout"`
}

// ErrorEvent is the payload of EventFrameError and EventSendError.
type ErrorEvent struct {
	Cluster uint16 `json:"cluster"`
	Peer    uint16 `json:"peer"`
	Error   string `json:"error"`
}

// EventHandler is a callback for events.
type EventHandler func(Event)

// EventBus provides pub/sub for node events.
type EventBus struct {
	mu          sync.RWMutex
	handlers    map[string]map[uint64]EventHandler
	allHandlers map[uint64]EventHandler
	nextID      uint64
	logger      *slog.Logger
}

// NewEventBus creates a new event bus.
func NewEventBus(logger *slog.Logger) *EventBus {
	return &EventBus{
		handlers:    make(map[string]map[uint64]EventHandler),
		allHandlers: make(map[uint64]EventHandler),
		logger:      logger,
	}
}

// On registers a handler for a specific event type.
// Returns an unsubscribe function.
func (eb *EventBus) On(eventType string, handler EventHandler) func() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	id := eb.nextID
	eb.nextID++
	if eb.handlers[eventType] == nil {
		eb.handlers[eventType] = make(map[uint64]EventHandler)
	}
	eb.handlers[eventType][id] = handler
	return func() {
		eb.mu.Lock()
		defer eb.mu.Unlock()
		delete(eb.handlers[eventType], id)
	}
}

// OnAll registers a handler that receives all events.
// Returns an unsubscribe function.
func (eb *EventBus) OnAll(handler EventHandler) func() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	id := eb.nextID
	eb.nextID++
	eb.allHandlers[id] = handler
	return func() {
		eb.mu.Lock()
		defer eb.mu.Unlock()
		delete(eb.allHandlers, id)
	}
}

// Emit sends an event to all matching handlers in subscription order.
// Handlers are called synchronously; a panicking handler is recovered.
func (eb *EventBus) Emit(event Event) {
	type entry struct {
		id uint64
		h  EventHandler
	}
	eb.mu.RLock()
	handlers := make([]entry, 0, len(eb.handlers[event.Type])+len(eb.allHandlers))
	for id, h := range eb.handlers[event.Type] {
		handlers = append(handlers, entry{id, h})
	}
	for id, h := range eb.allHandlers {
		handlers = append(handlers, entry{id, h})
	}
	eb.mu.RUnlock()
	sort.Slice(handlers, func(i, j int) bool { return handlers[i].id < handlers[j].id })

	for _, e := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					eb.logger.Error("event handler panic", "type", event.Type, "panic", r)
				}
			}()
			e.h(event)
		}()
	}
}
