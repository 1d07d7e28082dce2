// Package events provides the event bus connecting Drivelink's state-owning
// layers to whatever frontend renders them. The core publishes; presentation
// subscribes. Publishing never blocks: full subscriber buffers drop events.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/drivelink/drivelink/internal/constants"
)

// EventType defines the types of events that can be emitted
type EventType string

const (
	// EventSessionChanged - session state machine transitioned
	EventSessionChanged EventType = "session_changed"

	// EventFileListChanged - the owned file collection was replaced or respliced
	EventFileListChanged EventType = "file_list_changed"

	// EventNotice - non-blocking user notification (toast equivalent)
	EventNotice EventType = "notice"

	// Transfer lifecycle events
	EventTransferStarted   EventType = "transfer_started"
	EventTransferProgress  EventType = "transfer_progress"
	EventTransferCompleted EventType = "transfer_completed"
	EventTransferFailed    EventType = "transfer_failed"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	EventType EventType
	Time      time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }

// NoticeLevel classifies a user notification.
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeSuccess
	NoticeError
)

func (l NoticeLevel) String() string {
	switch l {
	case NoticeSuccess:
		return "SUCCESS"
	case NoticeError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// NoticeEvent is a non-blocking user-facing notification.
type NoticeEvent struct {
	BaseEvent
	Level   NoticeLevel
	Message string
}

// TransferEvent reports per-file upload/download lifecycle.
type TransferEvent struct {
	BaseEvent
	TaskID   string
	TaskType string // "upload" or "download"
	Name     string
	Size     int64
	Progress float64 // 0.0 to 1.0
	Error    error
}

// EventBus manages event subscriptions and publishing
type EventBus struct {
	subscribers   map[EventType][]chan Event
	all           []chan Event
	mu            sync.RWMutex
	bufferSize    int
	closed        bool
	droppedEvents atomic.Int64
}

// NewEventBus creates a new event bus with the specified buffer size.
func NewEventBus(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = constants.EventBusDefaultBuffer
	}
	if bufferSize > constants.EventBusMaxBuffer {
		bufferSize = constants.EventBusMaxBuffer
	}
	return &EventBus{
		subscribers: make(map[EventType][]chan Event),
		all:         make([]chan Event, 0),
		bufferSize:  bufferSize,
	}
}

// Subscribe creates a subscription to a specific event type.
func (eb *EventBus) Subscribe(eventType EventType) <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.subscribers[eventType] = append(eb.subscribers[eventType], ch)
	return ch
}

// SubscribeAll creates a subscription to all events.
func (eb *EventBus) SubscribeAll() <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.all = append(eb.all, ch)
	return ch
}

// Publish sends an event to all subscribers without blocking.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return
	}

	for _, ch := range eb.subscribers[event.Type()] {
		select {
		case ch <- event:
		default:
			eb.droppedEvents.Add(1)
		}
	}

	for _, ch := range eb.all {
		select {
		case ch <- event:
		default:
			eb.droppedEvents.Add(1)
		}
	}
}

// PublishNotice is a convenience method for user notifications.
func (eb *EventBus) PublishNotice(level NoticeLevel, message string) {
	eb.Publish(&NoticeEvent{
		BaseEvent: BaseEvent{EventType: EventNotice, Time: time.Now()},
		Level:     level,
		Message:   message,
	})
}

// Unsubscribe removes a subscription channel from a specific event type and
// closes it. Queued events stay receivable; range loops over the channel
// terminate once they are drained.
func (eb *EventBus) Unsubscribe(eventType EventType, ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	subscribers := eb.subscribers[eventType]
	for i, subCh := range subscribers {
		if subCh == ch {
			subscribers[i] = subscribers[len(subscribers)-1]
			eb.subscribers[eventType] = subscribers[:len(subscribers)-1]
			close(subCh)
			break
		}
	}
}

// Close shuts down the event bus and closes all subscriber channels.
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}
	eb.closed = true

	for _, channels := range eb.subscribers {
		for _, ch := range channels {
			close(ch)
		}
	}
	for _, ch := range eb.all {
		close(ch)
	}
}

// DroppedEventCount returns how many events were dropped due to full buffers.
func (eb *EventBus) DroppedEventCount() int64 {
	return eb.droppedEvents.Load()
}
