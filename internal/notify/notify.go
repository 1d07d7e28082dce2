// Package notify renders bus notices for the user. Notices are fire-and-
// forget: publishing never blocks the layer doing the work, and a renderer
// that falls behind loses notices rather than stalling uploads.
package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/drivelink/drivelink/internal/events"
	"github.com/drivelink/drivelink/internal/logging"
)

// Notifier drains NoticeEvents from the bus and writes them to out.
type Notifier struct {
	bus    *events.EventBus
	out    io.Writer
	logger *logging.Logger

	mu      sync.Mutex
	done    chan struct{}
	stopped bool
	ch      <-chan events.Event
}

// NewNotifier creates a notifier writing to out. Call Start to begin
// draining and Stop to flush and detach.
func NewNotifier(bus *events.EventBus, out io.Writer, logger *logging.Logger) *Notifier {
	return &Notifier{
		bus:    bus,
		out:    out,
		logger: logger,
	}
}

// Start subscribes to notices and renders them until Stop or bus close.
func (n *Notifier) Start() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ch != nil {
		return
	}

	n.ch = n.bus.Subscribe(events.EventNotice)
	n.done = make(chan struct{})

	go func() {
		defer close(n.done)
		for ev := range n.ch {
			notice, okType := ev.(*events.NoticeEvent)
			if !okType {
				continue
			}
			n.render(notice)
		}
	}()
}

// Stop detaches from the bus and waits for queued notices to render.
func (n *Notifier) Stop() {
	n.mu.Lock()
	if n.stopped || n.ch == nil {
		n.mu.Unlock()
		return
	}
	n.stopped = true
	ch := n.ch
	done := n.done
	n.mu.Unlock()

	// Unsubscribe closes the channel; the drain goroutine renders whatever
	// is already queued and then exits.
	n.bus.Unsubscribe(events.EventNotice, ch)
	<-done
}

func (n *Notifier) render(notice *events.NoticeEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, err := fmt.Fprintf(n.out, "[%s] %s\n", notice.Level, notice.Message); err != nil {
		n.logger.Debug().Err(err).Msg("failed to render notice")
	}
}
