// Package progress renders transfer lifecycle events as terminal progress
// bars.
package progress

import (
	"fmt"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/drivelink/drivelink/internal/events"
)

// Tracker consumes transfer events from the bus and drives one progress
// bar per task. Bars write to out (normally stderr) so piped stdout stays
// clean.
type Tracker struct {
	bus *events.EventBus
	out io.Writer

	mu   sync.Mutex
	bars map[string]*progressbar.ProgressBar
	done chan struct{}
	chs  []<-chan events.Event
}

// NewTracker creates a tracker writing bars to out.
func NewTracker(bus *events.EventBus, out io.Writer) *Tracker {
	return &Tracker{
		bus:  bus,
		out:  out,
		bars: make(map[string]*progressbar.ProgressBar),
	}
}

// Start subscribes to transfer events and renders until the bus closes.
func (t *Tracker) Start() {
	t.mu.Lock()
	if t.chs != nil {
		t.mu.Unlock()
		return
	}
	types := []events.EventType{
		events.EventTransferStarted,
		events.EventTransferProgress,
		events.EventTransferCompleted,
		events.EventTransferFailed,
	}
	for _, eventType := range types {
		t.chs = append(t.chs, t.bus.Subscribe(eventType))
	}
	t.done = make(chan struct{})
	chs := t.chs
	t.mu.Unlock()

	var wg sync.WaitGroup
	for _, ch := range chs {
		wg.Add(1)
		go func(ch <-chan events.Event) {
			defer wg.Done()
			for ev := range ch {
				if transfer, okType := ev.(*events.TransferEvent); okType {
					t.handle(transfer)
				}
			}
		}(ch)
	}
	go func() {
		wg.Wait()
		close(t.done)
	}()
}

// Wait blocks until the bus closes and all bars have settled.
func (t *Tracker) Wait() {
	t.mu.Lock()
	done := t.done
	t.mu.Unlock()
	if done != nil {
		<-done
	}
}

// ActiveTasks returns how many transfers currently have a live bar.
func (t *Tracker) ActiveTasks() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.bars)
}

func (t *Tracker) handle(ev *events.TransferEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch ev.Type() {
	case events.EventTransferStarted:
		t.bars[ev.TaskID] = t.newBar(ev)
	case events.EventTransferProgress:
		if bar, live := t.bars[ev.TaskID]; live {
			bar.Set64(int64(ev.Progress * float64(ev.Size)))
		}
	case events.EventTransferCompleted:
		if bar, live := t.bars[ev.TaskID]; live {
			bar.Finish()
			delete(t.bars, ev.TaskID)
		}
	case events.EventTransferFailed:
		if bar, live := t.bars[ev.TaskID]; live {
			bar.Clear()
			delete(t.bars, ev.TaskID)
		}
		fmt.Fprintf(t.out, "%s: %s failed: %v\n", ev.TaskType, ev.Name, ev.Error)
	}
}

func (t *Tracker) newBar(ev *events.TransferEvent) *progressbar.ProgressBar {
	return progressbar.NewOptions64(ev.Size,
		progressbar.OptionSetDescription(ev.Name),
		progressbar.OptionSetWriter(t.out),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(t.out, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
}
