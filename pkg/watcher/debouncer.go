package watcher

import (
	"context"
	"slices"
	"time"

	"github.com/sloanyang/gyp/pkg/logging"
)

// Debouncer batches rapid file system events so one burst of saves causes
// a single re-resolution
type Debouncer struct {
	input       <-chan ChangeEvent
	output      chan ChangeEvent
	quietPeriod time.Duration
	maxWait     time.Duration
}

// NewDebouncer creates a new event debouncer. A batch is flushed once no
// event arrived for quietPeriod, or maxWait after its first event.
func NewDebouncer(input <-chan ChangeEvent, quietPeriod, maxWait time.Duration) *Debouncer {
	return &Debouncer{
		input:       input,
		output:      make(chan ChangeEvent, 10),
		quietPeriod: quietPeriod,
		maxWait:     maxWait,
	}
}

// Start begins processing events with debouncing
func (d *Debouncer) Start(ctx context.Context) {
	go d.run(ctx)
}

func (d *Debouncer) run(ctx context.Context) {
	defer close(d.output)

	var (
		quiet   <-chan time.Time
		maxWait <-chan time.Time
		paths   []string
		count   int
	)

	flush := func() {
		quiet, maxWait = nil, nil
		if count == 0 {
			return
		}
		logging.Debug("flushing accumulated events", "count", count, "paths", len(paths))
		select {
		case d.output <- ChangeEvent{Paths: paths, Timestamp: time.Now()}:
		case <-ctx.Done():
		}
		paths = nil
		count = 0
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-d.input:
			if !ok {
				flush()
				return
			}
			for _, p := range event.Paths {
				if !slices.Contains(paths, p) {
					paths = append(paths, p)
				}
			}
			count++

			quiet = time.After(d.quietPeriod)
			if maxWait == nil {
				maxWait = time.After(d.maxWait)
			}

		case <-quiet:
			flush()

		case <-maxWait:
			flush()
		}
	}
}

// Output returns the channel of debounced events
func (d *Debouncer) Output() <-chan ChangeEvent {
	return d.output
}
