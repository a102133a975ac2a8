// Package httpdl implements the single-flight HTTP download engine: one
// transfer at a time through Connecting, Transferring and Finalizing into
// exactly one terminal state, with progress reported through a Reporter.
package httpdl

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/fetchd/fetchd/internal/data"
	"github.com/fetchd/fetchd/internal/downloader"
	"github.com/fetchd/fetchd/internal/metrics"
	"github.com/fetchd/fetchd/internal/sink"
	"github.com/google/uuid"
)

const defaultChunkSize = 32 * 1024

// Options tunes the engine. Chunk size and progress cadence are
// implementation details, not part of the event contract.
type Options struct {
	Client *http.Client
	// ChunkSize bounds a single read from the response body.
	ChunkSize int
	// ProgressInterval is the byte cadence for progress events when the
	// origin declares no content length.
	ProgressInterval int64
}

// Engine is the download controller. It owns the slot state, the
// cancellation signal for the active transfer and the commit-or-discard
// decision for the partial artifact.
type Engine struct {
	client   *http.Client
	opener   sink.Opener
	rep      downloader.Reporter
	log      *slog.Logger
	chunk    int
	interval int64

	mu         sync.Mutex
	state      data.State
	snap       data.Snapshot
	cancel     context.CancelFunc
	transferID string
}

func New(opener sink.Opener, rep downloader.Reporter, opts Options) *Engine {
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}
	chunk := opts.ChunkSize
	if chunk <= 0 {
		chunk = defaultChunkSize
	}
	return &Engine{
		client:   client,
		opener:   opener,
		rep:      rep,
		log:      slog.Default(),
		chunk:    chunk,
		interval: opts.ProgressInterval,
		state:    data.StateIdle,
		snap:     data.Snapshot{State: data.StateIdle, TotalBytes: -1, Percentage: -1},
	}
}

var _ downloader.Downloader = (*Engine)(nil)

// SetLogger allows wiring a shared application logger into the engine.
func (e *Engine) SetLogger(l *slog.Logger) {
	if l != nil {
		e.log = l
	}
}

// Start accepts a request if the slot is free and runs the transfer on its
// own goroutine. An invalid request is rejected synchronously with a single
// terminal InvalidParams event and no artifact or connection is created.
// While a transfer is active Start returns ErrBusy and has no side effect.
func (e *Engine) Start(ctx context.Context, req data.Request) error {
	e.mu.Lock()
	if e.state.Active() {
		e.mu.Unlock()
		return downloader.ErrBusy
	}

	if err := req.Validate(); err != nil {
		snap := data.Snapshot{
			State:        data.StateFailed,
			TotalBytes:   -1,
			Percentage:   -1,
			FileName:     req.FileName,
			ErrorKind:    data.ErrKindInvalidParams,
			ErrorMessage: err.Error(),
		}
		e.state = data.StateFailed
		e.snap = snap
		id := uuid.NewString()
		e.mu.Unlock()
		e.report(downloader.Event{TransferID: id, Type: downloader.EventFailed, Snapshot: snap})
		return fmt.Errorf("start download: %w", err)
	}

	tctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	id := uuid.NewString()
	snap := data.Snapshot{
		State:      data.StateConnecting,
		TotalBytes: -1,
		Percentage: -1,
		FileName:   req.FileName,
	}
	e.state = data.StateConnecting
	e.snap = snap
	e.cancel = cancel
	e.transferID = id
	e.mu.Unlock()

	metrics.ActiveDownload.Set(1)
	e.report(downloader.Event{TransferID: id, Type: downloader.EventStart, Snapshot: snap})
	go e.run(tctx, id, req)
	return nil
}

// Cancel raises the cancellation signal for the active transfer. The read
// loop observes it within one chunk; the terminal Cancelled event follows
// once the partial artifact has been deleted.
func (e *Engine) Cancel() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.state.Active() || e.cancel == nil {
		return false
	}
	e.cancel()
	return true
}

// Close cancels any active transfer. Used by the host on shutdown.
func (e *Engine) Close() { e.Cancel() }

// Snapshot returns the last known observation of the slot.
func (e *Engine) Snapshot() data.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snap
}

func (e *Engine) report(ev downloader.Event) {
	if e.rep != nil {
		e.rep.Report(ev)
	}
}

// setProgress records a non-terminal observation and emits it.
func (e *Engine) setProgress(id string, snap data.Snapshot) {
	e.mu.Lock()
	e.state = snap.State
	e.snap = snap
	e.mu.Unlock()
	e.report(downloader.Event{TransferID: id, Type: downloader.EventProgress, Snapshot: snap})
}

// finish records the terminal observation, releases the slot and emits the
// last event for the transfer.
func (e *Engine) finish(id string, typ downloader.EventType, snap data.Snapshot, started time.Time) {
	e.mu.Lock()
	e.state = snap.State
	e.snap = snap
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.transferID = ""
	e.mu.Unlock()

	metrics.ActiveDownload.Set(0)
	metrics.TransferDuration.Observe(time.Since(started).Seconds())
	e.report(downloader.Event{TransferID: id, Type: typ, Snapshot: snap})
}
