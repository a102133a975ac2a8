// Package relay drains the engine's event channel and republishes each
// snapshot to the broadcaster, recording metrics along the way.
package relay

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/fetchd/fetchd/internal/broadcast"
	"github.com/fetchd/fetchd/internal/downloader"
	"github.com/fetchd/fetchd/internal/metrics"
	"github.com/google/uuid"
)

// Relay consumes downloader events and fans them out to subscribers.
type Relay struct {
	events <-chan downloader.Event
	bc     *broadcast.Broadcaster
	log    *slog.Logger

	stop chan struct{}
	wg   sync.WaitGroup
}

func New(log *slog.Logger, events <-chan downloader.Event, bc *broadcast.Broadcaster) *Relay {
	if log == nil {
		log = slog.Default()
	}
	return &Relay{events: events, bc: bc, log: log}
}

// Run starts the relay loop.
func (r *Relay) Run() {
	r.stop = make(chan struct{})
	// Tag this run with a stable operation_id for easier correlation.
	opID := uuid.NewString()
	r.log = r.log.With("operation_id", opID)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for {
			select {
			case <-r.stop:
				return
			case e, ok := <-r.events:
				if !ok {
					return
				}
				r.handle(e)
			}
		}
	}()
}

// Stop terminates the relay loop.
func (r *Relay) Stop() {
	if r.stop != nil {
		close(r.stop)
		r.wg.Wait()
	}
}

func (r *Relay) handle(e downloader.Event) {
	metrics.DownloadEvents.WithLabelValues(strings.ToLower(string(e.Type))).Inc()

	s := e.Snapshot
	switch e.Type {
	case downloader.EventComplete:
		r.log.Info("transfer complete",
			"transfer_id", e.TransferID,
			"file", s.FileName,
			"bytes", humanize.Bytes(uint64(s.BytesTransferred)))
	case downloader.EventFailed:
		r.log.Error("transfer failed",
			"transfer_id", e.TransferID,
			"file", s.FileName,
			"kind", s.ErrorKind,
			"err", s.ErrorMessage)
	case downloader.EventCancelled:
		r.log.Info("transfer cancelled",
			"transfer_id", e.TransferID,
			"file", s.FileName,
			"bytes", humanize.Bytes(uint64(s.BytesTransferred)))
	default:
		r.log.Debug("transfer progress",
			"transfer_id", e.TransferID,
			"state", s.State,
			"bytes", s.BytesTransferred,
			"pct", s.Percentage)
	}

	if r.bc != nil {
		r.bc.Publish(s)
	}
}
