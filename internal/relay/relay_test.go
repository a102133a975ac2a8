package relay

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/fetchd/fetchd/internal/broadcast"
	"github.com/fetchd/fetchd/internal/data"
	"github.com/fetchd/fetchd/internal/downloader"
)

func TestRelayRepublishesSnapshots(t *testing.T) {
	events := make(chan downloader.Event, 8)
	bc := broadcast.New(8)
	defer bc.Close()

	r := New(slog.New(slog.NewTextHandler(io.Discard, nil)), events, bc)
	r.Run()
	defer r.Stop()

	sub, cancel := bc.Subscribe()
	defer cancel()

	events <- downloader.Event{
		TransferID: "t1",
		Type:       downloader.EventProgress,
		Snapshot:   data.Snapshot{State: data.StateTransferring, BytesTransferred: 512, TotalBytes: 1024, Percentage: 50, FileName: "a.bin"},
	}
	events <- downloader.Event{
		TransferID: "t1",
		Type:       downloader.EventComplete,
		Snapshot:   data.Snapshot{State: data.StateCompleted, BytesTransferred: 1024, TotalBytes: 1024, Percentage: 100, FileName: "a.bin"},
	}

	for i, wantBytes := range []int64{512, 1024} {
		select {
		case s := <-sub:
			if s.BytesTransferred != wantBytes {
				t.Fatalf("event %d: bytes = %d, want %d", i, s.BytesTransferred, wantBytes)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for snapshot %d", i)
		}
	}
}

func TestRelayStopDrainsCleanly(t *testing.T) {
	events := make(chan downloader.Event)
	r := New(slog.New(slog.NewTextHandler(io.Discard, nil)), events, nil)
	r.Run()
	r.Stop()
}

func TestRelayHandlesClosedChannel(t *testing.T) {
	events := make(chan downloader.Event)
	r := New(slog.New(slog.NewTextHandler(io.Discard, nil)), events, nil)
	r.Run()
	close(events)
	// The loop must exit on its own; Stop would hang otherwise.
	done := make(chan struct{})
	go func() {
		r.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("relay did not stop after events channel closed")
	}
}
