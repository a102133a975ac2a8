package httpdl

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fetchd/fetchd/internal/data"
	"github.com/fetchd/fetchd/internal/downloader"
	"github.com/fetchd/fetchd/internal/metrics"
	"github.com/fetchd/fetchd/internal/progress"
	"github.com/fetchd/fetchd/internal/sink"
)

// run is the transfer pipeline. Every outcome, including a panic, is
// converted into exactly one terminal event; nothing escapes to the host.
func (e *Engine) run(ctx context.Context, id string, req data.Request) {
	started := time.Now()
	lg := e.log.With("transfer_id", id, "file", req.FileName)

	var (
		handle  sink.Handle
		written int64
	)
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if handle != nil {
			handle.Discard()
		}
		lg.Error("transfer fault", "panic", r)
		snap := data.Snapshot{
			State:            data.StateFailed,
			BytesTransferred: written,
			TotalBytes:       -1,
			Percentage:       -1,
			FileName:         req.FileName,
			ErrorKind:        data.ErrKindGeneral,
			ErrorMessage:     fmt.Sprintf("internal fault: %v", r),
		}
		e.finish(id, downloader.EventFailed, snap, started)
	}()

	tr := progress.NewTracker(req.FileName, -1, e.interval)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		e.fail(id, tr, written, data.ErrKindNetwork, fmt.Sprintf("build request: %v", err), started, lg)
		return
	}
	resp, err := e.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			e.cancelled(id, tr, written, started, lg)
			return
		}
		e.fail(id, tr, written, data.ErrKindNetwork, fmt.Sprintf("connect: %v", err), started, lg)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		e.fail(id, tr, written, data.ErrKindNetwork, fmt.Sprintf("unexpected status %s", resp.Status), started, lg)
		return
	}

	// ContentLength is -1 when the origin declares no length.
	stream := newByteStream(resp.Body, resp.ContentLength, e.chunk)
	tr = progress.NewTracker(req.FileName, stream.DeclaredLength(), e.interval)

	mimeType := resolveMIMEType(resp.Header.Get("Content-Type"), req.FileName)
	handle, err = e.opener.Open(req.FileName, mimeType)
	if err != nil {
		e.fail(id, tr, written, data.ErrKindIO, fmt.Sprintf("open sink: %v", err), started, lg)
		return
	}

	lg.Debug("transferring", "total", stream.DeclaredLength(), "mime_type", mimeType)
	e.setProgress(id, tr.Snapshot(data.StateTransferring, 0))

	for {
		// Cancellation is polled at least once per chunk.
		select {
		case <-ctx.Done():
			handle.Discard()
			e.cancelled(id, tr, written, started, lg)
			return
		default:
		}

		chunk, rerr := stream.Next()
		if len(chunk) > 0 {
			if _, werr := handle.Write(chunk); werr != nil {
				handle.Discard()
				e.fail(id, tr, written, data.ErrKindIO, fmt.Sprintf("write chunk: %v", werr), started, lg)
				return
			}
			written += int64(len(chunk))
			metrics.TransferredBytes.Add(float64(len(chunk)))
			if snap, ok := tr.Advance(written); ok {
				e.setProgress(id, snap)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			handle.Discard()
			if ctx.Err() != nil {
				e.cancelled(id, tr, written, started, lg)
				return
			}
			e.fail(id, tr, written, data.ErrKindNetwork, fmt.Sprintf("read body: %v", rerr), started, lg)
			return
		}
	}

	e.setProgress(id, tr.Snapshot(data.StateFinalizing, written))
	if err := handle.Commit(); err != nil {
		handle.Discard()
		e.fail(id, tr, written, data.ErrKindIO, fmt.Sprintf("commit: %v", err), started, lg)
		return
	}

	lg.Info("download complete",
		"bytes", humanize.Bytes(uint64(written)),
		"dur_ms", time.Since(started).Milliseconds())
	e.finish(id, downloader.EventComplete, tr.Terminal(data.StateCompleted, written, data.ErrKindNone, ""), started)
}

func (e *Engine) fail(id string, tr *progress.Tracker, written int64, kind data.ErrorKind, msg string, started time.Time, lg *slog.Logger) {
	lg.Error("download failed", "kind", kind, "err", msg, "bytes", written)
	e.finish(id, downloader.EventFailed, tr.Terminal(data.StateFailed, written, kind, msg), started)
}

func (e *Engine) cancelled(id string, tr *progress.Tracker, written int64, started time.Time, lg *slog.Logger) {
	lg.Info("download cancelled", "bytes", written)
	e.finish(id, downloader.EventCancelled, tr.Terminal(data.StateCancelled, written, data.ErrKindNone, ""), started)
}
