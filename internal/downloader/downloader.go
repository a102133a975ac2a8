package downloader

import (
	"context"
	"errors"

	"github.com/fetchd/fetchd/internal/data"
)

// ErrBusy is returned by Start while a transfer is already in flight. The
// active transfer is left untouched.
var ErrBusy = errors.New("a download is already in progress")

// Downloader manages the single download slot.
//
// Start returns once the request is accepted or rejected; completion is
// observed only through the emitted events. Cancel reports whether an active
// transfer existed and the cancellation signal was raised. Snapshot returns
// the last known observation for the host to render.
type Downloader interface {
	Start(ctx context.Context, req data.Request) error
	Cancel() bool
	Snapshot() data.Snapshot
}
