package downloader

import (
	"context"

	"github.com/fetchd/fetchd/internal/data"
)

type noopDownloader struct{}

// NewNoopDownloader returns a Downloader that accepts every request and does
// nothing. Useful for wiring and router tests.
func NewNoopDownloader() Downloader {
	return &noopDownloader{}
}

func (d *noopDownloader) Start(ctx context.Context, req data.Request) error {
	return req.Validate()
}

func (d *noopDownloader) Cancel() bool { return false }

func (d *noopDownloader) Snapshot() data.Snapshot {
	return data.Snapshot{State: data.StateIdle, TotalBytes: -1, Percentage: -1}
}
