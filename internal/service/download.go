package service

import (
	"context"

	"github.com/fetchd/fetchd/internal/data"
	"github.com/fetchd/fetchd/internal/downloader"
)

// Download is the inbound command surface for the download slot. Permission
// to download is the caller's concern; it is assumed settled before Start.
type Download interface {
	Start(ctx context.Context, url, fileName string) error
	Cancel(ctx context.Context) bool
	Snapshot(ctx context.Context) data.Snapshot
}

type download struct {
	dlr downloader.Downloader
}

func NewDownload(dlr downloader.Downloader) Download {
	return &download{dlr: dlr}
}

// Start forwards the request to the downloader. Busy and invalid-parameter
// rejections come back as downloader.ErrBusy and the data sentinel errors
// for the transport layer to map.
func (ds *download) Start(ctx context.Context, url, fileName string) error {
	return ds.dlr.Start(ctx, data.Request{URL: url, FileName: fileName})
}

func (ds *download) Cancel(ctx context.Context) bool {
	return ds.dlr.Cancel()
}

func (ds *download) Snapshot(ctx context.Context) data.Snapshot {
	return ds.dlr.Snapshot()
}
