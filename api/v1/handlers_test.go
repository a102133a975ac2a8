package v1_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fetchd/fetchd/internal/broadcast"
	"github.com/fetchd/fetchd/internal/data"
	"github.com/fetchd/fetchd/internal/downloader"
	"github.com/fetchd/fetchd/internal/router"
)

const testToken = "testtoken"

// fakeDownloader scripts the slot behavior for handler tests.
type fakeDownloader struct {
	startErr  error
	cancelRes bool
	snap      data.Snapshot
}

func (f *fakeDownloader) Start(ctx context.Context, req data.Request) error { return f.startErr }
func (f *fakeDownloader) Cancel() bool                                      { return f.cancelRes }
func (f *fakeDownloader) Snapshot() data.Snapshot                           { return f.snap }

var _ downloader.Downloader = (*fakeDownloader)(nil)

type fakeService struct {
	dlr downloader.Downloader
}

func (s *fakeService) Start(ctx context.Context, url, fileName string) error {
	return s.dlr.Start(ctx, data.Request{URL: url, FileName: fileName})
}
func (s *fakeService) Cancel(ctx context.Context) bool { return s.dlr.Cancel() }

func (s *fakeService) Snapshot(ctx context.Context) data.Snapshot {
	return s.dlr.Snapshot()
}

func setup(t *testing.T, dlr downloader.Downloader) http.Handler {
	t.Helper()
	t.Setenv("FETCHD_API_TOKEN", testToken)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bc := broadcast.New(4)
	t.Cleanup(bc.Close)
	return router.New(logger, &fakeService{dlr: dlr}, bc)
}

func authReq(r *http.Request) {
	r.Header.Set("Authorization", "Bearer "+testToken)
}

func postDownload(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/download", bytes.NewBufferString(body))
	authReq(req)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestStartAccepted(t *testing.T) {
	h := setup(t, &fakeDownloader{})

	rr := postDownload(t, h, `{"url":"https://example.com/a.bin","fileName":"a.bin"}`)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202 got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["accepted"] != true {
		t.Fatalf("accepted = %v", resp["accepted"])
	}
}

func TestStartBusyIsConflict(t *testing.T) {
	h := setup(t, &fakeDownloader{startErr: downloader.ErrBusy})

	rr := postDownload(t, h, `{"url":"https://example.com/a.bin","fileName":"a.bin"}`)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", rr.Code)
	}
	var resp map[string]any
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if resp["accepted"] != false {
		t.Fatalf("accepted = %v", resp["accepted"])
	}
}

func TestStartInvalidParamsIsBadRequest(t *testing.T) {
	h := setup(t, &fakeDownloader{startErr: data.ErrInvalidURL})

	rr := postDownload(t, h, `{"url":"nope","fileName":"a.bin"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
}

func TestStartRejectsUnknownFields(t *testing.T) {
	h := setup(t, &fakeDownloader{})

	rr := postDownload(t, h, `{"url":"https://example.com/a.bin","fileName":"a.bin","resume":true}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
}

func TestStartRejectsWrongContentType(t *testing.T) {
	h := setup(t, &fakeDownloader{})

	req := httptest.NewRequest(http.MethodPost, "/v1/download", bytes.NewBufferString("url=x"))
	authReq(req)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415 got %d", rr.Code)
	}
}

func TestCancelReportsResult(t *testing.T) {
	for _, cancelled := range []bool{true, false} {
		h := setup(t, &fakeDownloader{cancelRes: cancelled})

		req := httptest.NewRequest(http.MethodDelete, "/v1/download", nil)
		authReq(req)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200 got %d", rr.Code)
		}
		var resp map[string]any
		_ = json.NewDecoder(rr.Body).Decode(&resp)
		if resp["cancelled"] != cancelled {
			t.Fatalf("cancelled = %v, want %v", resp["cancelled"], cancelled)
		}
	}
}

func TestGetDownloadReturnsRecord(t *testing.T) {
	h := setup(t, &fakeDownloader{snap: data.Snapshot{
		State:            data.StateTransferring,
		BytesTransferred: 512,
		TotalBytes:       1024,
		Percentage:       50,
		FileName:         "a.bin",
	}})

	req := httptest.NewRequest(http.MethodGet, "/v1/download", nil)
	authReq(req)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
	var rec data.Record
	if err := json.NewDecoder(rr.Body).Decode(&rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Status != data.WireProgress || rec.DownloadedBytes != 512 || rec.Progress != 50 {
		t.Fatalf("unexpected record: %#v", rec)
	}
}

func TestAuthRequired(t *testing.T) {
	h := setup(t, &fakeDownloader{})

	req := httptest.NewRequest(http.MethodGet, "/v1/download", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/download", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rr.Code)
	}
}
