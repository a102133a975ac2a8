package v1

import (
	"bufio"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/fetchd/fetchd/internal/data"
	"github.com/fetchd/fetchd/internal/downloader"
	"github.com/fetchd/fetchd/internal/service"
)

type DownloadHandler struct {
	l   *slog.Logger
	svc service.Download
}

type startBody struct {
	URL      string `json:"url"`
	FileName string `json:"fileName"`
}

type rwLogger struct {
	http.ResponseWriter
	status int
	bytes  int
	err    error
}

func (w *rwLogger) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *rwLogger) SetErr(err error) {
	w.err = err
}

func (w *rwLogger) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}

	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// Hijack lets the websocket upgrade work through the logging wrapper.
func (w *rwLogger) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("underlying ResponseWriter does not support hijacking")
	}
	return hj.Hijack()
}

func (w *rwLogger) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

type errorSetter interface {
	SetErr(error)
}

func markErr(w http.ResponseWriter, err error) {
	if es, ok := w.(errorSetter); ok {
		es.SetErr(err)
	}
}

// context keys
type ctxKeyStart struct{}

func NewDownloadHandler(l *slog.Logger, svc service.Download) *DownloadHandler {
	return &DownloadHandler{l: l, svc: svc}
}

// StartDownload accepts a download request for the single slot. The richer
// internal result collapses to accepted true/false at this boundary.
func (dh *DownloadHandler) StartDownload(w http.ResponseWriter, r *http.Request) {
	v := r.Context().Value(ctxKeyStart{})
	body, ok := v.(startBody)
	if !ok {
		markErr(w, ErrStartCtx)
		http.Error(w, ErrStartCtx.Error(), http.StatusInternalServerError)
		return
	}

	err := dh.svc.Start(r.Context(), body.URL, body.FileName)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]any{"accepted": true})
	case errors.Is(err, downloader.ErrBusy):
		markErr(w, err)
		writeJSON(w, http.StatusConflict, map[string]any{"accepted": false, "reason": "busy"})
	case errors.Is(err, data.ErrInvalidURL), errors.Is(err, data.ErrInvalidFileName):
		markErr(w, err)
		writeJSON(w, http.StatusBadRequest, map[string]any{"accepted": false, "reason": err.Error()})
	default:
		markErr(w, err)
		http.Error(w, "failed to start download", http.StatusInternalServerError)
	}
}

// CancelDownload raises the cancellation signal for the active transfer.
func (dh *DownloadHandler) CancelDownload(w http.ResponseWriter, r *http.Request) {
	ok := dh.svc.Cancel(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"cancelled": ok})
}

// GetDownload returns the current progress record for the slot.
func (dh *DownloadHandler) GetDownload(w http.ResponseWriter, r *http.Request) {
	rec := dh.svc.Snapshot(r.Context()).Record()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := rec.ToJSON(w); err != nil {
		markErr(w, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		markErr(w, err)
	}
}

func (dh *DownloadHandler) Log(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()
		rw := &rwLogger{ResponseWriter: w}
		next.ServeHTTP(rw, r)
		if rw.status == 0 {
			rw.status = http.StatusOK
		}
		timeElapsed := time.Since(startTime)
		hErr := rw.err
		if hErr != nil {
			dh.l.Error(hErr.Error(),
				"method", r.Method,
				"url", r.URL.Path,
				"status", rw.status,
				"remote", r.RemoteAddr,
				"ua", r.UserAgent(),
				"dur_ms", timeElapsed.Milliseconds(),
				"bytes", rw.bytes)
			return
		}

		dh.l.Info("", "method", r.Method,
			"url", r.URL.Path,
			"status", rw.status,
			"remote", r.RemoteAddr,
			"ua", r.UserAgent(),
			"dur_ms", timeElapsed.Milliseconds(),
			"bytes", rw.bytes)
	})
}
