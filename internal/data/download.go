package data

import (
	"encoding/json"
	"errors"
	"io"
	"net/url"
	"path/filepath"
	"strings"
)

// State is the lifecycle state of the single download slot.
type State string

const (
	StateIdle         State = "Idle"
	StateConnecting   State = "Connecting"
	StateTransferring State = "Transferring"
	StateFinalizing   State = "Finalizing"
	StateCompleted    State = "Completed"
	StateFailed       State = "Failed"
	StateCancelled    State = "Cancelled"
)

// Active reports whether a transfer is currently in flight.
func (s State) Active() bool {
	switch s {
	case StateConnecting, StateTransferring, StateFinalizing:
		return true
	}
	return false
}

// Terminal reports whether the state ends a transfer. No further events are
// emitted for a request after a terminal state.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	}
	return false
}

// ErrorKind classifies a failed transfer for the terminal snapshot.
type ErrorKind string

const (
	ErrKindNone          ErrorKind = ""
	ErrKindInvalidParams ErrorKind = "InvalidParams"
	ErrKindNetwork       ErrorKind = "NetworkError"
	ErrKindIO            ErrorKind = "IOError"
	ErrKindGeneral       ErrorKind = "GeneralError"
)

var (
	ErrInvalidURL      = errors.New("url must be a valid http or https address")
	ErrInvalidFileName = errors.New("fileName must be a plain file name")
)

// Request describes one download: where to fetch from and what to call the
// result. Immutable once accepted.
type Request struct {
	URL      string `json:"url"`
	FileName string `json:"fileName"`
}

func (r *Request) FromJSON(rd io.Reader) error { return json.NewDecoder(rd).Decode(r) }

// Validate rejects requests before any work begins. Failures here map to
// ErrKindInvalidParams.
func (r Request) Validate() error {
	raw := strings.TrimSpace(r.URL)
	if raw == "" {
		return ErrInvalidURL
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidURL
	}
	name := strings.TrimSpace(r.FileName)
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return ErrInvalidFileName
	}
	return nil
}

// Snapshot is one observation of the download slot. TotalBytes is -1 when the
// origin did not declare a length; Percentage is -1 in that case.
type Snapshot struct {
	State            State     `json:"state"`
	BytesTransferred int64     `json:"bytesTransferred"`
	TotalBytes       int64     `json:"totalBytes"`
	Percentage       int       `json:"percentage"`
	Speed            int64     `json:"speed,omitempty"`
	FileName         string    `json:"fileName,omitempty"`
	ErrorKind        ErrorKind `json:"errorKind,omitempty"`
	ErrorMessage     string    `json:"errorMessage,omitempty"`
}

func (s Snapshot) Terminal() bool { return s.State.Terminal() }

func (s *Snapshot) ToJSON(w io.Writer) error { return json.NewEncoder(w).Encode(s) }

// WireStatus is the status field of the outbound progress record. Terminal
// failures carry their classified kind as the status, matching the legacy
// boundary contract.
type WireStatus string

const (
	WireProgress      WireStatus = "progress"
	WireCompleted     WireStatus = "completed"
	WireFailed        WireStatus = "failed"
	WireCancelled     WireStatus = "cancelled"
	WireInvalidParams WireStatus = "invalidParams"
	WireNetworkError  WireStatus = "networkError"
	WireIOError       WireStatus = "ioError"
	WireGeneralError  WireStatus = "generalError"
	WireUnknown       WireStatus = "unknown"
)

// Record is the outbound wire form of a Snapshot.
type Record struct {
	Status          WireStatus `json:"status"`
	Progress        int        `json:"progress"`
	DownloadedBytes int64      `json:"downloadedBytes"`
	TotalBytes      int64      `json:"totalBytes"`
	FileName        string     `json:"fileName,omitempty"`
	Message         string     `json:"message,omitempty"`
}

func (r *Record) ToJSON(w io.Writer) error { return json.NewEncoder(w).Encode(r) }

// Record collapses a Snapshot into the wire form.
func (s Snapshot) Record() Record {
	return Record{
		Status:          s.wireStatus(),
		Progress:        s.Percentage,
		DownloadedBytes: s.BytesTransferred,
		TotalBytes:      s.TotalBytes,
		FileName:        s.FileName,
		Message:         s.ErrorMessage,
	}
}

func (s Snapshot) wireStatus() WireStatus {
	switch s.State {
	case StateConnecting, StateTransferring, StateFinalizing, StateIdle:
		return WireProgress
	case StateCompleted:
		return WireCompleted
	case StateCancelled:
		return WireCancelled
	case StateFailed:
		switch s.ErrorKind {
		case ErrKindInvalidParams:
			return WireInvalidParams
		case ErrKindNetwork:
			return WireNetworkError
		case ErrKindIO:
			return WireIOError
		case ErrKindGeneral:
			return WireGeneralError
		default:
			return WireFailed
		}
	default:
		return WireUnknown
	}
}
