package httpdl

import "io"

// byteStream yields bounded chunks from a response body. The buffer is
// reused, so a chunk is only valid until the next call; chunk size is
// independent of the body size.
type byteStream struct {
	r        io.Reader
	buf      []byte
	declared int64
}

func newByteStream(r io.Reader, declared int64, chunkSize int) *byteStream {
	if declared < 0 {
		declared = -1
	}
	return &byteStream{r: r, buf: make([]byte, chunkSize), declared: declared}
}

// DeclaredLength returns the length announced by the origin, -1 if unknown.
func (s *byteStream) DeclaredLength() int64 { return s.declared }

// Next reads one chunk. It may return both data and an error; io.EOF marks
// exhaustion. Underlying read errors are surfaced unchanged.
func (s *byteStream) Next() ([]byte, error) {
	n, err := s.r.Read(s.buf)
	return s.buf[:n], err
}
