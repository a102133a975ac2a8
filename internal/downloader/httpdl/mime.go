package httpdl

import (
	"mime"
	"path/filepath"
	"strings"
)

const fallbackMIMEType = "application/octet-stream"

// resolveMIMEType derives the sink mime type from the response Content-Type
// header, falling back to the file extension and finally to octet-stream.
func resolveMIMEType(contentType, fileName string) string {
	if contentType != "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil && mt != "" {
			return mt
		}
	}
	if ext := filepath.Ext(fileName); ext != "" {
		if mt := mime.TypeByExtension(strings.ToLower(ext)); mt != "" {
			if i := strings.IndexByte(mt, ';'); i >= 0 {
				mt = mt[:i]
			}
			return strings.TrimSpace(mt)
		}
	}
	return fallbackMIMEType
}
