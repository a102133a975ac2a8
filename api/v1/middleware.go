package v1

import (
	"context"
	"net/http"
)

// MiddlewareStartValidation decodes and transport-validates the start body.
// Semantic validation (URL shape, file name) belongs to the controller so
// the rejection shows up in its event stream too.
func MiddlewareStartValidation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body startBody
		if err := decodeJSONStrict(w, r, &body, 1<<20, "application/json"); err != nil {
			markErr(w, err)
			if err == ErrContentType {
				http.Error(w, err.Error(), http.StatusUnsupportedMediaType)
				return
			}
			http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyStart{}, body)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
