package router

import (
	"log/slog"
	"net/http"

	v1 "github.com/fetchd/fetchd/api/v1"
	"github.com/fetchd/fetchd/internal/auth"
	"github.com/fetchd/fetchd/internal/broadcast"
	"github.com/fetchd/fetchd/internal/service"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// New sets up the application routes and required middleware.
func New(logger *slog.Logger, downloadSvc service.Download, bc *broadcast.Broadcaster) *mux.Router {

	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			logger.Error("write healthz response", "err", err)
		}
	}).Methods("GET")
	r.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ready")); err != nil {
			logger.Error("write readyz response", "err", err)
		}
	}).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	downloadHandler := v1.NewDownloadHandler(logger, downloadSvc)
	eventsHandler := v1.NewEventsHandler(logger, bc)

	r.Use(v1.RequestID)
	r.Use(downloadHandler.Log)
	r.Use(auth.Middleware)

	api := r.PathPrefix("/v1").Subrouter()

	// GETs
	get := api.Methods("GET").Subrouter()
	get.HandleFunc("/download", downloadHandler.GetDownload)
	get.Handle("/events", eventsHandler)

	// POSTs
	post := api.Methods("POST").Subrouter()
	post.HandleFunc("/download", downloadHandler.StartDownload)
	post.Use(v1.MiddlewareStartValidation)

	// DELETEs
	del := api.Methods("DELETE").Subrouter()
	del.HandleFunc("/download", downloadHandler.CancelDownload)

	return r
}
