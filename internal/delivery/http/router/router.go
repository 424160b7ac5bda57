package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/user/crawl-pilot/internal/delivery/http/handler"
	"github.com/user/crawl-pilot/internal/delivery/http/middleware"
)

func New(h *handler.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging)
	r.Use(middleware.Metrics)
	r.Use(chimw.Recoverer)

	r.Get("/api/health", h.HandleHealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/session", func(r chi.Router) {
		r.Post("/", h.HandleOpenSession)
		r.Delete("/", h.HandleResetSession)
		r.Get("/frontier", h.HandleGetFrontier)
		r.Get("/transcript", h.HandleGetTranscript)
		r.Post("/messages", h.HandleSendMessage)
		r.Post("/proposals/{id}/approve", h.HandleApproveProposal)
		r.Post("/proposals/{id}/reject", h.HandleRejectProposal)
		r.Get("/bulk-scan", h.HandleGetBulkScan)
		r.Post("/bulk-scan", h.HandleStartBulkScan)
		r.Delete("/bulk-scan", h.HandleStopBulkScan)
		r.Get("/report", h.HandleGetReport)
		r.Post("/archive", h.HandleArchiveSession)
	})
	r.Get("/api/archives/{id}", h.HandleGetArchive)

	return r
}
