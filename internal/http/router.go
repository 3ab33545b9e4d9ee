package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func NewRouter(h *Handler, log *zap.Logger) http.Handler {
	r := mux.NewRouter()
	r.Use(requestLogger(log))

	r.HandleFunc("/", h.Home).Methods(http.MethodGet)
	r.HandleFunc("/query", h.Query).Methods(http.MethodGet)
	r.HandleFunc("/status", h.Status).Methods(http.MethodGet)

	return corsMiddleware(r)
}
