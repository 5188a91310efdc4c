// Package server exposes a pool registry over HTTP (SPEC_FULL.md §6.2).
package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/sandover/plasmite/pool"
)

// Handler wires a pool.Registry to a gorilla/mux router.
type Handler struct {
	registry *pool.Registry
	logger   *zap.SugaredLogger
	router   *mux.Router
}

// New builds a Handler and registers its routes.
func New(registry *pool.Registry, logger *zap.SugaredLogger) *Handler {
	h := &Handler{registry: registry, logger: logger, router: mux.NewRouter()}
	h.routes()
	return h
}

func (h *Handler) routes() {
	h.router.HandleFunc("/v1/pools", h.ListPoolsHandler).Methods(http.MethodGet)
	h.router.HandleFunc("/v1/pools/{name}", h.CreatePoolHandler).Methods(http.MethodPut)
	h.router.HandleFunc("/v1/pools/{name}", h.DeletePoolHandler).Methods(http.MethodDelete)
	h.router.HandleFunc("/v1/pools/{name}/messages", h.AppendHandler).Methods(http.MethodPost)
	h.router.HandleFunc("/v1/pools/{name}/messages/{seq}", h.GetHandler).Methods(http.MethodGet)
	h.router.HandleFunc("/v1/pools/{name}/stream", h.StreamHandler).Methods(http.MethodGet)
	h.router.HandleFunc("/v1/pools/{name}/bounds", h.BoundsHandler).Methods(http.MethodGet)
}

// ServeHTTP makes Handler usable directly with net/http.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}
