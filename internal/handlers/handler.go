package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"gitlab.com/scenecast.net/internal/handlers/response"
)

// HealthHandler answers liveness probes
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// RegisterRoutes registers the API routes for HealthHandler
func (h *HealthHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/", h.Root).Methods("GET")
	router.HandleFunc("/ping", h.Ping).Methods("GET")
}

func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	response.WriteSuccess(w, map[string]string{"status": "ok"})
}

func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	response.WriteSuccess(w, map[string]string{"message": "pong"})
}
