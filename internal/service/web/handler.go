package web

import (
	"encoding/json"
	"net/http"

	"echo_nexus/internal/shared/types"
)

// Handler serves the read-only HTTP API.
type Handler struct {
	controller EchoController
}

func NewHandler(controller EchoController) *Handler {
	return &Handler{controller: controller}
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	State    string              `json:"state"`
	Listener *types.ListenerInfo `json:"listener,omitempty"`
	Traffic  types.TrafficStats  `json:"traffic"`
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	response := StatusResponse{
		State:    h.controller.State().String(),
		Listener: h.controller.GetListenerInfo(),
		Traffic:  h.controller.Stats(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
