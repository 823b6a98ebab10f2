// Package handlers provides the read-only HTTP status API for Berth.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/berth-cd/berth/domain"
	"github.com/berth-cd/berth/services"
	"github.com/go-chi/chi/v5"
)

// SlotHandlers serves slot status snapshots. Reads do not take the slot
// lock, so a response may trail an in-flight deployment by one transition.
type SlotHandlers struct {
	deployer services.Deployer
}

func NewSlotHandlers(deployer services.Deployer) *SlotHandlers {
	return &SlotHandlers{deployer: deployer}
}

func (h *SlotHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/api/slots", h.listSlots)
	r.Get("/api/slots/{name}", h.getSlot)
	r.Get("/api/slots/{name}/deployments", h.listDeployments)
}

// slotResponse is the wire form of a slot status snapshot. The stored plan
// is omitted because it may embed environment values.
type slotResponse struct {
	Name                string    `json:"name"`
	Phase               string    `json:"phase"`
	CurrentContainerID  *string   `json:"current_container_id"`
	PreviousContainerID *string   `json:"previous_container_id"`
	Image               string    `json:"image,omitempty"`
	LastError           *string   `json:"last_error,omitempty"`
	UpdatedAt           time.Time `json:"updated_at"`
}

type deploymentResponse struct {
	ID        string    `json:"id"`
	Image     string    `json:"image"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toSlotResponse(slot *domain.Slot) slotResponse {
	resp := slotResponse{
		Name:                slot.Name,
		Phase:               slot.Phase.String(),
		CurrentContainerID:  slot.CurrentContainerID,
		PreviousContainerID: slot.PreviousContainerID,
		LastError:           slot.LastError,
		UpdatedAt:           slot.UpdatedAt,
	}
	if slot.LastGoodPlan != nil {
		resp.Image = slot.LastGoodPlan.Image
	}
	return resp
}

func (h *SlotHandlers) listSlots(w http.ResponseWriter, r *http.Request) {
	slots, err := h.deployer.List()
	if err != nil {
		slog.Error("Handler operation failed",
			"layer", "handlers",
			"operation", "list_slots",
			"error", err)
		http.Error(w, "failed to list slots", http.StatusInternalServerError)
		return
	}

	resp := make([]slotResponse, len(slots))
	for i, slot := range slots {
		resp[i] = toSlotResponse(slot)
	}
	writeJSON(w, resp)
}

func (h *SlotHandlers) getSlot(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	slot, err := h.deployer.Status(name)
	if err != nil {
		if errors.Is(err, services.ErrSlotNotFound) {
			http.Error(w, "slot not found", http.StatusNotFound)
			return
		}
		slog.Error("Handler operation failed",
			"layer", "handlers",
			"operation", "get_slot",
			"slot", name,
			"error", err)
		http.Error(w, "failed to get slot", http.StatusInternalServerError)
		return
	}

	writeJSON(w, toSlotResponse(slot))
}

func (h *SlotHandlers) listDeployments(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	deployments, err := h.deployer.History(name)
	if err != nil {
		if errors.Is(err, services.ErrSlotNotFound) {
			http.Error(w, "slot not found", http.StatusNotFound)
			return
		}
		slog.Error("Handler operation failed",
			"layer", "handlers",
			"operation", "list_deployments",
			"slot", name,
			"error", err)
		http.Error(w, "failed to list deployments", http.StatusInternalServerError)
		return
	}

	resp := make([]deploymentResponse, len(deployments))
	for i, d := range deployments {
		resp[i] = deploymentResponse{
			ID:        d.ID.String(),
			Image:     d.Image,
			Status:    d.Status.String(),
			Error:     d.Error,
			CreatedAt: d.CreatedAt,
		}
	}
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}
