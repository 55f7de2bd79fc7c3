package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Erikli15/hamburger-machine/internal/models"
	"github.com/Erikli15/hamburger-machine/internal/service"
	"github.com/gorilla/mux"
)

// AdminHandler exposes the manual stock operations and procurement
// request advancement. All routes require an operator token.
type AdminHandler struct {
	ledger  service.LedgerService
	reorder service.ReorderService
}

func NewAdminHandler(ledger service.LedgerService, reorder service.ReorderService) *AdminHandler {
	return &AdminHandler{
		ledger:  ledger,
		reorder: reorder,
	}
}

func (h *AdminHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/ingredients/{id}/restock", h.Restock).Methods(http.MethodPost)
	router.HandleFunc("/ingredients/{id}/waste", h.RecordWaste).Methods(http.MethodPost)
	router.HandleFunc("/ingredients/{id}/adjust", h.Adjust).Methods(http.MethodPost)
	router.HandleFunc("/auto-orders/{id}", h.AdvanceAutoOrder).Methods(http.MethodPut)
	router.HandleFunc("/sweep-expired", h.SweepExpired).Methods(http.MethodPost)
}

func (h *AdminHandler) Restock(w http.ResponseWriter, r *http.Request) {
	h.applyStockChange(w, r, h.ledger.Restock)
}

func (h *AdminHandler) RecordWaste(w http.ResponseWriter, r *http.Request) {
	h.applyStockChange(w, r, h.ledger.RecordWaste)
}

func (h *AdminHandler) applyStockChange(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, ingredientID string, quantity int, actor, reason string) (*models.InventoryTransaction, error)) {
	vars := mux.Vars(r)
	ingredientID := vars["id"]

	var req models.StockChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := req.Validate(); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	txn, err := apply(r.Context(), ingredientID, req.Quantity, req.Actor, req.Reason)
	if err != nil {
		respondStockError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, txn)
}

func (h *AdminHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	ingredientID := vars["id"]

	var req struct {
		Delta  int    `json:"delta"`
		Reason string `json:"reason"`
		Actor  string `json:"actor"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if req.Delta == 0 {
		respondWithError(w, http.StatusBadRequest, "delta must be non-zero")
		return
	}

	txn, err := h.ledger.Adjust(r.Context(), ingredientID, req.Delta, req.Actor, req.Reason)
	if err != nil {
		respondStockError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, txn)
}

func (h *AdminHandler) AdvanceAutoOrder(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request ID")
		return
	}

	var req struct {
		Status models.AutoOrderStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.reorder.AdvanceRequest(r.Context(), id, req.Status); err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": string(req.Status)})
}

func (h *AdminHandler) SweepExpired(w http.ResponseWriter, r *http.Request) {
	swept, err := h.ledger.SweepExpired(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]int{"swept": swept})
}

func respondStockError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrUnknownIngredient):
		respondWithError(w, http.StatusNotFound, "Unknown ingredient")
	case errors.Is(err, models.ErrInsufficientStock):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrOverCapacity):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrLedgerContention):
		respondWithError(w, http.StatusServiceUnavailable, "Inventory busy, retry shortly")
	default:
		respondWithError(w, http.StatusInternalServerError, err.Error())
	}
}
