package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Erikli15/hamburger-machine/internal/service"
	"github.com/gorilla/mux"
)

// DashboardHandler exposes the read-only operator views: queue contents,
// stock levels, the transaction feed, open procurement requests, faults
// and consumption reporting.
type DashboardHandler struct {
	orders  service.OrderService
	ledger  service.LedgerService
	reorder service.ReorderService
}

func NewDashboardHandler(orders service.OrderService, ledger service.LedgerService, reorder service.ReorderService) *DashboardHandler {
	return &DashboardHandler{
		orders:  orders,
		ledger:  ledger,
		reorder: reorder,
	}
}

func (h *DashboardHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/dashboard/queue", h.GetQueue).Methods(http.MethodGet)
	router.HandleFunc("/dashboard/stock", h.GetStockLevels).Methods(http.MethodGet)
	router.HandleFunc("/dashboard/transactions", h.GetTransactions).Methods(http.MethodGet)
	router.HandleFunc("/dashboard/auto-orders", h.GetAutoOrders).Methods(http.MethodGet)
	router.HandleFunc("/dashboard/faults", h.GetFaults).Methods(http.MethodGet)
	router.HandleFunc("/dashboard/consumption", h.GetConsumption).Methods(http.MethodGet)
}

func (h *DashboardHandler) GetQueue(w http.ResponseWriter, r *http.Request) {
	entries, err := h.orders.QueueContents(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, entries)
}

func (h *DashboardHandler) GetStockLevels(w http.ResponseWriter, r *http.Request) {
	levels, err := h.ledger.StockLevels(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, levels)
}

func (h *DashboardHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil {
			limit = l
		}
	}

	transactions, err := h.ledger.RecentTransactions(r.Context(), limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, transactions)
}

func (h *DashboardHandler) GetAutoOrders(w http.ResponseWriter, r *http.Request) {
	requests, err := h.reorder.OpenRequests(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, requests)
}

func (h *DashboardHandler) GetFaults(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil {
			limit = l
		}
	}

	faults, err := h.orders.RecentFaults(r.Context(), limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, faults)
}

func (h *DashboardHandler) GetConsumption(w http.ResponseWriter, r *http.Request) {
	days := 7
	if daysStr := r.URL.Query().Get("days"); daysStr != "" {
		if d, err := strconv.Atoi(daysStr); err == nil && d > 0 {
			days = d
		}
	}

	since := time.Now().AddDate(0, 0, -days)
	consumption, err := h.ledger.ConsumptionSince(r.Context(), since)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"since":       since,
		"days":        days,
		"consumption": consumption,
	})
}
