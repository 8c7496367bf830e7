package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/honeynil/BankTransactionService/internal/infrastructure/observability"
	"github.com/honeynil/BankTransactionService/internal/models"
	service "github.com/honeynil/BankTransactionService/internal/services"
	pkgerrors "github.com/honeynil/BankTransactionService/pkg/errors"
)

const (
	transactionError   = "Transaction Exception"
	systemError        = "System Exception"
	systemErrorMessage = "System Internal Exception, please try again later"

	maxBodyBytes = 1 << 20
)

type Handler struct {
	service service.TransactionService
}

func NewHandler(s service.TransactionService) *Handler {
	return &Handler{service: s}
}

type errorResponse struct {
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/bank/transactions", h.CreateTransaction).Methods(http.MethodPost)
	r.HandleFunc("/bank/transactions", h.GetTransactions).Methods(http.MethodGet)
	r.HandleFunc("/bank/transactions/{id}", h.GetTransaction).Methods(http.MethodGet)
	r.HandleFunc("/bank/transactions/{id}", h.UpdateTransaction).Methods(http.MethodPut)
	r.HandleFunc("/bank/transactions/{id}", h.DeleteTransaction).Methods(http.MethodDelete)
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
}

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp, err := h.service.CreateTransaction(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.GetTransactionByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, err := intParam(query.Get("page"), "page", 0)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	size, err := intParam(query.Get("size"), "size", service.DefaultPageSize)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp, err := h.service.GetTransactions(r.Context(), page, size)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp, err := h.service.UpdateTransaction(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteTransaction(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeError maps domain errors to 400 with their message. Everything else
// is logged in full and answered with a generic 500.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	logger := observability.WithContext(r.Context(), "method", r.Method, "path", r.URL.Path)

	resp := errorResponse{Timestamp: time.Now().UTC()}
	if pkgerrors.IsDomain(err) {
		logger.Warn("request rejected", "error", err)
		resp.Status = http.StatusBadRequest
		resp.Error = transactionError
		resp.Message = err.Error()
	} else {
		logger.Error("request failed", "error", err)
		resp.Status = http.StatusInternalServerError
		resp.Error = systemError
		resp.Message = systemErrorMessage
	}
	writeJSON(w, resp.Status, resp)
}

// WriteInternalError answers with the generic 500 envelope. The router's
// recover middleware uses it.
func WriteInternalError(w http.ResponseWriter) {
	writeJSON(w, http.StatusInternalServerError, errorResponse{
		Status:    http.StatusInternalServerError,
		Error:     systemError,
		Message:   systemErrorMessage,
		Timestamp: time.Now().UTC(),
	})
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (*models.TransactionRequest, error) {
	var req models.TransactionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, pkgerrors.NilTransaction()
		}
		return nil, pkgerrors.MalformedRequest(err.Error())
	}
	return &req, nil
}

func intParam(raw, name string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.MalformedRequest(name + " must be an integer")
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("failed to write response body", "status", status, "error", err)
	}
}
