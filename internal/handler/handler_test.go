package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/gorilla/mux"
	"github.com/honeynil/BankTransactionService/internal/infrastructure/kafka"
	"github.com/honeynil/BankTransactionService/internal/infrastructure/observability"
	"github.com/honeynil/BankTransactionService/internal/models"
	"github.com/honeynil/BankTransactionService/internal/repository/memory"
	service "github.com/honeynil/BankTransactionService/internal/services"
	servicemocks "github.com/honeynil/BankTransactionService/internal/services/mocks"
	pkgerrors "github.com/honeynil/BankTransactionService/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(svc service.TransactionService) *mux.Router {
	r := mux.NewRouter()
	NewHandler(svc).RegisterRoutes(r)
	return r
}

func doRequest(router http.Handler, method, url, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, url, nil)
	} else {
		req = httptest.NewRequest(method, url, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

var testResponse = &models.TransactionResponse{
	ID:                   "tx-1",
	Amount:               100,
	Currency:             "USD",
	TransactionType:      "DEPOSIT",
	TransactionReference: "REF001",
	Timestamp:            time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
}

func TestHandler_CreateTransaction(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := servicemocks.NewMockTransactionService(ctrl)
	router := newTestRouter(svc)

	t.Run("created", func(t *testing.T) {
		want := &models.TransactionRequest{Amount: 100, Currency: "USD", TransactionType: "DEPOSIT", TransactionReference: "REF001"}
		svc.EXPECT().CreateTransaction(gomock.Any(), want).Return(testResponse, nil)

		w := doRequest(router, http.MethodPost, "/bank/transactions",
			`{"amount":100,"currency":"USD","transactionType":"DEPOSIT","transactionReference":"REF001"}`)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		var got models.TransactionResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, *testResponse, got)
	})

	t.Run("validation error", func(t *testing.T) {
		svc.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).Return(nil, pkgerrors.InvalidAmount())

		w := doRequest(router, http.MethodPost, "/bank/transactions", `{"amount":0,"currency":"USD","transactionType":"DEPOSIT"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeError(t, w)
		assert.Equal(t, http.StatusBadRequest, resp.Status)
		assert.Equal(t, "Transaction Exception", resp.Error)
		assert.Equal(t, "Invalid transaction amount, must be over 0", resp.Message)
		assert.False(t, resp.Timestamp.IsZero())
	})

	t.Run("malformed json never reaches the service", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/bank/transactions", `{"amount":`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Transaction Exception", decodeError(t, w).Error)
	})

	t.Run("wrong field type", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/bank/transactions", `{"amount":"lots","currency":"USD"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("empty body", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/bank/transactions", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Transaction request cannot be empty.", decodeError(t, w).Message)
	})
}

func TestHandler_GetTransaction(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := servicemocks.NewMockTransactionService(ctrl)
	router := newTestRouter(svc)

	t.Run("found", func(t *testing.T) {
		svc.EXPECT().GetTransactionByID(gomock.Any(), "tx-1").Return(testResponse, nil)

		w := doRequest(router, http.MethodGet, "/bank/transactions/tx-1", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"id":"tx-1"`)
	})

	t.Run("not found is a bad request", func(t *testing.T) {
		svc.EXPECT().GetTransactionByID(gomock.Any(), "missing").Return(nil, pkgerrors.NotFound("missing"))

		w := doRequest(router, http.MethodGet, "/bank/transactions/missing", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Not found transaction ID: missing", decodeError(t, w).Message)
	})

	t.Run("internal error hides detail", func(t *testing.T) {
		svc.EXPECT().GetTransactionByID(gomock.Any(), "tx-2").Return(nil, errors.New("index corrupted at slot 7"))

		w := doRequest(router, http.MethodGet, "/bank/transactions/tx-2", "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		resp := decodeError(t, w)
		assert.Equal(t, "System Exception", resp.Error)
		assert.Equal(t, "System Internal Exception, please try again later", resp.Message)
		assert.NotContains(t, w.Body.String(), "slot 7")
	})
}

func TestHandler_GetTransactions(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := servicemocks.NewMockTransactionService(ctrl)
	router := newTestRouter(svc)

	t.Run("defaults", func(t *testing.T) {
		svc.EXPECT().GetTransactions(gomock.Any(), 0, 10).Return(models.NewPageResponse(nil, 0, 10, 0), nil)

		w := doRequest(router, http.MethodGet, "/bank/transactions", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"content":[]`)
	})

	t.Run("explicit page and size", func(t *testing.T) {
		svc.EXPECT().GetTransactions(gomock.Any(), 2, 5).Return(models.NewPageResponse(nil, 2, 5, 0), nil)

		w := doRequest(router, http.MethodGet, "/bank/transactions?page=2&size=5", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("service rejects size", func(t *testing.T) {
		svc.EXPECT().GetTransactions(gomock.Any(), 0, 101).Return(nil, pkgerrors.InvalidPageSize(101))

		w := doRequest(router, http.MethodGet, "/bank/transactions?size=101", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	for _, query := range []string{"page=abc", "size=1.5", "page=0&size=ten"} {
		t.Run("non-integer "+query, func(t *testing.T) {
			w := doRequest(router, http.MethodGet, "/bank/transactions?"+query, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "Transaction Exception", decodeError(t, w).Error)
		})
	}
}

func TestHandler_UpdateAndDelete(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := servicemocks.NewMockTransactionService(ctrl)
	router := newTestRouter(svc)

	t.Run("update", func(t *testing.T) {
		svc.EXPECT().UpdateTransaction(gomock.Any(), "tx-1", gomock.Any()).Return(testResponse, nil)

		w := doRequest(router, http.MethodPut, "/bank/transactions/tx-1", `{"amount":100,"currency":"USD","transactionType":"DEPOSIT"}`)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("delete", func(t *testing.T) {
		svc.EXPECT().DeleteTransaction(gomock.Any(), "tx-1").Return(nil)

		w := doRequest(router, http.MethodDelete, "/bank/transactions/tx-1", "")
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
	})

	t.Run("delete invariant violation", func(t *testing.T) {
		svc.EXPECT().DeleteTransaction(gomock.Any(), "tx-2").Return(pkgerrors.InvariantViolation("transaction delete failed for ID: %s", "tx-2"))

		w := doRequest(router, http.MethodDelete, "/bank/transactions/tx-2", "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "tx-2")
	})
}

func TestHandler_Health(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	router := newTestRouter(servicemocks.NewMockTransactionService(ctrl))

	w := doRequest(router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestHandler_ReferenceScenario(t *testing.T) {
	svc := service.NewTransactionService(memory.NewTransactionRepository(), kafka.NopProducer{})
	router := newTestRouter(svc)
	body := `{"amount":100,"currency":"USD","transactionType":"DEPOSIT","transactionReference":"REF001"}`

	w := doRequest(router, http.MethodPost, "/bank/transactions", body)
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.TransactionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 100.0, created.Amount)
	assert.Equal(t, "USD", created.Currency)

	w = doRequest(router, http.MethodPost, "/bank/transactions", body)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w).Message, "REF001")

	w = doRequest(router, http.MethodGet, "/bank/transactions?page=0&size=10", "")
	require.Equal(t, http.StatusOK, w.Code)
	var page models.PageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Len(t, page.Content, 1)
	assert.Equal(t, int64(1), page.TotalElements)
	assert.Equal(t, 1, page.TotalPages)
	assert.True(t, page.First)
	assert.True(t, page.Last)

	w = doRequest(router, http.MethodDelete, "/bank/transactions/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = doRequest(router, http.MethodDelete, "/bank/transactions/"+created.ID, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type brokenWriter struct {
	*httptest.ResponseRecorder
}

func (brokenWriter) Write([]byte) (int, error) {
	return 0, errors.New("connection reset by peer")
}

func TestWriteJSON_LogsEncodeFailure(t *testing.T) {
	var logs bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(observability.NewLogger(&logs, "debug"))
	defer slog.SetDefault(previous)

	w := brokenWriter{httptest.NewRecorder()}
	writeJSON(w, http.StatusOK, testResponse)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, logs.String(), "failed to write response body")
	assert.Contains(t, logs.String(), "connection reset by peer")
}
