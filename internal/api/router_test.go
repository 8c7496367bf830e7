package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/honeynil/BankTransactionService/internal/infrastructure/observability"
	"github.com/honeynil/BankTransactionService/internal/models"
	servicemocks "github.com/honeynil/BankTransactionService/internal/services/mocks"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func requestCount(method, endpoint, status string) float64 {
	return testutil.ToFloat64(observability.RequestCounter.WithLabelValues(method, endpoint, status))
}

func TestSetupRouter_RequestID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	router := SetupRouter(servicemocks.NewMockTransactionService(ctrl))

	t.Run("generated when absent", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, w.Header().Get(requestIDHeader), 36)
	})

	t.Run("propagated when present", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(requestIDHeader, "req-42")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "req-42", w.Header().Get(requestIDHeader))
	})
}

func TestSetupRouter_RecoversPanics(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := servicemocks.NewMockTransactionService(ctrl)
	svc.EXPECT().GetTransactionByID(gomock.Any(), "tx-1").DoAndReturn(
		func(context.Context, string) (*models.TransactionResponse, error) {
			panic("boom")
		})

	w := httptest.NewRecorder()
	SetupRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bank/transactions/tx-1", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "System Internal Exception, please try again later")
	assert.NotContains(t, w.Body.String(), "boom")
}

func TestSetupRouter_Metrics(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	w := httptest.NewRecorder()
	SetupRouter(servicemocks.NewMockTransactionService(ctrl)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSetupRouter_UnknownRoute(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	w := httptest.NewRecorder()
	SetupRouter(servicemocks.NewMockTransactionService(ctrl)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bank/accounts", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSetupRouter_RequestMetrics(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := servicemocks.NewMockTransactionService(ctrl)
	router := SetupRouter(svc)

	t.Run("matched route is labelled with its template", func(t *testing.T) {
		svc.EXPECT().DeleteTransaction(gomock.Any(), "tx-9").Return(nil)
		before := requestCount(http.MethodDelete, "/bank/transactions/{id}", "204")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/bank/transactions/tx-9", nil))

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, before+1, requestCount(http.MethodDelete, "/bank/transactions/{id}", "204"))
	})

	t.Run("unknown route is counted as unmatched", func(t *testing.T) {
		before := requestCount(http.MethodGet, unmatchedRoute, "404")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bank/accounts", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, before+1, requestCount(http.MethodGet, unmatchedRoute, "404"))
	})

	t.Run("wrong method is counted as unmatched", func(t *testing.T) {
		before := requestCount(http.MethodPatch, unmatchedRoute, "405")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/bank/transactions/tx-1", nil))

		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
		assert.Equal(t, before+1, requestCount(http.MethodPatch, unmatchedRoute, "405"))
	})

	t.Run("recovered panic is counted as a 500", func(t *testing.T) {
		svc.EXPECT().GetTransactionByID(gomock.Any(), "tx-7").DoAndReturn(
			func(context.Context, string) (*models.TransactionResponse, error) {
				panic("boom")
			})
		before := requestCount(http.MethodGet, "/bank/transactions/{id}", "500")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bank/transactions/tx-7", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, before+1, requestCount(http.MethodGet, "/bank/transactions/{id}", "500"))
	})
}
