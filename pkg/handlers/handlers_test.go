package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/chris/pi-settlement/pkg/api"
	"github.com/chris/pi-settlement/pkg/handlers/mocks"
	"github.com/chris/pi-settlement/pkg/models"
	"github.com/chris/pi-settlement/pkg/settlement"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newRouter(service Service) http.Handler {
	router := chi.NewRouter()
	api.HandlerFromMux(NewApiHandler(service, nil), router)
	return router
}

func TestRoutes(t *testing.T) {
	t.Run("Health", func(t *testing.T) {
		rr := httptest.NewRecorder()
		newRouter(mocks.NewService(t)).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		var resp api.HealthResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "ok", resp.Status)
	})

	t.Run("Complete Payment", func(t *testing.T) {
		service := mocks.NewService(t)
		service.On("Settle", mock.Anything, mock.MatchedBy(func(req settlement.Request) bool {
			return req.PaymentID == "pay-1" && req.TxID == "tx-1"
		})).Return(&models.Settlement{
			PaymentId: "pay-1", Txid: "tx-1", Purpose: models.PurposeOrder, Status: models.SETTLED, Amount: decimal.NewFromInt(1),
		}, nil).Once()

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/complete-payment", strings.NewReader(`{"paymentId":"pay-1","txid":"tx-1"}`))
		newRouter(service).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("Settlement Path Parameter", func(t *testing.T) {
		service := mocks.NewService(t)
		service.On("Settlement", mock.Anything, "pay-9").Return(&models.Settlement{
			PaymentId: "pay-9", Txid: "tx-9", Purpose: models.PurposeOrder, Status: models.REJECTED, Error: "Transaction was not successful",
		}, nil).Once()

		rr := httptest.NewRecorder()
		newRouter(service).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/settlements/pay-9", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		var resp api.SettlementResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.Equal(t, api.SettlementResponseStatusRejected, resp.Status)
	})

	t.Run("Wrong Method", func(t *testing.T) {
		rr := httptest.NewRecorder()
		newRouter(mocks.NewService(t)).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/complete-payment", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	})
}
