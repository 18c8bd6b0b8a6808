package handlers

import (
	"log/slog"
	"net/http"

	"github.com/chris/pi-settlement/pkg/api"
	"github.com/chris/pi-settlement/pkg/handlers/httpio"
	"github.com/chris/pi-settlement/pkg/handlers/payments"
	"github.com/chris/pi-settlement/pkg/handlers/settlements"
)

// Service is the settlement service behind the API.
type Service interface {
	payments.PaymentService
	settlements.SettlementReader
}

// ApiHandler implements the generated server interface.
type ApiHandler struct {
	*payments.PaymentsHandler
	*settlements.SettlementsHandler
}

// NewApiHandler creates a new ApiHandler.
func NewApiHandler(service Service, logger *slog.Logger) *ApiHandler {
	return &ApiHandler{
		PaymentsHandler:    payments.NewPaymentsHandler(service, logger),
		SettlementsHandler: settlements.NewSettlementsHandler(service),
	}
}

// Make sure we conform to the interface
var _ api.ServerInterface = (*ApiHandler)(nil)

// GetHealth reports that the process is serving requests.
func (h *ApiHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	httpio.JSON(w, http.StatusOK, api.HealthResponse{Status: "ok"})
}
