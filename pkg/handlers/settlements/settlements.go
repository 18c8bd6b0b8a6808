package settlements

import (
	"context"
	"errors"
	"net/http"

	"github.com/chris/pi-settlement/pkg/handlers/httpio"
	"github.com/chris/pi-settlement/pkg/mapping"
	"github.com/chris/pi-settlement/pkg/models"
	"github.com/chris/pi-settlement/pkg/storage"
)

// SettlementReader reads settlement records.
type SettlementReader interface {
	Settlement(ctx context.Context, paymentID string) (*models.Settlement, error)
}

// SettlementsHandler holds the dependencies for settlement lookups.
type SettlementsHandler struct {
	Reader SettlementReader
}

// NewSettlementsHandler creates a new SettlementsHandler.
func NewSettlementsHandler(reader SettlementReader) *SettlementsHandler {
	return &SettlementsHandler{Reader: reader}
}

// GetSettlement returns the settlement record of a payment.
func (h *SettlementsHandler) GetSettlement(w http.ResponseWriter, r *http.Request, paymentId string) {
	rec, err := h.Reader.Settlement(r.Context(), paymentId)
	if errors.Is(err, storage.ErrNotFound) {
		httpio.Error(w, http.StatusNotFound, "Settlement not found", paymentId)
		return
	}
	if err != nil {
		status, resp := httpio.ErrorBody(err)
		httpio.JSON(w, status, resp)
		return
	}

	httpio.JSON(w, http.StatusOK, mapping.ToApiSettlement(rec))
}
