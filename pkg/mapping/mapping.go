package mapping

import (
	"strings"

	"github.com/chris/pi-settlement/pkg/api"
	"github.com/chris/pi-settlement/pkg/models"
	"github.com/chris/pi-settlement/pkg/settlement"
)

// ToApiSettlement converts a domain Settlement to an API SettlementResponse.
func ToApiSettlement(s *models.Settlement) *api.SettlementResponse {
	resp := &api.SettlementResponse{
		Success:        s.Status == models.SETTLED,
		PaymentId:      s.PaymentId,
		Txid:           s.Txid,
		Purpose:        api.SettlementResponsePurpose(s.Purpose),
		Status:         api.SettlementResponseStatus(s.Status),
		Amount:         s.Amount,
		OrderId:        optional(s.OrderId),
		SubscriptionId: optional(s.SubscriptionId),
		TransactionId:  optional(s.TransactionId),
		EarningId:      optional(s.EarningId),
		Error:          optional(s.Error),
		ExpiresAt:      s.ExpiresAt,
		MerchantAmount: s.MerchantAmount,
		PlatformFee:    s.PlatformFee,
		Verification:   ToApiVerification(s.Verification),
	}
	if s.Replayed {
		replayed := true
		resp.Replayed = &replayed
	}
	if len(s.SupersededIds) > 0 {
		ids := append([]string(nil), s.SupersededIds...)
		resp.SupersededSubscriptionIds = &ids
	}
	if !s.CreatedAt.IsZero() {
		createdAt := s.CreatedAt
		resp.CreatedAt = &createdAt
	}
	return resp
}

// ToApiVerification converts a domain VerificationResult to its API model. Nil stays nil.
func ToApiVerification(v *models.VerificationResult) *api.VerificationResult {
	if v == nil {
		return nil
	}
	return &api.VerificationResult{
		Verified:        v.Verified,
		TransactionHash: v.TransactionHash,
		Amount:          v.Amount,
		Recipient:       optional(v.Recipient),
		Sender:          optional(v.Sender),
		Memo:            v.Memo,
		Timestamp:       v.Timestamp,
		Reason:          optional(string(v.Reason)),
		Error:           optional(v.Error),
	}
}

// ToApiVerifyResponse converts a successful verification outcome.
func ToApiVerifyResponse(out *settlement.VerifyOutcome) *api.VerifyTransactionResponse {
	resp := &api.VerifyTransactionResponse{
		Verified: out.Verified,
		OrderId:  optional(out.OrderID),
	}
	if t := ToApiVerification(out.Transaction); t != nil {
		resp.Transaction = *t
	}
	if out.OrderID != "" {
		released := out.AutoReleased
		resp.AutoReleased = &released
	}
	return resp
}

// ToApiError converts a settlement error to the API error body.
func ToApiError(e *settlement.Error) *api.ErrorResponse {
	code := string(e.Kind)
	resp := &api.ErrorResponse{
		Error:       e.Message,
		Details:     optional(e.Details),
		Code:        &code,
		Transaction: ToApiVerification(e.Verification),
	}
	if e.Verification != nil || e.Kind == settlement.KindVerificationFailed || e.Kind == settlement.KindRecordingFailed {
		verified := e.Verified()
		resp.Verified = &verified
	}
	if e.Kind == settlement.KindRecordingFailed && e.Settlement != nil {
		resp.Settlement = ToApiSettlement(e.Settlement)
	}
	return resp
}

// ToDomainSettleRequest converts an API CompletePaymentRequest to a settlement Request.
func ToDomainSettleRequest(req *api.CompletePaymentRequest, accessToken string) settlement.Request {
	out := settlement.Request{
		PaymentID:   req.PaymentId,
		TxID:        req.Txid,
		AccessToken: accessToken,
		PlanType:    value(req.PlanType),
		StoreID:     value(req.StoreId),
	}
	if out.AccessToken == "" {
		out.AccessToken = value(req.AccessToken)
	}
	if req.Customer != nil {
		out.Customer = &models.Customer{
			Name:    req.Customer.Name,
			Email:   value(req.Customer.Email),
			Phone:   value(req.Customer.Phone),
			Address: value(req.Customer.Address),
		}
	}
	if req.Items != nil {
		out.Items = make([]models.OrderItem, len(*req.Items))
		for i, item := range *req.Items {
			out.Items[i] = models.OrderItem{
				ProductID: item.ProductId,
				Name:      item.Name,
				Quantity:  item.Quantity,
				Price:     item.Price,
			}
		}
	}
	return out
}

// ToDomainVerifyRequest converts an API VerifyTransactionRequest to a settlement VerifyRequest.
func ToDomainVerifyRequest(req *api.VerifyTransactionRequest) settlement.VerifyRequest {
	out := settlement.VerifyRequest{
		TransactionHash:   req.TransactionHash,
		OrderID:           strings.TrimSpace(value(req.OrderId)),
		ExpectedAmount:    req.ExpectedAmount,
		ExpectedRecipient: value(req.ExpectedRecipient),
		ExpectedMemo:      value(req.ExpectedMemo),
	}
	if req.AutoRelease != nil {
		out.AutoRelease = *req.AutoRelease
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
