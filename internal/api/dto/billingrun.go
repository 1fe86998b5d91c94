package dto

import (
	"github.com/netbill/netbill/internal/validator"
)

// BillingRunRequest bills a set of users for one period against a plan
type BillingRunRequest struct {
	PlanID  string   `json:"plan_id" validate:"required"`
	Period  string   `json:"period" validate:"required"`
	UserIDs []string `json:"user_ids" validate:"required,min=1"`
}

func (r *BillingRunRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// BillingRunItem is the outcome of billing one user
type BillingRunItem struct {
	UserID    string `json:"user_id"`
	InvoiceID string `json:"invoice_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// BillingRunResponse summarizes a billing run
type BillingRunResponse struct {
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Items     []BillingRunItem `json:"items"`
}
