package purchaserequest

import (
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/procurement/internal"
	"github.com/frahmantamala/procurement/internal/core/common/validation"
)

type AttachmentDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

type QuoteDTO struct {
	VendorID    string          `json:"vendor_id"`
	VendorName  string          `json:"vendor_name"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Attachments []AttachmentDTO `json:"attachments,omitempty"`
	Notes       string          `json:"notes,omitempty"`
}

func (dto QuoteDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("vendor_id", dto.VendorID).Required()
	v.Field("amount", dto.Amount).PositiveAmount()
	v.Field("currency", dto.Currency).Required().CurrencyCode()
	return v.Validate()
}

type CreatePurchaseRequestDTO struct {
	Description       string          `json:"description"`
	EstimatedAmount   decimal.Decimal `json:"estimated_amount"`
	Currency          string          `json:"currency"`
	Priority          string          `json:"priority,omitempty"`
	ApproverID        string          `json:"approver_id,omitempty"`
	SecondApproverID  string          `json:"second_approver_id,omitempty"`
	PreferredVendorID string          `json:"preferred_vendor_id,omitempty"`
	Notes             string          `json:"notes,omitempty"`
	Quotes            []QuoteDTO      `json:"quotes,omitempty"`
}

func (dto CreatePurchaseRequestDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("description", dto.Description).Required().MaxLength(2000)
	v.Field("estimated_amount", dto.EstimatedAmount).PositiveAmount()
	v.Field("currency", dto.Currency).Required().CurrencyCode()
	v.Field("priority", dto.Priority).OneOf(string(PriorityLow), string(PriorityMedium), string(PriorityHigh), string(PriorityUrgent))
	if err := v.Validate(); err != nil {
		return err
	}
	for _, q := range dto.Quotes {
		if err := q.Validate(); err != nil {
			return err
		}
	}
	return nil
}

type UpdateStatusDTO struct {
	Status            string `json:"status"`
	Notes             string `json:"notes,omitempty"`
	AdjudicationNotes string `json:"adjudication_notes,omitempty"`
	ApproverID        string `json:"approver_id,omitempty"`
	SecondApproverID  string `json:"second_approver_id,omitempty"`
}

func (dto UpdateStatusDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("status", dto.Status).Required().Custom(func(value interface{}) *internal.AppError {
		if _, ok := ParseStatus(dto.Status); !ok && dto.Status != "" {
			return internal.NewValidationFieldError("status", "status is not a known purchase request status", internal.ErrCodeValidationFailed)
		}
		return nil
	})
	return v.Validate()
}

type ApproveDTO struct {
	QuoteID           string `json:"quote_id,omitempty"`
	Notes             string `json:"notes,omitempty"`
	AdjudicationNotes string `json:"adjudication_notes,omitempty"`
}

type ResolveQuoteConflictDTO struct {
	QuoteID string `json:"quote_id"`
	Notes   string `json:"notes,omitempty"`
}

func (dto ResolveQuoteConflictDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("quote_id", dto.QuoteID).Required()
	return v.Validate()
}

type ValidateDTO struct {
	TargetStatus string `json:"target_status"`
}
