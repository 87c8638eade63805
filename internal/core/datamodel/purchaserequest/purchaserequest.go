package purchaserequest

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type PurchaseRequest struct {
	ID                   string           `gorm:"primaryKey;type:varchar(64)"`
	PRNumber             string           `gorm:"column:pr_number;uniqueIndex"`
	OrganizationID       string           `gorm:"column:organization_id;index;not null"`
	Description          string           `gorm:"column:description"`
	EstimatedAmount      decimal.Decimal  `gorm:"column:estimated_amount;type:numeric(20,4);not null"`
	Currency             string           `gorm:"column:currency;type:varchar(3);not null"`
	Status               string           `gorm:"column:status;index;not null"`
	Priority             string           `gorm:"column:priority"`
	RequestorID          string           `gorm:"column:requestor_id;not null"`
	RequestorEmail       string           `gorm:"column:requestor_email"`
	ApproverID           *string          `gorm:"column:approver_id"`
	SecondApproverID     *string          `gorm:"column:second_approver_id"`
	RequiresDualApproval bool             `gorm:"column:requires_dual_approval;default:false"`
	PreferredVendorID    *string          `gorm:"column:preferred_vendor_id"`
	Notes                string           `gorm:"column:notes"`
	AdjudicationNotes    string           `gorm:"column:adjudication_notes"`
	Workflow             ApprovalWorkflow `gorm:"embedded;embeddedPrefix:workflow_"`
	Quotes               []Quote          `gorm:"foreignKey:PurchaseRequestID"`
	CreatedAt            time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (PurchaseRequest) TableName() string {
	return "purchase_requests"
}

type ApprovalWorkflow struct {
	CurrentApproverID             *string                           `gorm:"column:current_approver_id"`
	SecondApproverID              *string                           `gorm:"column:second_approver_id"`
	FirstApproverSelectedQuoteID  *string                           `gorm:"column:first_selected_quote_id"`
	SecondApproverSelectedQuoteID *string                           `gorm:"column:second_selected_quote_id"`
	FirstApprovalComplete         bool                              `gorm:"column:first_approval_complete;default:false"`
	SecondApprovalComplete        bool                              `gorm:"column:second_approval_complete;default:false"`
	QuoteConflict                 bool                              `gorm:"column:quote_conflict;default:false;index"`
	History                       datatypes.JSONSlice[HistoryEntry] `gorm:"column:history"`
}

type HistoryEntry struct {
	Step      string    `json:"step"`
	Status    string    `json:"status"`
	ActorID   string    `json:"actor_id"`
	QuoteID   string    `json:"quote_id,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Quote struct {
	ID                string                          `gorm:"primaryKey;type:varchar(64)"`
	PurchaseRequestID string                          `gorm:"column:purchase_request_id;index;not null"`
	VendorID          string                          `gorm:"column:vendor_id"`
	VendorName        string                          `gorm:"column:vendor_name"`
	Amount            decimal.Decimal                 `gorm:"column:amount;type:numeric(20,4);not null"`
	Currency          string                          `gorm:"column:currency;type:varchar(3);not null"`
	Attachments       datatypes.JSONSlice[Attachment] `gorm:"column:attachments"`
	SubmittedBy       string                          `gorm:"column:submitted_by"`
	SubmittedAt       time.Time                       `gorm:"column:submitted_at"`
	Notes             string                          `gorm:"column:notes"`
}

func (Quote) TableName() string {
	return "quotes"
}

type Attachment struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}
