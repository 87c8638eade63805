package purchaserequest

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	prDatamodel "github.com/frahmantamala/procurement/internal/core/datamodel/purchaserequest"
)

type Status string

const (
	StatusDraft            Status = "DRAFT"
	StatusSubmitted        Status = "SUBMITTED"
	StatusResubmitted      Status = "RESUBMITTED"
	StatusInQueue          Status = "IN_QUEUE"
	StatusPendingApproval  Status = "PENDING_APPROVAL"
	StatusApproved         Status = "APPROVED"
	StatusOrdered          Status = "ORDERED"
	StatusCompleted        Status = "COMPLETED"
	StatusRevisionRequired Status = "REVISION_REQUIRED"
	StatusCanceled         Status = "CANCELED"
	StatusRejected         Status = "REJECTED"
)

var AllStatuses = []Status{
	StatusDraft, StatusSubmitted, StatusResubmitted, StatusInQueue, StatusPendingApproval,
	StatusApproved, StatusOrdered, StatusCompleted, StatusRevisionRequired, StatusCanceled, StatusRejected,
}

func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range AllStatuses {
		if st == known {
			return st, true
		}
	}
	return "", false
}

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCanceled || s == StatusRejected
}

// allowedTransitions lists legal status moves. It is independent of which
// moves produce notifications.
var allowedTransitions = map[Status][]Status{
	StatusDraft:            {StatusSubmitted, StatusCanceled},
	StatusSubmitted:        {StatusInQueue, StatusPendingApproval, StatusRevisionRequired, StatusRejected, StatusCanceled},
	StatusResubmitted:      {StatusInQueue, StatusPendingApproval, StatusRevisionRequired, StatusRejected, StatusCanceled},
	StatusInQueue:          {StatusPendingApproval, StatusRevisionRequired, StatusRejected, StatusCanceled},
	StatusPendingApproval:  {StatusApproved, StatusRevisionRequired, StatusRejected, StatusCanceled},
	StatusApproved:         {StatusOrdered, StatusCanceled},
	StatusOrdered:          {StatusCompleted},
	StatusRevisionRequired: {StatusResubmitted, StatusSubmitted, StatusInQueue, StatusPendingApproval, StatusRejected, StatusCanceled},
}

func AllowedTransition(from, to Status) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

type Attachment struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

type Quote struct {
	ID          string          `json:"id"`
	VendorID    string          `json:"vendor_id"`
	VendorName  string          `json:"vendor_name"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Attachments []Attachment    `json:"attachments"`
	SubmittedBy string          `json:"submitted_by"`
	SubmittedAt time.Time       `json:"submitted_at"`
	Notes       string          `json:"notes,omitempty"`
}

type HistoryEntry struct {
	Step      string    `json:"step"`
	Status    Status    `json:"status"`
	ActorID   string    `json:"actor_id"`
	QuoteID   string    `json:"quote_id,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	StepStatusChange   = "status_change"
	StepFirstApproval  = "first_approval"
	StepSecondApproval = "second_approval"
	StepQuoteConflict  = "quote_conflict"
	StepQuoteReselect  = "quote_reselected"
)

type ApprovalWorkflow struct {
	CurrentApproverID      string         `json:"current_approver_id,omitempty"`
	SecondApproverID       string         `json:"second_approver_id,omitempty"`
	FirstSelectedQuoteID   string         `json:"first_selected_quote_id,omitempty"`
	SecondSelectedQuoteID  string         `json:"second_selected_quote_id,omitempty"`
	FirstApprovalComplete  bool           `json:"first_approval_complete"`
	SecondApprovalComplete bool           `json:"second_approval_complete"`
	QuoteConflict          bool           `json:"quote_conflict"`
	History                []HistoryEntry `json:"history"`
}

// SelectionsDiverge reports both approvals complete with different quotes.
func (w *ApprovalWorkflow) SelectionsDiverge() bool {
	return w.FirstApprovalComplete && w.SecondApprovalComplete &&
		w.FirstSelectedQuoteID != w.SecondSelectedQuoteID
}

func (w *ApprovalWorkflow) Reset() {
	w.FirstSelectedQuoteID = ""
	w.SecondSelectedQuoteID = ""
	w.FirstApprovalComplete = false
	w.SecondApprovalComplete = false
	w.QuoteConflict = false
}

type PurchaseRequest struct {
	ID                   string           `json:"id"`
	PRNumber             string           `json:"pr_number"`
	OrganizationID       string           `json:"organization_id"`
	Description          string           `json:"description"`
	EstimatedAmount      decimal.Decimal  `json:"estimated_amount"`
	Currency             string           `json:"currency"`
	Status               Status           `json:"status"`
	Priority             Priority         `json:"priority,omitempty"`
	RequestorID          string           `json:"requestor_id"`
	RequestorEmail       string           `json:"requestor_email,omitempty"`
	ApproverID           string           `json:"approver_id,omitempty"`
	SecondApproverID     string           `json:"second_approver_id,omitempty"`
	RequiresDualApproval bool             `json:"requires_dual_approval"`
	PreferredVendorID    string           `json:"preferred_vendor_id,omitempty"`
	Notes                string           `json:"notes,omitempty"`
	AdjudicationNotes    string           `json:"adjudication_notes,omitempty"`
	Quotes               []Quote          `json:"quotes"`
	Workflow             ApprovalWorkflow `json:"approval_workflow"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

// ApproverIDs returns the assigned approvers, first approver first.
func (pr *PurchaseRequest) ApproverIDs() []string {
	var ids []string
	if pr.ApproverID != "" {
		ids = append(ids, pr.ApproverID)
	}
	if pr.SecondApproverID != "" && pr.SecondApproverID != pr.ApproverID {
		ids = append(ids, pr.SecondApproverID)
	}
	return ids
}

func (pr *PurchaseRequest) IsAssignedApprover(userID string) bool {
	for _, id := range pr.ApproverIDs() {
		if id == userID {
			return true
		}
	}
	return false
}

func (pr *PurchaseRequest) QuoteByID(id string) (*Quote, bool) {
	for i := range pr.Quotes {
		if pr.Quotes[i].ID == id {
			return &pr.Quotes[i], true
		}
	}
	return nil, false
}

func (pr *PurchaseRequest) AppendHistory(step string, actorID, quoteID, notes string, at time.Time) {
	pr.Workflow.History = append(pr.Workflow.History, HistoryEntry{
		Step:      step,
		Status:    pr.Status,
		ActorID:   actorID,
		QuoteID:   quoteID,
		Notes:     notes,
		Timestamp: at,
	})
}

// ApprovalOutcome is what recording one approver's decision led to.
type ApprovalOutcome int

const (
	OutcomeAwaitingSecond ApprovalOutcome = iota
	OutcomeConverged
	OutcomeConflict
)

// RecordApproval stores an approver's decision in the matching slot and keeps
// the conflict flag consistent with the two selections.
func (pr *PurchaseRequest) RecordApproval(approverID, quoteID, notes string, at time.Time) (ApprovalOutcome, bool) {
	w := &pr.Workflow
	var step string

	switch approverID {
	case pr.ApproverID:
		if w.FirstApprovalComplete {
			return 0, false
		}
		w.FirstApprovalComplete = true
		w.FirstSelectedQuoteID = quoteID
		step = StepFirstApproval
	case pr.SecondApproverID:
		if w.SecondApprovalComplete {
			return 0, false
		}
		w.SecondApprovalComplete = true
		w.SecondSelectedQuoteID = quoteID
		step = StepSecondApproval
	default:
		return 0, false
	}
	pr.AppendHistory(step, approverID, quoteID, notes, at)

	return pr.approvalOutcome(at), true
}

// Reselect replaces an approver's selected quote while a conflict is open.
func (pr *PurchaseRequest) Reselect(approverID, quoteID, notes string, at time.Time) (ApprovalOutcome, bool) {
	w := &pr.Workflow
	switch approverID {
	case pr.ApproverID:
		w.FirstSelectedQuoteID = quoteID
	case pr.SecondApproverID:
		w.SecondSelectedQuoteID = quoteID
	default:
		return 0, false
	}
	pr.AppendHistory(StepQuoteReselect, approverID, quoteID, notes, at)
	return pr.approvalOutcome(at), true
}

// ConflictFlaggedAt returns when the most recent quote conflict was flagged.
func (pr *PurchaseRequest) ConflictFlaggedAt() (time.Time, bool) {
	h := pr.Workflow.History
	for i := len(h) - 1; i >= 0; i-- {
		if h[i].Step == StepQuoteConflict {
			return h[i].Timestamp, true
		}
	}
	return time.Time{}, false
}

func (pr *PurchaseRequest) approvalOutcome(at time.Time) ApprovalOutcome {
	w := &pr.Workflow
	if !(w.FirstApprovalComplete && w.SecondApprovalComplete) {
		return OutcomeAwaitingSecond
	}
	if w.SelectionsDiverge() {
		if !w.QuoteConflict {
			w.QuoteConflict = true
			pr.AppendHistory(StepQuoteConflict, "", "", "approvers selected different quotes", at)
		}
		return OutcomeConflict
	}
	w.QuoteConflict = false
	return OutcomeConverged
}

func ToDataModel(pr *PurchaseRequest) *prDatamodel.PurchaseRequest {
	m := &prDatamodel.PurchaseRequest{
		ID:                   pr.ID,
		PRNumber:             pr.PRNumber,
		OrganizationID:       pr.OrganizationID,
		Description:          pr.Description,
		EstimatedAmount:      pr.EstimatedAmount,
		Currency:             pr.Currency,
		Status:               string(pr.Status),
		Priority:             string(pr.Priority),
		RequestorID:          pr.RequestorID,
		RequestorEmail:       pr.RequestorEmail,
		ApproverID:           optional(pr.ApproverID),
		SecondApproverID:     optional(pr.SecondApproverID),
		RequiresDualApproval: pr.RequiresDualApproval,
		PreferredVendorID:    optional(pr.PreferredVendorID),
		Notes:                pr.Notes,
		AdjudicationNotes:    pr.AdjudicationNotes,
		Workflow: prDatamodel.ApprovalWorkflow{
			CurrentApproverID:             optional(pr.Workflow.CurrentApproverID),
			SecondApproverID:              optional(pr.Workflow.SecondApproverID),
			FirstApproverSelectedQuoteID:  optional(pr.Workflow.FirstSelectedQuoteID),
			SecondApproverSelectedQuoteID: optional(pr.Workflow.SecondSelectedQuoteID),
			FirstApprovalComplete:         pr.Workflow.FirstApprovalComplete,
			SecondApprovalComplete:        pr.Workflow.SecondApprovalComplete,
			QuoteConflict:                 pr.Workflow.QuoteConflict,
		},
		CreatedAt: pr.CreatedAt,
		UpdatedAt: pr.UpdatedAt,
	}
	for _, h := range pr.Workflow.History {
		m.Workflow.History = append(m.Workflow.History, prDatamodel.HistoryEntry{
			Step:      h.Step,
			Status:    string(h.Status),
			ActorID:   h.ActorID,
			QuoteID:   h.QuoteID,
			Notes:     h.Notes,
			Timestamp: h.Timestamp,
		})
	}
	for i := range pr.Quotes {
		m.Quotes = append(m.Quotes, *QuoteToDataModel(pr.ID, &pr.Quotes[i]))
	}
	return m
}

func QuoteToDataModel(prID string, q *Quote) *prDatamodel.Quote {
	m := &prDatamodel.Quote{
		ID:                q.ID,
		PurchaseRequestID: prID,
		VendorID:          q.VendorID,
		VendorName:        q.VendorName,
		Amount:            q.Amount,
		Currency:          q.Currency,
		SubmittedBy:       q.SubmittedBy,
		SubmittedAt:       q.SubmittedAt,
		Notes:             q.Notes,
	}
	for _, a := range q.Attachments {
		m.Attachments = append(m.Attachments, prDatamodel.Attachment{ID: a.ID, Name: a.Name, URL: a.URL})
	}
	return m
}

func FromDataModel(m *prDatamodel.PurchaseRequest) *PurchaseRequest {
	pr := &PurchaseRequest{
		ID:                   m.ID,
		PRNumber:             m.PRNumber,
		OrganizationID:       m.OrganizationID,
		Description:          m.Description,
		EstimatedAmount:      m.EstimatedAmount,
		Currency:             m.Currency,
		Status:               Status(m.Status),
		Priority:             Priority(m.Priority),
		RequestorID:          m.RequestorID,
		RequestorEmail:       m.RequestorEmail,
		ApproverID:           deref(m.ApproverID),
		SecondApproverID:     deref(m.SecondApproverID),
		RequiresDualApproval: m.RequiresDualApproval,
		PreferredVendorID:    deref(m.PreferredVendorID),
		Notes:                m.Notes,
		AdjudicationNotes:    m.AdjudicationNotes,
		Workflow: ApprovalWorkflow{
			CurrentApproverID:      deref(m.Workflow.CurrentApproverID),
			SecondApproverID:       deref(m.Workflow.SecondApproverID),
			FirstSelectedQuoteID:   deref(m.Workflow.FirstApproverSelectedQuoteID),
			SecondSelectedQuoteID:  deref(m.Workflow.SecondApproverSelectedQuoteID),
			FirstApprovalComplete:  m.Workflow.FirstApprovalComplete,
			SecondApprovalComplete: m.Workflow.SecondApprovalComplete,
			QuoteConflict:          m.Workflow.QuoteConflict,
		},
		Quotes:    make([]Quote, 0, len(m.Quotes)),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	for _, h := range m.Workflow.History {
		pr.Workflow.History = append(pr.Workflow.History, HistoryEntry{
			Step:      h.Step,
			Status:    Status(h.Status),
			ActorID:   h.ActorID,
			QuoteID:   h.QuoteID,
			Notes:     h.Notes,
			Timestamp: h.Timestamp,
		})
	}
	for _, q := range m.Quotes {
		quote := Quote{
			ID:          q.ID,
			VendorID:    q.VendorID,
			VendorName:  q.VendorName,
			Amount:      q.Amount,
			Currency:    q.Currency,
			SubmittedBy: q.SubmittedBy,
			SubmittedAt: q.SubmittedAt,
			Notes:       q.Notes,
			Attachments: make([]Attachment, 0, len(q.Attachments)),
		}
		for _, a := range q.Attachments {
			quote.Attachments = append(quote.Attachments, Attachment{ID: a.ID, Name: a.Name, URL: a.URL})
		}
		pr.Quotes = append(pr.Quotes, quote)
	}
	return pr
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
