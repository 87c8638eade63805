package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeStatusChanged        = "purchase_request.status_changed"
	EventTypeQuoteConflictFlagged = "purchase_request.quote_conflict_flagged"
)

// StatusChangedEvent is published after a PR status is persisted. An empty
// PreviousStatus marks creation.
type StatusChangedEvent struct {
	BaseEvent
	PurchaseRequestID string `json:"purchase_request_id"`
	OrganizationID    string `json:"organization_id"`
	PreviousStatus    string `json:"previous_status"`
	NewStatus         string `json:"new_status"`
	ActorID           string `json:"actor_id"`
	Notes             string `json:"notes,omitempty"`
	// Sequence is the length of the PR history when the change was
	// recorded. It tells repeated occurrences of one transition apart.
	Sequence int `json:"sequence,omitempty"`
}

func NewStatusChangedEvent(prID, orgID, previous, next, actorID, notes string) *StatusChangedEvent {
	return &StatusChangedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeStatusChanged,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"purchase_request_id": prID,
				"organization_id":     orgID,
				"previous_status":     previous,
				"new_status":          next,
				"actor_id":            actorID,
			},
		},
		PurchaseRequestID: prID,
		OrganizationID:    orgID,
		PreviousStatus:    previous,
		NewStatus:         next,
		ActorID:           actorID,
		Notes:             notes,
	}
}

func (e *StatusChangedEvent) WithSequence(n int) *StatusChangedEvent {
	e.Sequence = n
	e.Data["sequence"] = n
	return e
}

// QuoteConflictFlaggedEvent is published when both approvers completed with
// different quotes. Reminder events carry the calendar day they belong to.
type QuoteConflictFlaggedEvent struct {
	BaseEvent
	PurchaseRequestID string `json:"purchase_request_id"`
	OrganizationID    string `json:"organization_id"`
	FirstApproverID   string `json:"first_approver_id"`
	SecondApproverID  string `json:"second_approver_id"`
	FirstQuoteID      string `json:"first_quote_id"`
	SecondQuoteID     string `json:"second_quote_id"`
	Reminder          bool   `json:"reminder"`
	ReminderDate      string `json:"reminder_date,omitempty"`
	Sequence          int    `json:"sequence,omitempty"`
}

func NewQuoteConflictFlaggedEvent(prID, orgID, firstApprover, secondApprover, firstQuote, secondQuote string) *QuoteConflictFlaggedEvent {
	return &QuoteConflictFlaggedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeQuoteConflictFlagged,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"purchase_request_id": prID,
				"organization_id":     orgID,
				"first_quote_id":      firstQuote,
				"second_quote_id":     secondQuote,
			},
		},
		PurchaseRequestID: prID,
		OrganizationID:    orgID,
		FirstApproverID:   firstApprover,
		SecondApproverID:  secondApprover,
		FirstQuoteID:      firstQuote,
		SecondQuoteID:     secondQuote,
	}
}

// AsReminder marks the event as the daily re-send for day.
func (e *QuoteConflictFlaggedEvent) AsReminder(day time.Time) *QuoteConflictFlaggedEvent {
	e.Reminder = true
	e.ReminderDate = day.Format("2006-01-02")
	e.Data["reminder_date"] = e.ReminderDate
	return e
}

func (e *QuoteConflictFlaggedEvent) WithSequence(n int) *QuoteConflictFlaggedEvent {
	e.Sequence = n
	e.Data["sequence"] = n
	return e
}
