package purchaserequest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/procurement/internal"
	"github.com/frahmantamala/procurement/internal/core/events"
)

type Repository interface {
	Create(ctx context.Context, pr *PurchaseRequest) error
	GetByID(ctx context.Context, id string) (*PurchaseRequest, error)
	Update(ctx context.Context, pr *PurchaseRequest) error
	AddQuote(ctx context.Context, prID string, q *Quote) error
	ListQuoteConflicts(ctx context.Context, organizationID string) ([]*PurchaseRequest, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

var ErrNotFound = errors.New("purchase request not found")

type Service struct {
	repo      Repository
	validator Validator
	publisher EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo Repository, validator Validator, publisher EventPublisher, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		validator: validator,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Create stores a new PR in SUBMITTED and announces it.
func (s *Service) Create(ctx context.Context, actor *internal.Actor, dto CreatePurchaseRequestDTO) (*PurchaseRequest, error) {
	if actor == nil {
		return nil, internal.ErrUnauthorizedAccess
	}
	if err := dto.Validate(); err != nil {
		s.logger.Info("purchase request rejected by input validation", "user_id", actor.ID, "error", err)
		return nil, err
	}

	now := s.now()
	id := uuid.NewString()
	pr := &PurchaseRequest{
		ID:                id,
		PRNumber:          fmt.Sprintf("PR-%s-%s", now.Format("20060102"), strings.ToUpper(id[:8])),
		OrganizationID:    actor.OrganizationID,
		Description:       strings.TrimSpace(dto.Description),
		EstimatedAmount:   dto.EstimatedAmount,
		Currency:          strings.ToUpper(dto.Currency),
		Status:            StatusSubmitted,
		Priority:          Priority(dto.Priority),
		RequestorID:       actor.ID,
		RequestorEmail:    actor.Email,
		ApproverID:        dto.ApproverID,
		SecondApproverID:  dto.SecondApproverID,
		PreferredVendorID: dto.PreferredVendorID,
		Notes:             dto.Notes,
		Quotes:            make([]Quote, 0, len(dto.Quotes)),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	for _, q := range dto.Quotes {
		pr.Quotes = append(pr.Quotes, newQuote(q, actor.ID, now))
	}
	pr.AppendHistory(StepStatusChange, actor.ID, "", "created", now)

	if err := s.repo.Create(ctx, pr); err != nil {
		s.logger.Error("failed to create purchase request", "error", err, "organization_id", pr.OrganizationID)
		return nil, internal.NewInternalError("failed to create purchase request", err)
	}

	s.logger.Info("purchase request created",
		"pr_id", pr.ID,
		"pr_number", pr.PRNumber,
		"organization_id", pr.OrganizationID,
		"amount", pr.EstimatedAmount.String(),
		"currency", pr.Currency)

	s.publish(ctx, events.NewStatusChangedEvent(pr.ID, pr.OrganizationID, "", string(pr.Status), actor.ID, pr.Notes).
		WithSequence(len(pr.Workflow.History)))
	return pr, nil
}

func (s *Service) Get(ctx context.Context, id string, actor *internal.Actor) (*PurchaseRequest, error) {
	pr, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor == nil || actor.OrganizationID != pr.OrganizationID {
		s.logger.Warn("cross-organization access to purchase request denied", "pr_id", id)
		return nil, internal.ErrUnauthorizedAccess
	}
	return pr, nil
}

func (s *Service) AddQuote(ctx context.Context, id string, actor *internal.Actor, dto QuoteDTO) (*PurchaseRequest, error) {
	pr, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if pr.Status.IsTerminal() || pr.Status == StatusApproved || pr.Status == StatusOrdered {
		return nil, internal.NewConflictError(
			fmt.Sprintf("quotes cannot be added to a purchase request in %s", pr.Status),
			internal.ErrCodeInvalidTransition)
	}

	q := newQuote(dto, actor.ID, s.now())
	if err := s.repo.AddQuote(ctx, pr.ID, &q); err != nil {
		s.logger.Error("failed to add quote", "error", err, "pr_id", pr.ID)
		return nil, internal.NewInternalError("failed to add quote", err)
	}
	pr.Quotes = append(pr.Quotes, q)
	return pr, nil
}

// UpdateStatus moves a PR along the workflow. Moves into PENDING_APPROVAL and
// APPROVED must pass the approval validator first.
func (s *Service) UpdateStatus(ctx context.Context, id string, actor *internal.Actor, dto UpdateStatusDTO) (*PurchaseRequest, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	target, _ := ParseStatus(dto.Status)

	pr, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	log := s.prLogger(pr)

	previous := pr.Status
	if !AllowedTransition(previous, target) {
		log.Info("illegal status transition requested", "from", previous, "to", target)
		return nil, internal.NewConflictError(
			fmt.Sprintf("cannot move purchase request from %s to %s", previous, target),
			internal.ErrCodeInvalidTransition)
	}

	if dto.ApproverID != "" {
		pr.ApproverID = dto.ApproverID
	}
	if dto.SecondApproverID != "" {
		pr.SecondApproverID = dto.SecondApproverID
	}
	if dto.AdjudicationNotes != "" {
		pr.AdjudicationNotes = dto.AdjudicationNotes
	}

	if target == StatusApproved && pr.RequiresDualApproval {
		return nil, internal.NewConflictError(
			"dual-approval purchase requests are approved by recording both approvers' decisions",
			internal.ErrCodeInvalidTransition)
	}

	if target == StatusPendingApproval || target == StatusApproved {
		result := s.validator.Validate(ctx, pr, actor, target)
		if !result.IsValid {
			log.Info("purchase request failed approval validation",
				"target_status", target,
				"errors", len(result.Errors))
			return nil, internal.NewApprovalValidationError(result.Errors)
		}
		if target == StatusPendingApproval {
			pr.RequiresDualApproval = result.RequiresDualApproval
			pr.Workflow.Reset()
			pr.Workflow.CurrentApproverID = pr.ApproverID
			pr.Workflow.SecondApproverID = pr.SecondApproverID
		}
	}

	if previous == StatusPendingApproval && target != StatusApproved {
		pr.Workflow.Reset()
	}

	now := s.now()
	pr.Status = target
	pr.UpdatedAt = now
	if dto.Notes != "" {
		pr.Notes = dto.Notes
	}
	pr.AppendHistory(StepStatusChange, actor.ID, "", dto.Notes, now)

	if err := s.repo.Update(ctx, pr); err != nil {
		log.Error("failed to persist status change", "error", err)
		return nil, internal.NewInternalError("failed to update purchase request", err)
	}

	log.Info("purchase request status changed", "from", previous, "to", target, "actor_id", actor.ID)
	s.publish(ctx, events.NewStatusChangedEvent(pr.ID, pr.OrganizationID, string(previous), string(target), actor.ID, dto.Notes).
		WithSequence(len(pr.Workflow.History)))
	return pr, nil
}

// Approve records an assigned approver's decision. Dual-approval PRs only
// reach APPROVED once both approvers chose the same quote.
func (s *Service) Approve(ctx context.Context, id string, actor *internal.Actor, dto ApproveDTO) (*PurchaseRequest, error) {
	pr, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	log := s.prLogger(pr)

	if pr.Status != StatusPendingApproval {
		return nil, internal.NewConflictError(
			fmt.Sprintf("purchase request is %s, not PENDING_APPROVAL", pr.Status),
			internal.ErrCodeInvalidTransition)
	}
	if !pr.IsAssignedApprover(actor.ID) {
		log.Warn("approval attempted by unassigned user", "user_id", actor.ID)
		return nil, internal.ErrNotAssignedApprover
	}
	if dto.QuoteID != "" {
		if _, ok := pr.QuoteByID(dto.QuoteID); !ok {
			return nil, internal.ErrQuoteNotFound
		}
	} else if len(pr.Quotes) > 0 {
		return nil, internal.NewValidationFieldError("quote_id", "a quote must be selected", internal.ErrCodeInvalidQuote)
	}
	if dto.AdjudicationNotes != "" {
		pr.AdjudicationNotes = dto.AdjudicationNotes
	}

	now := s.now()

	if !pr.RequiresDualApproval {
		if err := s.validateApproval(ctx, pr, actor); err != nil {
			return nil, err
		}
		if _, ok := pr.RecordApproval(actor.ID, dto.QuoteID, dto.Notes, now); !ok {
			return nil, internal.ErrApprovalRecorded
		}
		return s.finishApproval(ctx, pr, actor, dto.Notes, now)
	}

	snapshot := pr.Workflow
	snapshot.History = append([]HistoryEntry(nil), pr.Workflow.History...)

	outcome, ok := pr.RecordApproval(actor.ID, dto.QuoteID, dto.Notes, now)
	if !ok {
		return nil, internal.ErrApprovalRecorded
	}

	switch outcome {
	case OutcomeConverged:
		if err := s.validateApproval(ctx, pr, actor); err != nil {
			pr.Workflow = snapshot
			return nil, err
		}
		return s.finishApproval(ctx, pr, actor, dto.Notes, now)
	case OutcomeConflict:
		pr.UpdatedAt = now
		if err := s.repo.Update(ctx, pr); err != nil {
			log.Error("failed to persist quote conflict", "error", err)
			return nil, internal.NewInternalError("failed to record approval", err)
		}
		log.Warn("approvers selected different quotes",
			"first_quote_id", pr.Workflow.FirstSelectedQuoteID,
			"second_quote_id", pr.Workflow.SecondSelectedQuoteID)
		s.publishConflict(ctx, pr)
		return pr, nil
	default:
		pr.UpdatedAt = now
		if err := s.repo.Update(ctx, pr); err != nil {
			log.Error("failed to persist approval", "error", err)
			return nil, internal.NewInternalError("failed to record approval", err)
		}
		log.Info("first of two approvals recorded", "approver_id", actor.ID, "quote_id", dto.QuoteID)
		return pr, nil
	}
}

// ResolveQuoteConflict lets an approver change their selection while a
// conflict is open. Converging selections complete the approval.
func (s *Service) ResolveQuoteConflict(ctx context.Context, id string, actor *internal.Actor, dto ResolveQuoteConflictDTO) (*PurchaseRequest, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	pr, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	log := s.prLogger(pr)

	if pr.Status != StatusPendingApproval || !pr.Workflow.QuoteConflict {
		return nil, internal.NewConflictError("purchase request has no open quote conflict", internal.ErrCodeInvalidTransition)
	}
	if !pr.IsAssignedApprover(actor.ID) {
		return nil, internal.ErrNotAssignedApprover
	}
	if _, ok := pr.QuoteByID(dto.QuoteID); !ok {
		return nil, internal.ErrQuoteNotFound
	}

	now := s.now()
	snapshot := pr.Workflow
	snapshot.History = append([]HistoryEntry(nil), pr.Workflow.History...)

	outcome, _ := pr.Reselect(actor.ID, dto.QuoteID, dto.Notes, now)
	if outcome == OutcomeConverged {
		if err := s.validateApproval(ctx, pr, actor); err != nil {
			pr.Workflow = snapshot
			return nil, err
		}
		log.Info("quote conflict resolved", "quote_id", dto.QuoteID)
		return s.finishApproval(ctx, pr, actor, dto.Notes, now)
	}

	pr.UpdatedAt = now
	if err := s.repo.Update(ctx, pr); err != nil {
		log.Error("failed to persist quote reselection", "error", err)
		return nil, internal.NewInternalError("failed to record quote selection", err)
	}
	log.Info("quote conflict still open after reselection", "approver_id", actor.ID)
	return pr, nil
}

// Validate is a dry run of the approval checks for a target status.
func (s *Service) Validate(ctx context.Context, id string, actor *internal.Actor, target string) (*ValidationResult, error) {
	status, ok := ParseStatus(target)
	if !ok {
		return nil, internal.NewValidationFieldError("target_status", "target_status is not a known purchase request status", internal.ErrCodeValidationFailed)
	}
	pr, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	result := s.validator.Validate(ctx, pr, actor, status)
	return &result, nil
}

// ListQuoteConflicts returns PRs held in PENDING_APPROVAL by a conflict. An
// empty organization id lists every organization.
func (s *Service) ListQuoteConflicts(ctx context.Context, organizationID string) ([]*PurchaseRequest, error) {
	prs, err := s.repo.ListQuoteConflicts(ctx, organizationID)
	if err != nil {
		s.logger.Error("failed to list quote conflicts", "error", err, "organization_id", organizationID)
		return nil, err
	}
	return prs, nil
}

func (s *Service) validateApproval(ctx context.Context, pr *PurchaseRequest, actor *internal.Actor) error {
	result := s.validator.Validate(ctx, pr, actor, StatusApproved)
	if !result.IsValid {
		s.prLogger(pr).Info("approval blocked by validation", "errors", len(result.Errors))
		return internal.NewApprovalValidationError(result.Errors)
	}
	return nil
}

func (s *Service) finishApproval(ctx context.Context, pr *PurchaseRequest, actor *internal.Actor, notes string, now time.Time) (*PurchaseRequest, error) {
	previous := pr.Status
	pr.Status = StatusApproved
	pr.UpdatedAt = now
	pr.AppendHistory(StepStatusChange, actor.ID, "", notes, now)

	if err := s.repo.Update(ctx, pr); err != nil {
		s.logger.Error("failed to persist approval", "error", err, "pr_id", pr.ID)
		return nil, internal.NewInternalError("failed to approve purchase request", err)
	}

	s.logger.Info("purchase request approved", "pr_id", pr.ID, "organization_id", pr.OrganizationID, "actor_id", actor.ID)
	s.publish(ctx, events.NewStatusChangedEvent(pr.ID, pr.OrganizationID, string(previous), string(pr.Status), actor.ID, notes).
		WithSequence(len(pr.Workflow.History)))
	return pr, nil
}

func (s *Service) publishConflict(ctx context.Context, pr *PurchaseRequest) {
	s.publish(ctx, events.NewQuoteConflictFlaggedEvent(
		pr.ID, pr.OrganizationID,
		pr.ApproverID, pr.SecondApproverID,
		pr.Workflow.FirstSelectedQuoteID, pr.Workflow.SecondSelectedQuoteID).
		WithSequence(len(pr.Workflow.History)))
}

// publish never fails the caller; notification problems must not undo a
// persisted status change.
func (s *Service) publish(ctx context.Context, e events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Error("failed to publish event", "event_type", e.EventType(), "error", err)
	}
}

func (s *Service) prLogger(pr *PurchaseRequest) *slog.Logger {
	return s.logger.With("pr_id", pr.ID, "organization_id", pr.OrganizationID)
}

func (s *Service) load(ctx context.Context, id string) (*PurchaseRequest, error) {
	pr, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, internal.ErrPurchaseRequestNotFound
		}
		s.logger.Error("failed to load purchase request", "error", err, "pr_id", id)
		return nil, internal.NewInternalError("failed to load purchase request", err)
	}
	return pr, nil
}

func newQuote(dto QuoteDTO, submittedBy string, at time.Time) Quote {
	q := Quote{
		ID:          uuid.NewString(),
		VendorID:    dto.VendorID,
		VendorName:  dto.VendorName,
		Amount:      dto.Amount,
		Currency:    strings.ToUpper(dto.Currency),
		SubmittedBy: submittedBy,
		SubmittedAt: at,
		Notes:       dto.Notes,
		Attachments: make([]Attachment, 0, len(dto.Attachments)),
	}
	for _, a := range dto.Attachments {
		id := a.ID
		if id == "" {
			id = uuid.NewString()
		}
		q.Attachments = append(q.Attachments, Attachment{ID: id, Name: a.Name, URL: a.URL})
	}
	return q
}
