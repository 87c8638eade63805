package notification_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/procurement/internal/core/events"
	"github.com/frahmantamala/procurement/internal/notification"
	"github.com/frahmantamala/procurement/internal/organization"
	"github.com/frahmantamala/procurement/internal/purchaserequest"
	"github.com/frahmantamala/procurement/internal/transition"
	"github.com/frahmantamala/procurement/internal/user"
)

func TestNotification(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Notification Suite")
}

type memoryStore struct {
	mu       sync.Mutex
	logs     map[string]*notification.Log
	legacy   map[string]string
	mirrored int
	findErr  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{logs: map[string]*notification.Log{}, legacy: map[string]string{}}
}

func key(prID, typ string) string { return prID + "|" + typ }

func (m *memoryStore) FindLegacy(ctx context.Context, prID, typ string, since time.Time) (string, bool, error) {
	if m.findErr != nil {
		return "", false, m.findErr
	}
	id, ok := m.legacy[key(prID, typ)]
	return id, ok, nil
}

func (m *memoryStore) CreateIfAbsent(ctx context.Context, l *notification.Log) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.logs {
		if existing.PRID == l.PRID && existing.Type == l.Type {
			return existing.ID, false, nil
		}
	}
	copied := *l
	m.logs[l.ID] = &copied
	return l.ID, true, nil
}

func (m *memoryStore) Reclaim(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.logs[id]
	if !ok || l.Status != notification.StatusFailed {
		return false, nil
	}
	l.Status = notification.StatusPending
	l.Error = ""
	return true, nil
}

func (m *memoryStore) Mirror(ctx context.Context, l *notification.Log) error {
	m.mirrored++
	return nil
}

func (m *memoryStore) MarkSent(ctx context.Context, id string, at time.Time) error {
	m.logs[id].Status = notification.StatusSent
	m.logs[id].SentAt = &at
	return nil
}

func (m *memoryStore) MarkFailed(ctx context.Context, id, reason string) error {
	m.logs[id].Status = notification.StatusFailed
	m.logs[id].Error = reason
	return nil
}

type recordingSender struct {
	mu     sync.Mutex
	emails []notification.Email
	err    error
}

func (s *recordingSender) Send(ctx context.Context, e notification.Email) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.emails = append(s.emails, e)
	return nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.emails)
}

type prStore struct {
	prs map[string]*purchaserequest.PurchaseRequest
}

func (p *prStore) GetByID(ctx context.Context, id string) (*purchaserequest.PurchaseRequest, error) {
	if pr, ok := p.prs[id]; ok {
		return pr, nil
	}
	return nil, purchaserequest.ErrNotFound
}

func (p *prStore) ListQuoteConflicts(ctx context.Context, organizationID string) ([]*purchaserequest.PurchaseRequest, error) {
	var out []*purchaserequest.PurchaseRequest
	for _, pr := range p.prs {
		if pr.Workflow.QuoteConflict && pr.Status == purchaserequest.StatusPendingApproval {
			out = append(out, pr)
		}
	}
	return out, nil
}

type orgs struct{}

func (orgs) GetByID(ctx context.Context, id string) (*organization.Organization, error) {
	return &organization.Organization{ID: id, ProcurementEmail: "procurement@org1.test"}, nil
}

type users struct{}

func (users) GetByID(ctx context.Context, id string) (*user.User, error) {
	return &user.User{ID: id, Email: id + "@org1.test", FirstName: id}, nil
}

var _ = Describe("Service", func() {
	var (
		store   *memoryStore
		sender  *recordingSender
		prs     *prStore
		service *notification.Service
		ctx     context.Context
		logger  *slog.Logger
	)

	BeforeEach(func() {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		store = newMemoryStore()
		sender = &recordingSender{}
		prs = &prStore{prs: map[string]*purchaserequest.PurchaseRequest{
			"pr-1": {
				ID:               "pr-1",
				PRNumber:         "PR-1",
				OrganizationID:   "ORG1",
				EstimatedAmount:  decimal.NewFromInt(15000),
				Currency:         "USD",
				Status:           purchaserequest.StatusPendingApproval,
				RequestorID:      "rita",
				ApproverID:       "ann",
				SecondApproverID: "bob",
				Quotes: []purchaserequest.Quote{
					{ID: "q1", VendorName: "Acme", Amount: decimal.NewFromInt(12000), Currency: "USD"},
					{ID: "q2", VendorName: "Globex", Amount: decimal.NewFromInt(12500), Currency: "USD"},
				},
				Workflow: purchaserequest.ApprovalWorkflow{
					FirstApprovalComplete:  true,
					SecondApprovalComplete: true,
					FirstSelectedQuoteID:   "q1",
					SecondSelectedQuoteID:  "q2",
					QuoteConflict:          true,
				},
			},
		}}
		builder := transition.NewBuilder(orgs{}, user.NewDirectory(users{}, logger), "", logger)
		service = notification.NewService(prs, transition.DefaultRegistry(), builder,
			notification.NewGuard(store, logger), sender, "noreply@procurement.test", logger)
		ctx = context.Background()
	})

	statusChange := notification.Request{
		Key:     transition.StatusKey(purchaserequest.StatusInQueue, purchaserequest.StatusPendingApproval),
		PRID:    "pr-1",
		ActorID: "proc",
	}

	It("sends and records a notification", func() {
		res := service.Notify(ctx, statusChange)
		Expect(res.Success).To(BeTrue())
		Expect(res.Duplicate).To(BeFalse())
		Expect(res.NotificationID).ToNot(BeEmpty())
		Expect(sender.count()).To(Equal(1))
		Expect(sender.emails[0].From).To(Equal("noreply@procurement.test"))
		Expect(store.logs[res.NotificationID].Type).To(Equal("STATUS_CHANGE_IN_QUEUE_TO_PENDING_APPROVAL"))
		Expect(store.logs[res.NotificationID].Status).To(Equal(notification.StatusSent))
		Expect(store.mirrored).To(Equal(1))
	})

	It("stores exactly one record when called twice", func() {
		first := service.Notify(ctx, statusChange)
		second := service.Notify(ctx, statusChange)
		Expect(second.Success).To(BeTrue())
		Expect(second.Duplicate).To(BeTrue())
		Expect(second.NotificationID).To(Equal(first.NotificationID))
		Expect(store.logs).To(HaveLen(1))
		Expect(sender.count()).To(Equal(1))
	})

	It("honours a record in the legacy stores", func() {
		store.legacy["pr-1|STATUS_CHANGE_IN_QUEUE_TO_PENDING_APPROVAL"] = "legacy-1"
		res := service.Notify(ctx, statusChange)
		Expect(res.Duplicate).To(BeTrue())
		Expect(res.NotificationID).To(Equal("legacy-1"))
		Expect(sender.count()).To(Equal(0))
	})

	It("falls through to the canonical store when the legacy lookup fails", func() {
		store.findErr = errors.New("timeout")
		res := service.Notify(ctx, statusChange)
		Expect(res.Success).To(BeTrue())
		Expect(store.logs).To(HaveLen(1))
	})

	It("treats an unregistered transition as nothing to send", func() {
		res := service.Notify(ctx, notification.Request{
			Key:  transition.StatusKey(purchaserequest.StatusCompleted, purchaserequest.StatusDraft),
			PRID: "pr-1",
		})
		Expect(res.Success).To(BeTrue())
		Expect(store.logs).To(BeEmpty())
	})

	It("reports a send failure without raising", func() {
		sender.err = errors.New("smtp down")
		res := service.Notify(ctx, statusChange)
		Expect(res.Success).To(BeFalse())
		Expect(store.logs[res.NotificationID].Status).To(Equal(notification.StatusFailed))
		Expect(store.logs[res.NotificationID].Error).To(Equal("smtp down"))
	})

	It("retries a notification whose earlier send failed", func() {
		revision := notification.Request{
			Key:      transition.StatusKey(purchaserequest.StatusSubmitted, purchaserequest.StatusRevisionRequired),
			PRID:     "pr-1",
			ActorID:  "proc",
			Sequence: 3,
		}
		sender.err = errors.New("smtp down")
		failed := service.Notify(ctx, revision)
		Expect(failed.Success).To(BeFalse())
		Expect(store.mirrored).To(Equal(0))

		sender.err = nil
		retried := service.Notify(ctx, revision)
		Expect(retried.Success).To(BeTrue())
		Expect(retried.Duplicate).To(BeFalse())
		Expect(retried.NotificationID).To(Equal(failed.NotificationID))
		Expect(sender.count()).To(Equal(1))
		Expect(store.logs).To(HaveLen(1))
		Expect(store.logs[retried.NotificationID].Status).To(Equal(notification.StatusSent))
		Expect(store.mirrored).To(Equal(1))

		Expect(service.Notify(ctx, revision).Duplicate).To(BeTrue())
		Expect(sender.count()).To(Equal(1))
	})

	It("notifies every occurrence of a repeated transition once", func() {
		revision := notification.Request{
			Key:      transition.StatusKey(purchaserequest.StatusSubmitted, purchaserequest.StatusRevisionRequired),
			PRID:     "pr-1",
			ActorID:  "proc",
			Sequence: 2,
		}
		Expect(service.Notify(ctx, revision).Duplicate).To(BeFalse())
		Expect(service.Notify(ctx, revision).Duplicate).To(BeTrue())

		revision.Sequence = 6
		Expect(service.Notify(ctx, revision).Duplicate).To(BeFalse())
		Expect(sender.count()).To(Equal(2))
		Expect(store.logs).To(HaveLen(2))
	})

	It("notifies a conflict flagged again after the workflow was reset", func() {
		conflict := notification.Request{Key: transition.QuoteConflictKey(), PRID: "pr-1", Sequence: 3}
		Expect(service.Notify(ctx, conflict).Duplicate).To(BeFalse())

		conflict.Sequence = 9
		Expect(service.Notify(ctx, conflict).Duplicate).To(BeFalse())
		Expect(sender.count()).To(Equal(2))
	})

	It("reports a missing PR without raising", func() {
		res := service.Notify(ctx, notification.Request{Key: statusChange.Key, PRID: "missing"})
		Expect(res.Success).To(BeFalse())
	})

	It("sends one reminder per day for an open conflict", func() {
		conflict := notification.Request{Key: transition.QuoteConflictKey(), PRID: "pr-1"}
		Expect(service.Notify(ctx, conflict).Success).To(BeTrue())

		conflict.ReminderDate = "2025-03-02"
		Expect(service.Notify(ctx, conflict).Duplicate).To(BeFalse())
		Expect(service.Notify(ctx, conflict).Duplicate).To(BeTrue())

		conflict.ReminderDate = "2025-03-03"
		Expect(service.Notify(ctx, conflict).Duplicate).To(BeFalse())
		Expect(sender.count()).To(Equal(3))
		Expect(sender.emails[0].To).To(ConsistOf("ann@org1.test", "bob@org1.test"))
		Expect(sender.emails[0].CC).To(ConsistOf("procurement@org1.test", "rita@org1.test"))
	})

	It("skips a conflict that has already been resolved", func() {
		prs.prs["pr-1"].Workflow.QuoteConflict = false
		res := service.Notify(ctx, notification.Request{Key: transition.QuoteConflictKey(), PRID: "pr-1"})
		Expect(res.Success).To(BeTrue())
		Expect(sender.count()).To(Equal(0))
	})

	It("reacts to published events", func() {
		bus := events.NewEventBus(logger)
		service.Subscribe(bus)

		Expect(bus.Publish(ctx, events.NewQuoteConflictFlaggedEvent("pr-1", "ORG1", "ann", "bob", "q1", "q2"))).To(Succeed())
		bus.Wait()
		Expect(sender.count()).To(Equal(1))

		Expect(bus.PublishSync(ctx, events.NewStatusChangedEvent("pr-1", "ORG1", "IN_QUEUE", "PENDING_APPROVAL", "proc", "").WithSequence(4))).To(Succeed())
		Expect(sender.count()).To(Equal(2))

		var types []string
		for _, l := range store.logs {
			types = append(types, l.Type)
		}
		Expect(types).To(ContainElement("STATUS_CHANGE_IN_QUEUE_TO_PENDING_APPROVAL#4"))
	})

	Describe("ReminderScheduler", func() {
		It("publishes a dated reminder per open conflict", func() {
			bus := events.NewEventBus(logger)
			service.Subscribe(bus)

			scheduler := notification.NewReminderScheduler(prs, bus, notification.ReminderConfig{
				Interval:   time.Hour,
				MaxWorkers: 2,
				QueueSize:  10,
			}, logger)
			scheduler.Start()
			defer scheduler.Shutdown()

			Eventually(sender.count).Should(Equal(1))
			Expect(sender.emails[0].Subject).To(HavePrefix("Reminder: "))
		})

		It("counts queued reminders on a manual sweep", func() {
			scheduler := notification.NewReminderScheduler(prs, events.NewEventBus(logger), notification.ReminderConfig{QueueSize: 1}, logger)
			Expect(scheduler.Sweep(ctx)).To(Equal(1))
			Expect(scheduler.Sweep(ctx)).To(Equal(0))
		})

		It("leaves a conflict flagged today to the original notice", func() {
			today := time.Date(2025, 3, 2, 16, 0, 0, 0, time.UTC)
			pr := prs.prs["pr-1"]
			pr.AppendHistory(purchaserequest.StepQuoteConflict, "", "", "approvers selected different quotes", today.Add(-10*time.Minute))

			scheduler := notification.NewReminderScheduler(prs, events.NewEventBus(logger), notification.ReminderConfig{
				QueueSize: 5,
				Clock:     func() time.Time { return today },
			}, logger)
			Expect(scheduler.Sweep(ctx)).To(Equal(0))

			pr.Workflow.History[len(pr.Workflow.History)-1].Timestamp = today.Add(-24 * time.Hour)
			Expect(scheduler.Sweep(ctx)).To(Equal(1))
		})
	})
})
