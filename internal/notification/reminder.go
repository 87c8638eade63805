package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/frahmantamala/procurement/internal/core/events"
	"github.com/frahmantamala/procurement/internal/purchaserequest"
)

type ConflictLister interface {
	ListQuoteConflicts(ctx context.Context, organizationID string) ([]*purchaserequest.PurchaseRequest, error)
}

type SyncPublisher interface {
	PublishSync(ctx context.Context, event events.Event) error
}

type ReminderJob struct {
	PurchaseRequestID string
	OrganizationID    string
	FirstApproverID   string
	SecondApproverID  string
	FirstQuoteID      string
	SecondQuoteID     string
	Day               time.Time
}

type Worker struct {
	ID         int
	WorkerPool chan chan ReminderJob
	JobChannel chan ReminderJob
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan ReminderJob, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan ReminderJob),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, processFunc func(ReminderJob)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			select {
			case w.WorkerPool <- w.JobChannel:
			case <-ctx.Done():
				w.Logger.Debug("reminder worker shutting down", "worker_id", w.ID)
				return
			}

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("worker processing reminder", "worker_id", w.ID, "pr_id", job.PurchaseRequestID)
				processFunc(job)
			case <-ctx.Done():
				w.Logger.Debug("reminder worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

type ReminderConfig struct {
	Interval   time.Duration
	MaxWorkers int
	QueueSize  int
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// ReminderScheduler re-announces unresolved quote conflicts once per
// interval. Each job publishes synchronously so the daily notification type
// is recorded before the job finishes.
type ReminderScheduler struct {
	conflicts ConflictLister
	publisher SyncPublisher
	interval  time.Duration
	logger    *slog.Logger
	now       func() time.Time

	jobQueue   chan ReminderJob
	workerPool chan chan ReminderJob
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
}

func NewReminderScheduler(conflicts ConflictLister, publisher SyncPublisher, config ReminderConfig, logger *slog.Logger) *ReminderScheduler {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := config.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	queueSize := config.QueueSize
	if queueSize <= 0 {
		queueSize = 100
	}
	interval := config.Interval
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	now := config.Clock
	if now == nil {
		now = time.Now
	}

	return &ReminderScheduler{
		conflicts:  conflicts,
		publisher:  publisher,
		interval:   interval,
		logger:     logger,
		now:        now,
		jobQueue:   make(chan ReminderJob, queueSize),
		workerPool: make(chan chan ReminderJob, maxWorkers),
		maxWorkers: maxWorkers,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start launches the workers, the dispatcher and the ticker. The first sweep
// runs immediately; conflicts flagged that same day are left to the original
// notice.
func (s *ReminderScheduler) Start() {
	s.once.Do(func() {
		for i := 0; i < s.maxWorkers; i++ {
			NewWorker(i, s.workerPool, s.logger).Start(s.ctx, &s.wg, s.process)
		}

		s.wg.Add(2)
		go s.dispatch()
		go s.tick()

		s.logger.Info("quote conflict reminder scheduler started",
			"max_workers", s.maxWorkers,
			"queue_size", cap(s.jobQueue),
			"interval", s.interval.String())
	})
}

func (s *ReminderScheduler) tick() {
	defer s.wg.Done()

	s.Sweep(s.ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep(s.ctx)
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *ReminderScheduler) dispatch() {
	defer s.wg.Done()

	for {
		select {
		case job := <-s.jobQueue:
			select {
			case jobChannel := <-s.workerPool:
				select {
				case jobChannel <- job:
				case <-s.ctx.Done():
					return
				}
			case <-s.ctx.Done():
				return
			}
		case <-s.ctx.Done():
			s.logger.Info("reminder dispatcher shutting down")
			return
		}
	}
}

// Sweep lists open conflicts and queues one reminder per PR. It returns how
// many were queued; a full queue drops the rest until the next sweep.
func (s *ReminderScheduler) Sweep(ctx context.Context) int {
	prs, err := s.conflicts.ListQuoteConflicts(ctx, "")
	if err != nil {
		s.logger.Error("failed to list quote conflicts", "error", err)
		return 0
	}

	day := s.now()
	queued := 0
	for _, pr := range prs {
		if flagged, ok := pr.ConflictFlaggedAt(); ok && sameDay(flagged, day) {
			s.logger.Debug("conflict flagged today, skipping reminder", "pr_id", pr.ID)
			continue
		}
		job := ReminderJob{
			PurchaseRequestID: pr.ID,
			OrganizationID:    pr.OrganizationID,
			FirstApproverID:   pr.ApproverID,
			SecondApproverID:  pr.SecondApproverID,
			FirstQuoteID:      pr.Workflow.FirstSelectedQuoteID,
			SecondQuoteID:     pr.Workflow.SecondSelectedQuoteID,
			Day:               day,
		}
		select {
		case s.jobQueue <- job:
			queued++
		default:
			s.logger.Warn("reminder queue full, deferring to next sweep",
				"pr_id", pr.ID,
				"queue_capacity", cap(s.jobQueue))
		}
	}

	s.logger.Info("quote conflict sweep finished", "open_conflicts", len(prs), "queued", queued)
	return queued
}

func (s *ReminderScheduler) process(job ReminderJob) {
	event := events.NewQuoteConflictFlaggedEvent(
		job.PurchaseRequestID, job.OrganizationID,
		job.FirstApproverID, job.SecondApproverID,
		job.FirstQuoteID, job.SecondQuoteID,
	).AsReminder(job.Day)

	if err := s.publisher.PublishSync(s.ctx, event); err != nil {
		s.logger.Error("failed to publish quote conflict reminder", "pr_id", job.PurchaseRequestID, "error", err)
	}
}

func (s *ReminderScheduler) Shutdown() {
	s.logger.Info("shutting down reminder scheduler")
	s.cancel()
	s.wg.Wait()
	s.logger.Info("reminder scheduler shutdown complete")
}

func sameDay(a, b time.Time) bool {
	a = a.In(b.Location())
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
