package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/upb/llm-orchestrator/models"
	"github.com/upb/llm-orchestrator/services"
	"go.uber.org/zap"
)

// Transaction records the billed outcome of a committed reservation
type Transaction struct {
	RequestID string
	Model     string
	Provider  string
	Cost      float64
	TokensIn  int
	TokensOut int
	Timestamp time.Time
}

// Journal persists committed transactions. Recording is best-effort: a
// journal failure never fails the commit.
type Journal interface {
	Record(ctx context.Context, tx Transaction) error
}

// WarningHook is invoked once per period when spend crosses the warning
// threshold. Non-fatal; invocation never blocks a reservation.
type WarningHook func(total, dailyLimit float64)

// Service tracks cumulative spend against per-request and daily limits.
// It is the single process-wide shared mutable resource: every strategy
// serializes through Reserve/Commit/Release, which perform atomic
// check-and-increment under one mutex so concurrent strategies cannot
// race past the limit.
type Service struct {
	mu        sync.Mutex
	cfg       models.BudgetConfig
	total     float64
	periodKey string
	warned    bool

	journal   Journal
	onWarning WarningHook
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a ledger. journal may be nil.
func NewService(cfg models.BudgetConfig, journal Journal, logger *zap.Logger) *Service {
	s := &Service{
		cfg:     cfg,
		journal: journal,
		logger:  logger,
		now:     time.Now,
	}
	s.periodKey = s.currentPeriodKey()
	return s
}

// SetWarningHook registers the threshold-crossing callback
func (s *Service) SetWarningHook(hook WarningHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onWarning = hook
}

// Reservation is a speculative, rollback-able increment to the ledger
// made before a call's actual cost is known. Exactly one of Commit or
// Release must follow; extra calls are no-ops.
type Reservation struct {
	ledger   *Service
	estimate float64
	settled  bool
}

// Reserve checks the estimate against both limits and, if allowed, adds
// it to the running total optimistically. Returns a budget error without
// touching the total when either limit would be exceeded.
func (s *Service) Reserve(estimate float64) (*Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rolloverLocked()

	if s.cfg.PerRequestLimit > 0 && estimate > s.cfg.PerRequestLimit {
		return nil, services.NewDomainError(services.ErrorTypeBudget,
			fmt.Sprintf("estimated cost %.4f exceeds per-request limit %.4f",
				estimate, s.cfg.PerRequestLimit), nil)
	}
	if s.cfg.DailyLimit > 0 && s.total+estimate > s.cfg.DailyLimit {
		return nil, services.NewDomainError(services.ErrorTypeBudget,
			fmt.Sprintf("would exceed daily budget of %.4f (current: %.4f, request: %.4f)",
				s.cfg.DailyLimit, s.total, estimate), nil)
	}

	s.total += estimate
	s.checkWarningLocked()

	return &Reservation{ledger: s, estimate: estimate}, nil
}

// Commit replaces the reservation's estimate with the actual billed cost
// and journals the transaction.
func (r *Reservation) Commit(ctx context.Context, tx Transaction) {
	s := r.ledger

	s.mu.Lock()
	if r.settled {
		s.mu.Unlock()
		return
	}
	r.settled = true
	s.total += tx.Cost - r.estimate
	s.checkWarningLocked()
	s.mu.Unlock()

	if s.journal != nil {
		if tx.Timestamp.IsZero() {
			tx.Timestamp = s.now()
		}
		if err := s.journal.Record(ctx, tx); err != nil {
			s.logger.Warn("failed to journal spend transaction",
				zap.String("model", tx.Model),
				zap.Float64("cost", tx.Cost),
				zap.Error(err))
		}
	}
}

// Release rolls the speculative increment back. Used when a reserved
// call never produces a cost.
func (r *Reservation) Release() {
	s := r.ledger

	s.mu.Lock()
	defer s.mu.Unlock()
	if r.settled {
		return
	}
	r.settled = true
	s.total -= r.estimate
}

// Total returns the running total for the current period
func (s *Service) Total() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rolloverLocked()
	return s.total
}

// Remaining returns what is left of the daily budget (0 when unlimited)
func (s *Service) Remaining() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rolloverLocked()
	if s.cfg.DailyLimit <= 0 {
		return 0
	}
	remaining := s.cfg.DailyLimit - s.total
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// Config returns the budget limits the ledger enforces
func (s *Service) Config() models.BudgetConfig {
	return s.cfg
}

// rolloverLocked resets the running total exactly at period boundaries
func (s *Service) rolloverLocked() {
	key := s.currentPeriodKey()
	if key == s.periodKey {
		return
	}
	s.logger.Info("budget period rollover",
		zap.String("previous_period", s.periodKey),
		zap.String("period", key),
		zap.Float64("previous_total", s.total))
	s.periodKey = key
	s.total = 0
	s.warned = false
}

// checkWarningLocked fires the warning signal once per period
func (s *Service) checkWarningLocked() {
	if s.warned || s.cfg.DailyLimit <= 0 || s.cfg.WarningThreshold <= 0 {
		return
	}
	if s.total < s.cfg.DailyLimit*s.cfg.WarningThreshold {
		return
	}
	s.warned = true
	s.logger.Warn("approaching daily cost limit",
		zap.Float64("total", s.total),
		zap.Float64("daily_limit", s.cfg.DailyLimit),
		zap.Float64("threshold", s.cfg.WarningThreshold))
	if s.onWarning != nil {
		s.onWarning(s.total, s.cfg.DailyLimit)
	}
}

func (s *Service) currentPeriodKey() string {
	return s.now().Format("2006-01-02")
}
