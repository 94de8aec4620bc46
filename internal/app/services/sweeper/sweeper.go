package sweeper

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/taskhub-io/taskhub/internal/app/domain/post"
	"github.com/taskhub-io/taskhub/internal/app/metrics"
	"github.com/taskhub-io/taskhub/internal/app/storage"
	"github.com/taskhub-io/taskhub/internal/app/system"
	"github.com/taskhub-io/taskhub/pkg/logger"
)

const defaultSchedule = "@every 1m"

var _ system.Service = (*Scanner)(nil)

// Scanner periodically counts open posts past their due date and publishes
// the count as a gauge. It mutates nothing; overdue posts stay OPEN until
// their owner acts.
type Scanner struct {
	posts    storage.PostStore
	log      *logger.Logger
	schedule cron.Schedule
	now      func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewScanner creates a lifecycle-managed overdue scanner. The schedule uses
// the standard cron syntax including @every descriptors.
func NewScanner(posts storage.PostStore, scheduleExpr string, log *logger.Logger) (*Scanner, error) {
	if log == nil {
		log = logger.NewDefault("sweeper")
	}
	scheduleExpr = strings.TrimSpace(scheduleExpr)
	if scheduleExpr == "" {
		scheduleExpr = defaultSchedule
	}
	schedule, err := cron.ParseStandard(scheduleExpr)
	if err != nil {
		return nil, fmt.Errorf("parse sweep schedule %q: %w", scheduleExpr, err)
	}
	return &Scanner{
		posts:    posts,
		log:      log,
		schedule: schedule,
		now:      time.Now,
	}, nil
}

func (s *Scanner) Name() string { return "overdue-scanner" }

func (s *Scanner) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			next := s.schedule.Next(s.now())
			timer := time.NewTimer(time.Until(next))
			select {
			case <-runCtx.Done():
				timer.Stop()
				return
			case <-timer.C:
				s.scan(runCtx)
			}
		}
	}()

	s.log.Info("overdue scanner started")
	return nil
}

func (s *Scanner) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	cancel := s.cancel
	s.running = false
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.log.Info("overdue scanner stopped")
	return nil
}

func (s *Scanner) scan(ctx context.Context) int {
	ctx, cancelScan := context.WithTimeout(ctx, 5*time.Second)
	defer cancelScan()

	open, err := s.posts.ListPosts(ctx, "", post.StatusOpen)
	if err != nil {
		s.log.WithError(err).Warn("overdue scan failed")
		return 0
	}

	now := s.now()
	overdue := 0
	for _, p := range open {
		if p.Overdue(now) {
			overdue++
		}
	}

	metrics.SetOverdueOpenPosts(overdue)
	if overdue > 0 {
		s.log.WithField("count", overdue).Warn("open posts past due date")
	}
	return overdue
}
