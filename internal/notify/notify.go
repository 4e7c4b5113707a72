// Package notify carries user-facing notices (session expiry) and secondary
// failure reports (payment recording) out of the core.
package notify

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"kasirinaja/desktop/internal/domain"
	"kasirinaja/desktop/internal/logger"
)

type Notifier interface {
	Notify(ctx context.Context, notice domain.Notice) error
}

type NoopNotifier struct{}

func (NoopNotifier) Notify(_ context.Context, _ domain.Notice) error {
	return nil
}

type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: logger.OrNop(log)}
}

func (n *LogNotifier) Notify(_ context.Context, notice domain.Notice) error {
	n.log.Warn(notice.Message,
		zap.String("notice", notice.Kind),
		zap.String("detail", notice.Detail),
		zap.Time("at", notice.At),
	)
	return nil
}

// Queue keeps notices in memory until the presentation layer drains them.
type Queue struct {
	mu      sync.Mutex
	pending []domain.Notice
}

func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) Notify(_ context.Context, notice domain.Notice) error {
	q.mu.Lock()
	q.pending = append(q.pending, notice)
	q.mu.Unlock()
	return nil
}

// Drain returns and forgets every pending notice, oldest first.
func (q *Queue) Drain() []domain.Notice {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	return out
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Multi delivers to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, notice domain.Notice) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, notice); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
