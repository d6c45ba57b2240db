// Package notify moves password reset notifications off the request path:
// ForgotPassword enqueues, a background worker delivers.
package notify

import (
	"context"
	"fmt"

	"mayorsearch/pkg/domain"
	"mayorsearch/pkg/queue"
	"mayorsearch/services/catalog/internal/app"
)

// DefaultStream is the Redis stream holding pending reset notifications.
const DefaultStream = "mayorsearch:resets"

// QueueSender enqueues reset notifications for later delivery.
type QueueSender struct {
	Queue *queue.ResetQueue
}

func (s QueueSender) SendReset(ctx context.Context, user domain.User, token string) error {
	if _, err := s.Queue.Enqueue(ctx, user.ID, user.Email, token); err != nil {
		return fmt.Errorf("enqueue reset: %w", err)
	}
	return nil
}

// StartWorker consumes queued notifications and hands each to deliver
// until ctx is cancelled.
func StartWorker(ctx context.Context, q *queue.ResetQueue, concurrency int, deliver app.ResetSender) {
	q.Start(ctx, concurrency, func(ctx context.Context, job queue.ResetJob) error {
		return deliver.SendReset(ctx, domain.User{ID: job.UserID, Email: job.Email}, job.Token)
	})
}
