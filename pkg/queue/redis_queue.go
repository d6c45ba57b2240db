package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"mayorsearch/internal/util"
)

const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusFailed     = "failed"
)

// ResetJob is one password reset notification. The token travels in the
// stream entry only and is never written to the status hash.
type ResetJob struct {
	ID           string    `json:"id"`
	UserID       int64     `json:"idusuario"`
	Email        string    `json:"email"`
	Token        string    `json:"-"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	Attempts     int       `json:"attempts"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ResetQueue delivers reset notifications through a Redis stream consumer
// group, retrying failed deliveries up to MaxRetries times.
type ResetQueue struct {
	client       *redis.Client
	stream       string
	group        string
	consumerBase string
	jobTTL       time.Duration
	maxRetries   int
	block        time.Duration
	claimIdle    time.Duration
	retryDelay   time.Duration
	maxLen       int64
	readCount    int64
	claimCount   int64
	once         sync.Once
}

type Config struct {
	Client     *redis.Client
	Stream     string
	Group      string
	Consumer   string
	JobTTL     time.Duration
	MaxRetries int
	Block      time.Duration
	ClaimIdle  time.Duration
	RetryDelay time.Duration
	MaxLen     int64
	ReadCount  int64
	ClaimCount int64
}

func NewResetQueue(cfg Config) (*ResetQueue, error) {
	if cfg.Client == nil {
		return nil, errors.New("redis client required")
	}
	stream := strings.TrimSpace(cfg.Stream)
	if stream == "" {
		return nil, errors.New("queue stream required")
	}
	group := strings.TrimSpace(cfg.Group)
	if group == "" {
		group = "default"
	}
	consumer := strings.TrimSpace(cfg.Consumer)
	if consumer == "" {
		consumer = util.NewID()
	}
	return &ResetQueue{
		client:       cfg.Client,
		stream:       stream,
		group:        group,
		consumerBase: consumer,
		jobTTL:       orDuration(cfg.JobTTL, time.Hour),
		maxRetries:   orInt(cfg.MaxRetries, 3),
		block:        orDuration(cfg.Block, 5*time.Second),
		claimIdle:    orDuration(cfg.ClaimIdle, 30*time.Second),
		retryDelay:   orDuration(cfg.RetryDelay, 2*time.Second),
		maxLen:       int64(orInt(int(cfg.MaxLen), 10000)),
		readCount:    int64(orInt(int(cfg.ReadCount), 10)),
		claimCount:   int64(orInt(int(cfg.ClaimCount), 10)),
	}, nil
}

func orDuration(v, fallback time.Duration) time.Duration {
	if v <= 0 {
		return fallback
	}
	return v
}

func orInt(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

func (q *ResetQueue) Enqueue(ctx context.Context, userID int64, email, token string) (ResetJob, error) {
	if userID <= 0 || strings.TrimSpace(email) == "" || token == "" {
		return ResetJob{}, errors.New("user id, email and token required")
	}
	now := time.Now().UTC()
	job := ResetJob{
		ID:        util.NewID(),
		UserID:    userID,
		Email:     strings.TrimSpace(email),
		Token:     token,
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := q.writeStatus(ctx, job); err != nil {
		return ResetJob{}, err
	}
	if err := q.client.XAdd(ctx, q.addArgs(job)).Err(); err != nil {
		return ResetJob{}, err
	}
	return job, nil
}

// GetJob returns the job status. The token is never part of the result.
func (q *ResetQueue) GetJob(ctx context.Context, jobID string) (ResetJob, bool, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return ResetJob{}, false, nil
	}
	data, err := q.client.HGetAll(ctx, q.jobKey(jobID)).Result()
	if err != nil {
		return ResetJob{}, false, err
	}
	if len(data) == 0 {
		return ResetJob{}, false, nil
	}
	return decodeJob(jobID, data), true, nil
}

// Start runs concurrency consumers until ctx is cancelled.
func (q *ResetQueue) Start(ctx context.Context, concurrency int, handler func(context.Context, ResetJob) error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	q.ensureGroup(ctx)
	for i := 0; i < concurrency; i++ {
		consumer := fmt.Sprintf("%s-%d", q.consumerBase, i)
		go q.consumeLoop(ctx, consumer, handler)
	}
}

func (q *ResetQueue) ensureGroup(ctx context.Context) {
	q.once.Do(func() {
		err := q.client.XGroupCreateMkStream(ctx, q.stream, q.group, "$").Err()
		if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
			util.LoggerFromContext(ctx).Warn("create consumer group failed", "stream", q.stream, "err", err)
		}
	})
}

func (q *ResetQueue) consumeLoop(ctx context.Context, consumer string, handler func(context.Context, ResetJob) error) {
	logger := util.LoggerFromContext(ctx).With("stream", q.stream, "consumer", consumer)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if msgs, err := q.claimPending(ctx, consumer); err == nil {
			for _, msg := range msgs {
				q.handleMessage(ctx, msg, handler)
			}
		}

		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.group,
			Consumer: consumer,
			Streams:  []string{q.stream, ">"},
			Count:    q.readCount,
			Block:    q.block,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			logger.Warn("read reset queue failed", "err", err)
			select {
			case <-ctx.Done():
			case <-time.After(q.retryDelay):
			}
			continue
		}
		for _, stream := range streams {
			for _, msg := range stream.Messages {
				q.handleMessage(ctx, msg, handler)
			}
		}
	}
}

func (q *ResetQueue) claimPending(ctx context.Context, consumer string) ([]redis.XMessage, error) {
	res, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   q.stream,
		Group:    q.group,
		Consumer: consumer,
		MinIdle:  q.claimIdle,
		Start:    "0-0",
		Count:    q.claimCount,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (q *ResetQueue) handleMessage(ctx context.Context, msg redis.XMessage, handler func(context.Context, ResetJob) error) {
	entry, ok := parseEntry(msg)
	if !ok {
		q.ackAndDel(ctx, msg.ID)
		return
	}
	job, err := q.markProcessing(ctx, entry)
	if err != nil {
		q.ackAndDel(ctx, msg.ID)
		return
	}
	err = handler(ctx, job)
	if err == nil {
		_ = q.setStatus(ctx, job, StatusDone, "")
		q.ackAndDel(ctx, msg.ID)
		return
	}
	util.LoggerFromContext(ctx).Warn("reset delivery failed", "job_id", job.ID, "attempts", job.Attempts, "err", err)
	if job.Attempts >= q.maxRetries {
		_ = q.setStatus(ctx, job, StatusFailed, err.Error())
		q.ackAndDel(ctx, msg.ID)
		return
	}
	_ = q.setStatus(ctx, job, StatusQueued, err.Error())
	select {
	case <-ctx.Done():
		return
	case <-time.After(q.retryDelay):
	}
	_ = q.requeueAndAck(ctx, msg.ID, job)
}

func (q *ResetQueue) ackAndDel(ctx context.Context, msgID string) {
	_, _ = q.client.XAck(ctx, q.stream, q.group, msgID).Result()
	_, _ = q.client.XDel(ctx, q.stream, msgID).Result()
}

// requeueAndAck re-adds the job and acknowledges the old entry in one
// transaction so a failure leaves the original pending for reclaim.
func (q *ResetQueue) requeueAndAck(ctx context.Context, msgID string, job ResetJob) error {
	pipe := q.client.TxPipeline()
	pipe.XAdd(ctx, q.addArgs(job))
	pipe.XAck(ctx, q.stream, q.group, msgID)
	pipe.XDel(ctx, q.stream, msgID)
	_, err := pipe.Exec(ctx)
	return err
}

func (q *ResetQueue) addArgs(job ResetJob) *redis.XAddArgs {
	return &redis.XAddArgs{
		Stream: q.stream,
		MaxLen: q.maxLen,
		Approx: true,
		Values: map[string]any{
			"job_id":  job.ID,
			"user_id": strconv.FormatInt(job.UserID, 10),
			"email":   job.Email,
			"token":   job.Token,
		},
	}
}

func parseEntry(msg redis.XMessage) (ResetJob, bool) {
	jobID, _ := msg.Values["job_id"].(string)
	rawUser, _ := msg.Values["user_id"].(string)
	email, _ := msg.Values["email"].(string)
	token, _ := msg.Values["token"].(string)
	userID, err := strconv.ParseInt(rawUser, 10, 64)
	if jobID == "" || err != nil || email == "" || token == "" {
		return ResetJob{}, false
	}
	return ResetJob{ID: jobID, UserID: userID, Email: email, Token: token}, true
}

func (q *ResetQueue) markProcessing(ctx context.Context, entry ResetJob) (ResetJob, error) {
	job, _, err := q.GetJob(ctx, entry.ID)
	if err != nil {
		return ResetJob{}, err
	}
	job.ID = entry.ID
	job.UserID = entry.UserID
	job.Email = entry.Email
	job.Token = entry.Token
	job.Attempts++
	job.Status = StatusProcessing
	job.UpdatedAt = time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = job.UpdatedAt
	}
	if err := q.writeStatus(ctx, job); err != nil {
		return ResetJob{}, err
	}
	return job, nil
}

func (q *ResetQueue) setStatus(ctx context.Context, job ResetJob, status, errMsg string) error {
	job.Status = status
	job.ErrorMessage = errMsg
	job.UpdatedAt = time.Now().UTC()
	return q.writeStatus(ctx, job)
}

func (q *ResetQueue) writeStatus(ctx context.Context, job ResetJob) error {
	key := q.jobKey(job.ID)
	payload := map[string]any{
		"id":        job.ID,
		"userId":    strconv.FormatInt(job.UserID, 10),
		"email":     job.Email,
		"status":    job.Status,
		"error":     job.ErrorMessage,
		"attempts":  strconv.Itoa(job.Attempts),
		"createdAt": job.CreatedAt.Format(time.RFC3339Nano),
		"updatedAt": job.UpdatedAt.Format(time.RFC3339Nano),
	}
	if err := q.client.HSet(ctx, key, payload).Err(); err != nil {
		return err
	}
	_ = q.client.Expire(ctx, key, q.jobTTL).Err()
	return nil
}

func (q *ResetQueue) jobKey(jobID string) string {
	return fmt.Sprintf("job:%s:%s", q.stream, jobID)
}

func decodeJob(jobID string, data map[string]string) ResetJob {
	job := ResetJob{
		ID:           jobID,
		Email:        data["email"],
		Status:       data["status"],
		ErrorMessage: data["error"],
	}
	if n, err := strconv.ParseInt(data["userId"], 10, 64); err == nil {
		job.UserID = n
	}
	if n, err := strconv.Atoi(data["attempts"]); err == nil {
		job.Attempts = n
	}
	if t, err := time.Parse(time.RFC3339Nano, data["createdAt"]); err == nil {
		job.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, data["updatedAt"]); err == nil {
		job.UpdatedAt = t
	}
	return job
}
