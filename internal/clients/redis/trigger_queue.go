// Package redis holds the trigger queue that connects the live chat
// responder to the requalification core: the responder pushes a customer
// id after each inbound message, the service pops and runs a merge cycle.
package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/pianocrm-backend/internal/platform/logger"
)

type TriggerQueue interface {
	Push(ctx context.Context, customerID int64) error
	// StartConsumer blocks until ctx is cancelled, invoking handle for
	// each popped customer id. Handlers run sequentially; fan-out belongs
	// to the batch service.
	StartConsumer(ctx context.Context, handle func(ctx context.Context, customerID int64))
	Close() error
}

type triggerQueue struct {
	log *logger.Logger
	rdb *goredis.Client
	key string
}

func NewTriggerQueue(log *logger.Logger) (TriggerQueue, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	key := strings.TrimSpace(os.Getenv("REDIS_QUEUE_KEY"))
	if key == "" {
		key = "crm:requalify"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &triggerQueue{
		log: log.With("service", "TriggerQueue"),
		rdb: rdb,
		key: key,
	}, nil
}

func (q *triggerQueue) Push(ctx context.Context, customerID int64) error {
	return q.rdb.LPush(ctx, q.key, strconv.FormatInt(customerID, 10)).Err()
}

func (q *triggerQueue) StartConsumer(ctx context.Context, handle func(ctx context.Context, customerID int64)) {
	q.log.Info("Trigger queue consumer started", "key", q.key)
	for {
		if ctx.Err() != nil {
			q.log.Info("Trigger queue consumer stopped")
			return
		}

		vals, err := q.rdb.BRPop(ctx, 5*time.Second, q.key).Result()
		if err != nil {
			if errors.Is(err, goredis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				q.log.Info("Trigger queue consumer stopped")
				return
			}
			q.log.Warn("Trigger queue pop failed", "error", err)
			time.Sleep(time.Second)
			continue
		}
		if len(vals) != 2 {
			continue
		}

		customerID, err := strconv.ParseInt(strings.TrimSpace(vals[1]), 10, 64)
		if err != nil {
			q.log.Warn("Trigger queue entry is not a customer id", "value", vals[1])
			continue
		}
		handle(ctx, customerID)
	}
}

func (q *triggerQueue) Close() error {
	return q.rdb.Close()
}
