package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/medscribe/medscribe-backend/internal/dify"
	"github.com/medscribe/medscribe-backend/internal/logger"
)

// Bus fans normalized task events out across replicas, so a poll hitting a
// different instance than the one running the generation still sees history.
type Bus interface {
	Publish(ctx context.Context, userID uuid.UUID, taskID string, ev dify.NormalizedEvent) error
	StartForwarder(ctx context.Context, onEvent func(userID uuid.UUID, taskID string, ev dify.NormalizedEvent)) error
	Close() error
}

type busMessage struct {
	UserID uuid.UUID            `json:"user_id"`
	TaskID string               `json:"task_id"`
	Event  dify.NormalizedEvent `json:"event"`
}

type redisBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

// NewRedisBus connects to Redis using REDIS_ADDR / REDIS_CHANNEL. Callers
// treat a missing REDIS_ADDR as "single replica, no bus".
func NewRedisBus(log *logger.Logger, addr, channel string) (Bus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	if strings.TrimSpace(channel) == "" {
		channel = "task-events"
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

	return &redisBus{
		log:     log.With("component", "RedisTaskBus"),
		rdb:     rdb,
		channel: channel,
	}, nil
}

func (b *redisBus) Publish(ctx context.Context, userID uuid.UUID, taskID string, ev dify.NormalizedEvent) error {
	raw, err := json.Marshal(busMessage{UserID: userID, TaskID: taskID, Event: ev})
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *redisBus) StartForwarder(ctx context.Context, onEvent func(userID uuid.UUID, taskID string, ev dify.NormalizedEvent)) error {
	if onEvent == nil {
		return fmt.Errorf("onEvent callback required")
	}
	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				var msg busMessage
				if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
					b.log.Warn("Bad task bus payload", "error", err)
					continue
				}
				onEvent(msg.UserID, msg.TaskID, msg.Event)
			}
		}
	}()
	return nil
}

func (b *redisBus) Close() error {
	if b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
