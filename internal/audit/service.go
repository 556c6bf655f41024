package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/mkshitij1763/e-commerce-api/internal/events"
	"github.com/mkshitij1763/e-commerce-api/internal/redisx"
)

// Recorder is implemented by *Repo.
type Recorder interface {
	Insert(ctx context.Context, rec Record) error
}

// Service consumes order events and records them exactly once.
type Service struct {
	Repo        Recorder
	Redis       *redis.Client
	ServiceName string
	Log         *zap.Logger
}

// HandleEvent is wired as the consumer handler for every order topic.
func (s *Service) HandleEvent(ctx context.Context, m kafkago.Message) error {
	var env events.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		// A malformed message will never parse; log and move on rather than
		// blocking the partition.
		s.Log.Warn("dropping malformed event", zap.String("topic", m.Topic), zap.Error(err))
		return nil
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	if seen, err := redisx.Exists(ctx, s.Redis, dkey); err == nil && seen {
		return nil
	}

	rec := Record{
		EventID:    env.EventID,
		EventType:  env.EventType,
		OrderID:    env.CorrelationID,
		Producer:   env.Producer,
		OccurredAt: env.OccurredAt,
		Payload:    env.Payload,
	}
	if err := s.Repo.Insert(ctx, rec); err != nil {
		return err
	}

	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	return nil
}
