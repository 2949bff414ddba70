package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	transcriptKeyPrefix = "chat_transcript:"
	transcriptTTL       = 24 * time.Hour
)

// TranscriptMessage is one stored chat turn.
type TranscriptMessage struct {
	ID        string     `json:"id"`
	Role      string     `json:"role"`
	Body      string     `json:"body"`
	Intent    IntentKind `json:"intent,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// TranscriptStore keeps recent chat turns per session in a capped Redis list.
// A nil store accepts writes and returns empty history.
type TranscriptStore struct {
	redis       *redis.Client
	tracer      trace.Tracer
	maxMessages int64
}

func NewTranscriptStore(redisClient *redis.Client) *TranscriptStore {
	if redisClient == nil {
		return nil
	}
	return &TranscriptStore{
		redis:       redisClient,
		tracer:      otel.Tracer("appointments.internal.conversation.transcript"),
		maxMessages: 200,
	}
}

func (s *TranscriptStore) Append(ctx context.Context, sessionID string, msg TranscriptMessage) error {
	if s == nil || s.redis == nil {
		return nil
	}
	if sessionID == "" {
		return errors.New("conversation: transcript session id required")
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("conversation: marshal transcript message: %w", err)
	}

	ctx, span := s.tracer.Start(ctx, "conversation.transcript.append")
	defer span.End()

	key := transcriptKeyPrefix + sessionID
	pipe := s.redis.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, transcriptTTL)
	if s.maxMessages > 0 {
		pipe.LTrim(ctx, key, -s.maxMessages, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: append transcript message: %w", err)
	}
	return nil
}

// List returns the last limit turns in order, or all of them when limit <= 0.
func (s *TranscriptStore) List(ctx context.Context, sessionID string, limit int64) ([]TranscriptMessage, error) {
	if s == nil || s.redis == nil {
		return []TranscriptMessage{}, nil
	}
	if sessionID == "" {
		return nil, errors.New("conversation: transcript session id required")
	}

	ctx, span := s.tracer.Start(ctx, "conversation.transcript.list")
	defer span.End()

	start := int64(0)
	if limit > 0 {
		start = -limit
	}
	raw, err := s.redis.LRange(ctx, transcriptKeyPrefix+sessionID, start, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []TranscriptMessage{}, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: list transcript: %w", err)
	}

	out := make([]TranscriptMessage, 0, len(raw))
	for _, item := range raw {
		var msg TranscriptMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			span.RecordError(err)
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}
