package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"custody/internal/domain/ledger"

	"github.com/redis/go-redis/v9"
)

// DefaultStreamMaxLen bounds the event stream; older entries are trimmed
// approximately.
const DefaultStreamMaxLen = 100_000

// EventStream appends committed ledger events to a redis stream so other
// processes can follow the log with XREAD.
type EventStream struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewEventStream(client *redis.Client, stream string) *EventStream {
	return &EventStream{client: client, stream: stream, maxLen: DefaultStreamMaxLen}
}

func (s *EventStream) Publish(ctx context.Context, events []ledger.Event) error {
	if len(events) == 0 {
		return nil
	}
	pipe := s.client.Pipeline()
	for _, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to marshal event %s: %w", e.ID, err)
		}
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: s.stream,
			MaxLen: s.maxLen,
			Approx: true,
			Values: map[string]interface{}{
				"seq":     strconv.FormatUint(e.Seq, 10),
				"type":    string(e.Type),
				"payload": payload,
			},
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append to stream %s: %w", s.stream, err)
	}
	return nil
}
