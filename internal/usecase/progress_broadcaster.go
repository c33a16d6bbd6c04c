package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/riskibarqy/matchodds/internal/domain/match"
	"github.com/riskibarqy/matchodds/internal/domain/progress"
	"github.com/riskibarqy/matchodds/internal/platform/logging"
)

// ProgressSink receives published events. Delivery is best effort: a sink
// has no backpressure on the broadcaster and late subscribers miss events.
type ProgressSink interface {
	Publish(ctx context.Context, topic string, payload any) error
}

type ProgressBroadcaster struct {
	mu     sync.RWMutex
	sinks  []ProgressSink
	logger *logging.Logger
	now    func() time.Time
}

func NewProgressBroadcaster(logger *logging.Logger, sinks ...ProgressSink) *ProgressBroadcaster {
	if logger == nil {
		logger = logging.Default()
	}

	b := &ProgressBroadcaster{
		logger: logger,
		now:    time.Now,
	}
	for _, sink := range sinks {
		b.AddSink(sink)
	}
	return b
}

func (b *ProgressBroadcaster) AddSink(sink ProgressSink) {
	if sink == nil {
		return
	}
	b.mu.Lock()
	b.sinks = append(b.sinks, sink)
	b.mu.Unlock()
}

// Broadcast publishes a match progress event. It never fails.
func (b *ProgressBroadcaster) Broadcast(ctx context.Context, matchID string, value int, status match.Status, message string) {
	event := progress.Event{
		MatchID:   matchID,
		Progress:  value,
		Status:    status,
		Message:   message,
		Timestamp: progress.Timestamp(b.now()),
	}

	b.logger.DebugContext(ctx, "match progress",
		"match_id", matchID,
		"progress", value,
		"status", status,
		"message", message,
	)
	b.publish(ctx, progress.TopicMatchProgress, event)
}

// BroadcastMatchesBatch publishes the records created so far by a list crawl.
func (b *ProgressBroadcaster) BroadcastMatchesBatch(ctx context.Context, matches []match.Record, batchIndex, totalBatches int) {
	batch := progress.MatchesBatch{
		Matches:      matches,
		BatchIndex:   batchIndex,
		TotalBatches: totalBatches,
		Timestamp:    progress.Timestamp(b.now()),
		Complete:     batchIndex >= totalBatches,
	}
	b.publish(ctx, progress.TopicMatchesBatch, batch)
}

func (b *ProgressBroadcaster) publish(ctx context.Context, topic string, payload any) {
	b.mu.RLock()
	sinks := append([]ProgressSink(nil), b.sinks...)
	b.mu.RUnlock()

	if len(sinks) == 0 {
		b.logger.DebugContext(ctx, "no progress subscribers", "topic", topic)
		return
	}

	for _, sink := range sinks {
		if err := safePublish(ctx, sink, topic, payload); err != nil {
			b.logger.WarnContext(ctx, "publish progress failed", "topic", topic, "error", err)
		}
	}
}

func safePublish(ctx context.Context, sink ProgressSink, topic string, payload any) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("progress sink panicked: %v", rec)
		}
	}()
	return sink.Publish(ctx, topic, payload)
}
