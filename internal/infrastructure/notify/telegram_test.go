package notify

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/riskibarqy/matchodds/internal/domain/match"
	"github.com/riskibarqy/matchodds/internal/domain/progress"
	"github.com/riskibarqy/matchodds/internal/usecase"
)

type recordingSender struct {
	mu    sync.Mutex
	texts []string
}

func (s *recordingSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		s.texts = append(s.texts, msg.Text)
	}
	return tgbotapi.Message{}, nil
}

func TestTelegramNotifier_SendsOnlyFailures(t *testing.T) {
	t.Parallel()

	sender := &recordingSender{}
	notifier := NewTelegramNotifier(sender, TelegramConfig{ChatID: 42, SendInterval: -1})

	ctx := context.Background()
	_ = notifier.Publish(ctx, progress.TopicMatchProgress, progress.Event{MatchID: "1", Status: match.StatusInProgress})
	_ = notifier.Publish(ctx, progress.TopicMatchesBatch, progress.MatchesBatch{})
	_ = notifier.Publish(ctx, progress.TopicMatchProgress, progress.Event{MatchID: "2701234", Status: match.StatusFailed, Message: "asia handicap: timeout"})
	notifier.Close()

	if len(sender.texts) != 1 {
		t.Fatalf("expected one message, got %d: %v", len(sender.texts), sender.texts)
	}
	if !strings.Contains(sender.texts[0], "2701234") || !strings.Contains(sender.texts[0], "asia handicap: timeout") {
		t.Fatalf("unexpected message: %s", sender.texts[0])
	}
}

func TestTelegramNotifier_SweepSummary(t *testing.T) {
	t.Parallel()

	sender := &recordingSender{}
	notifier := NewTelegramNotifier(sender, TelegramConfig{SendInterval: -1})

	started := time.Date(2025, 5, 15, 1, 0, 0, 0, time.UTC)
	notifier.SweepFinished(context.Background(), usecase.SweepSummary{
		SweepID:    "0b7e5f4c-1234",
		Total:      10,
		Processed:  4,
		Succeeded:  3,
		Failed:     1,
		Stopped:    true,
		StartedAt:  started,
		FinishedAt: started.Add(90 * time.Second),
	})
	notifier.Close()

	if len(sender.texts) != 1 {
		t.Fatalf("expected one message, got %d", len(sender.texts))
	}
	text := sender.texts[0]
	if !strings.Contains(text, "0b7e5f4c stopped in 1m30s") || !strings.Contains(text, "processed=4 succeeded=3 failed=1") {
		t.Fatalf("unexpected summary: %s", text)
	}
}

func TestTelegramNotifier_CloseIsIdempotent(t *testing.T) {
	t.Parallel()

	notifier := NewTelegramNotifier(&recordingSender{}, TelegramConfig{})
	notifier.Close()
	notifier.Close()
	notifier.SweepFinished(context.Background(), usecase.SweepSummary{})
}
