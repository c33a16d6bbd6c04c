package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/riskibarqy/matchodds/internal/domain/match"
	"github.com/riskibarqy/matchodds/internal/domain/progress"
	"github.com/riskibarqy/matchodds/internal/platform/logging"
	"github.com/riskibarqy/matchodds/internal/usecase"
)

const (
	defaultSendInterval = 2 * time.Second
	defaultQueueSize    = 100
)

// MessageSender is the part of the bot API the notifier uses.
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type TelegramConfig struct {
	ChatID       int64
	SendInterval time.Duration
	QueueSize    int
	Logger       *logging.Logger
}

// TelegramNotifier reports failed pipeline runs and finished preload sweeps
// to one chat. Messages are queued and sent at most once per SendInterval;
// when the queue is full new messages are dropped.
type TelegramNotifier struct {
	sender   MessageSender
	chatID   int64
	interval time.Duration
	logger   *logging.Logger

	queue     chan string
	wg        sync.WaitGroup
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

func NewTelegramNotifier(sender MessageSender, cfg TelegramConfig) *TelegramNotifier {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	interval := cfg.SendInterval
	if interval < 0 {
		interval = 0
	} else if interval == 0 {
		interval = defaultSendInterval
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}

	n := &TelegramNotifier{
		sender:   sender,
		chatID:   cfg.ChatID,
		interval: interval,
		logger:   logger,
		queue:    make(chan string, size),
	}
	n.wg.Add(1)
	go n.run()
	return n
}

// NewBot connects to the bot API and checks the token.
func NewBot(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(strings.TrimSpace(token))
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	bot.Debug = false
	return bot, nil
}

// Publish reacts to failed match-progress events only.
func (n *TelegramNotifier) Publish(ctx context.Context, topic string, payload any) error {
	if topic != progress.TopicMatchProgress {
		return nil
	}
	event, ok := payload.(progress.Event)
	if !ok || event.Status != match.StatusFailed {
		return nil
	}
	n.enqueue(ctx, fmt.Sprintf("❌ Match %s failed\n%s", event.MatchID, event.Message))
	return nil
}

func (n *TelegramNotifier) SweepFinished(ctx context.Context, summary usecase.SweepSummary) {
	state := "finished"
	if summary.Stopped {
		state = "stopped"
	}
	text := fmt.Sprintf(
		"Preload sweep %s %s in %s\nprocessed=%d succeeded=%d failed=%d skipped=%d busy=%d total=%d",
		shortID(summary.SweepID),
		state,
		summary.FinishedAt.Sub(summary.StartedAt).Round(time.Second),
		summary.Processed,
		summary.Succeeded,
		summary.Failed,
		summary.Skipped,
		summary.Busy,
		summary.Total,
	)
	n.enqueue(ctx, text)
}

// Close sends what is queued and stops the worker.
func (n *TelegramNotifier) Close() {
	n.closeOnce.Do(func() {
		n.mu.Lock()
		n.closed = true
		close(n.queue)
		n.mu.Unlock()
	})
	n.wg.Wait()
}

func (n *TelegramNotifier) enqueue(ctx context.Context, text string) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return
	}
	select {
	case n.queue <- text:
	default:
		n.logger.WarnContext(ctx, "telegram queue full, dropping message", "queue_size", cap(n.queue))
	}
}

func (n *TelegramNotifier) run() {
	defer n.wg.Done()

	var lastSend time.Time
	for text := range n.queue {
		if wait := n.interval - time.Since(lastSend); !lastSend.IsZero() && wait > 0 {
			time.Sleep(wait)
		}
		lastSend = time.Now()

		msg := tgbotapi.NewMessage(n.chatID, text)
		if _, err := n.sender.Send(msg); err != nil {
			n.logger.Warn("telegram send failed", "chat_id", n.chatID, "error", err)
		}
	}
}

func shortID(v string) string {
	if len(v) > 8 {
		return v[:8]
	}
	return v
}
