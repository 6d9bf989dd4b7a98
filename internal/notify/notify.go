// Package notify delivers reminder messages to Telegram chats behind a
// token-bucket rate limit, keeping fires below the Bot API flood
// ceiling.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	tele "gopkg.in/telebot.v4"
	"golang.org/x/time/rate"

	"remindbot/pkg/logx"
)

// API is the slice of the telebot client the sender needs.
type API interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

type Config struct {
	// RatePerSec caps outgoing messages per second across all chats.
	RatePerSec float64
	Burst      int
	// Prefix is prepended to every delivered reminder text.
	Prefix string
}

// DefaultPrefix marks a delivery as a reminder fire rather than a bot
// dialog reply.
const DefaultPrefix = "🔔 Напоминание:\n\n"

// Sender implements reminder.Notifier over the Bot API.
type Sender struct {
	bot     API
	limiter *rate.Limiter
	prefix  string
	log     logx.Logger
}

func New(bot API, cfg Config, log logx.Logger) *Sender {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 3
	}
	if cfg.Burst <= 0 {
		cfg.Burst = int(cfg.RatePerSec)
		if cfg.Burst < 1 {
			cfg.Burst = 1
		}
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Sender{
		bot:     bot,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
		prefix:  cfg.Prefix,
		log:     log,
	}
}

// ApplyRate retunes the limiter, used on config reload. Zero or
// negative values keep the current setting.
func (s *Sender) ApplyRate(ratePerSec float64, burst int) {
	if ratePerSec > 0 {
		s.limiter.SetLimit(rate.Limit(ratePerSec))
	}
	if burst > 0 {
		s.limiter.SetBurst(burst)
	}
}

// Send delivers one reminder text to a chat. On a flood error it
// honors the server's retry-after once before giving up.
func (s *Sender) Send(ctx context.Context, chatID int64, text string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	_, err := s.bot.Send(tele.ChatID(chatID), s.prefix+text)
	var flood tele.FloodError
	if errors.As(err, &flood) {
		wait := time.Duration(flood.RetryAfter) * time.Second
		s.log.Warn("flood limit hit, backing off",
			logx.Int64("chat", chatID), logx.Duration("retry_after", wait))
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
		_, err = s.bot.Send(tele.ChatID(chatID), s.prefix+text)
	}
	if err != nil {
		return fmt.Errorf("deliver to chat %d: %w", chatID, err)
	}
	return nil
}
