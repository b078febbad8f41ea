// Package telegram posts run summaries to an operator chat, so a
// broken source surfaces without anyone watching the logs.
package telegram

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"eventsHarvester/internal/config"
	"eventsHarvester/internal/models/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Notifier struct {
	logger *slog.Logger
	tgbot  *tgbotapi.BotAPI
	chatID int64
}

// New connects the bot. Returns (nil, nil) when the notifier is
// disabled in config; callers treat a nil notifier as "don't notify".
func New(logger *slog.Logger, cfg config.NotifierConfig) (*Notifier, error) {
	op := "telegram.New()"
	log := logger.With(slog.String("op", op))

	if !cfg.Enabled {
		log.Info("notifier disabled")
		return nil, nil
	}

	bot, err := tgbotapi.NewBotAPI(cfg.ApiToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("notifier connected", slog.String("botName", bot.Self.UserName))

	return &Notifier{
		logger: logger,
		tgbot:  bot,
		chatID: cfg.ChatID,
	}, nil
}

// Notify posts one run's summary.
func (n *Notifier) Notify(summary domain.RunSummary) error {
	op := "Notifier.Notify()"

	msg := tgbotapi.NewMessage(n.chatID, formatRunMessage(summary))
	msg.ParseMode = tgbotapi.ModeHTML

	if _, err := n.tgbot.Send(msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	n.logger.Debug("run summary sent",
		slog.String("op", op),
		slog.String("source", summary.Source),
	)
	return nil
}

func formatRunMessage(s domain.RunSummary) string {
	var sb strings.Builder

	if s.Err != "" {
		fmt.Fprintf(&sb, "❌ <b>%s</b> run failed\n\n%s\n", s.Source, s.Err)
		return sb.String()
	}

	fmt.Fprintf(&sb, "✅ <b>%s</b>\n\n", s.Source)
	fmt.Fprintf(&sb, "Found: %d\n", s.Found)
	fmt.Fprintf(&sb, "Created: %d\n", s.Created)
	fmt.Fprintf(&sb, "Updated: %d\n", s.Updated)
	fmt.Fprintf(&sb, "Skipped: %d\n", s.Skipped)

	if len(s.SkipReasons) > 0 {
		reasons := make([]string, 0, len(s.SkipReasons))
		for r := range s.SkipReasons {
			reasons = append(reasons, r)
		}
		sort.Strings(reasons)

		sb.WriteString("\n")
		for _, r := range reasons {
			fmt.Fprintf(&sb, "  • %s: %d\n", r, s.SkipReasons[r])
		}
	}

	fmt.Fprintf(&sb, "\n⏱ %s", s.FinishedAt.Sub(s.StartedAt).Round(10*time.Millisecond))

	return sb.String()
}
