package notify

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"aulabot/internal/planner"
)

// Notifier pushes run outcomes to a Telegram chat. A nil *Notifier is
// valid and does nothing, so callers never need to guard.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *zerolog.Logger
}

// NewTelegram creates a notifier for the given bot token and chat.
func NewTelegram(token string, chatID int64, logger *zerolog.Logger) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &Notifier{bot: bot, chatID: chatID, logger: logger}, nil
}

// PlanBooked reports a successfully booked day.
func (n *Notifier) PlanBooked(day string, room string, plan *planner.Plan, dryRun bool) {
	if n == nil {
		return
	}
	var b strings.Builder
	if dryRun {
		fmt.Fprintf(&b, "[dry run] %s %s:\n", day, room)
	} else {
		fmt.Fprintf(&b, "Booked %s %s:\n", day, room)
	}
	for _, seg := range plan.Segments {
		if seg.Owned {
			fmt.Fprintf(&b, "  %s-%s already yours (%s)\n", seg.Start, seg.End, seg.Seat)
		} else {
			fmt.Fprintf(&b, "  %s-%s seat %s\n", seg.Start, seg.End, seg.Seat)
		}
	}
	n.send(b.String())
}

// DayUnreachable reports a day that could not be fully covered.
func (n *Notifier) DayUnreachable(day string, room string, covered planner.Interval) {
	if n == nil {
		return
	}
	if covered.Empty() {
		n.send(fmt.Sprintf("No coverage possible for %s %s", day, room))
		return
	}
	n.send(fmt.Sprintf("Only %s-%s coverable for %s %s", covered.Start, covered.End, day, room))
}

// DayFailed reports a day aborted by an error.
func (n *Notifier) DayFailed(day string, err error) {
	if n == nil {
		return
	}
	n.send(fmt.Sprintf("Booking failed for %s: %v", day, err))
}

func (n *Notifier) send(text string) {
	if _, err := n.bot.Send(tgbotapi.NewMessage(n.chatID, text)); err != nil {
		n.logger.Error().Err(err).Msg("failed to send telegram notification")
	}
}
