// Package notify publishes opened trades to a Telegram chat.
package notify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"quick-flip-scalper/internal/logger"
	"quick-flip-scalper/internal/types"
)

var ErrMissingChat = errors.New("TELEGRAM_CHAT_ID is empty or not numeric")

// sender is the part of tgbotapi.BotAPI the notifier uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Telegram struct {
	bot    sender
	chatID int64
	loc    *time.Location
}

// FromEnv connects with TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID. An empty
// token returns (nil, nil) and notifications stay off.
func FromEnv(ctx context.Context, loc *time.Location) (*Telegram, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		logger.Warn(ctx, "TELEGRAM_BOT_TOKEN empty: trade notifications disabled")
		return nil, nil
	}
	chatID, err := strconv.ParseInt(strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")), 10, 64)
	if err != nil {
		return nil, ErrMissingChat
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram connect: %w", err)
	}
	logger.Info(ctx, "Telegram connected", "bot", bot.Self.UserName)
	return newTelegram(bot, chatID, loc), nil
}

func newTelegram(bot sender, chatID int64, loc *time.Location) *Telegram {
	if loc == nil {
		loc = time.UTC
	}
	return &Telegram{bot: bot, chatID: chatID, loc: loc}
}

// Opened posts the entry of t. A nil receiver is a no-op.
func (n *Telegram) Opened(ctx context.Context, t types.Trade) error {
	if n == nil {
		return nil
	}
	msg := tgbotapi.NewMessage(n.chatID, Format(t, n.loc))
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send %s: %w", t.ID, err)
	}
	logger.Debug(ctx, "Trade notification sent", "trade_id", t.ID, "symbol", t.Symbol)
	return nil
}

// Format renders the entry message for t.
func Format(t types.Trade, loc *time.Location) string {
	mark, dir := "🟢", "📈 LONG"
	if t.Direction == types.Short {
		mark, dir = "🔴", "📉 SHORT"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s *Quick Flip Scalper Signal* %s\n\n", mark, mark)
	fmt.Fprintf(&b, "*%s* %s\n\n", dir, t.Symbol)
	fmt.Fprintf(&b, "📊 *Pattern:* %s\n\n", patternTitle(t.Pattern))
	b.WriteString("💰 *Trade Parameters:*\n")
	fmt.Fprintf(&b, "• Entry: $%.2f\n", t.EntryPrice)
	fmt.Fprintf(&b, "• Target: $%.2f\n", t.TargetPrice)
	fmt.Fprintf(&b, "• Stop Loss: $%.2f\n\n", t.StopPrice)
	fmt.Fprintf(&b, "🕐 *Time:* %s", t.EntryTime.In(loc).Format("2006-01-02 15:04 MST"))
	return b.String()
}

func patternTitle(p types.PatternKind) string {
	words := strings.Split(string(p), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
