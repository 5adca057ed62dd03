package bot

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	telebot "gopkg.in/telebot.v3"

	"github.com/pedrovega1/it-helpdesk/internal/config"
)

// Telegram is the chat-channel transport: it feeds inbound text into the
// intake state machine and implements the outbound Notifier.
type Telegram struct {
	bot    *telebot.Bot
	intake *Intake
	logger *zap.Logger
}

// NewTelegram builds the long-polling Telegram bot.
func NewTelegram(cfg config.BotConfig, intake *Intake, logger *zap.Logger) (*Telegram, error) {
	pref := telebot.Settings{
		Token:  cfg.Token,
		Poller: &telebot.LongPoller{Timeout: time.Duration(cfg.PollTimeoutSec) * time.Second},
		OnError: func(err error, _ telebot.Context) {
			logger.Error("telegram bot error", zap.Error(err))
		},
	}
	b, err := telebot.NewBot(pref)
	if err != nil {
		return nil, err
	}

	t := &Telegram{bot: b, intake: intake, logger: logger}
	b.Handle(telebot.OnText, t.onText)
	return t, nil
}

func (t *Telegram) onText(c telebot.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	chatID := strconv.FormatInt(sender.ID, 10)
	handle := fmt.Sprintf("ID: %d", sender.ID)
	if sender.Username != "" {
		handle = "@" + sender.Username
	}
	reply := t.intake.HandleInbound(context.Background(), chatID, handle, c.Text())
	return c.Send(reply)
}

// Start begins long polling. It blocks, so callers run it on its own
// goroutine.
func (t *Telegram) Start() {
	t.logger.Info("telegram bot started", zap.String("username", t.bot.Me.Username))
	t.bot.Start()
}

// Stop terminates the poller.
func (t *Telegram) Stop() {
	t.bot.Stop()
}

// Send delivers text to a reporter's chat. Implements service.Notifier.
func (t *Telegram) Send(_ context.Context, chatID, text string) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", chatID, err)
	}
	_, err = t.bot.Send(&telebot.User{ID: id}, text)
	return err
}
