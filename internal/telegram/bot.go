// Package telegram is the bot's inbound surface: the long-poll update
// loop, the /start deep-link routing between redemption payloads and file
// references, and delivery of storage-channel messages.
package telegram

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/filestorebot/filestorebot/internal/config"
	"github.com/filestorebot/filestorebot/internal/repositories"
	"github.com/filestorebot/filestorebot/internal/services"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot wires the Telegram client to the access controller and its
// collaborators. Each update is handled on its own goroutine; the token
// store is the only shared mutable state between them.
type Bot struct {
	api          *tgbotapi.BotAPI
	cfg          *config.Config
	access       *services.AccessService
	verification *services.VerificationService
	userRepo     *repositories.UserRepository
	deliverer    *ChannelDeliverer
	inviteLink   string
	logger       *slog.Logger
}

// New connects to the Bot API and assembles the bot
func New(
	cfg *config.Config,
	access *services.AccessService,
	verification *services.VerificationService,
	userRepo *repositories.UserRepository,
	logger *slog.Logger,
) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot client: %w", err)
	}

	b := &Bot{
		api:          api,
		cfg:          cfg,
		access:       access,
		verification: verification,
		userRepo:     userRepo,
		deliverer:    NewChannelDeliverer(api, cfg.Bot.ChannelID, cfg.Bot.ProtectContent, cfg.Bot.CustomCaption, logger),
		logger:       logger,
	}

	if cfg.Bot.ForceSubChanID != 0 {
		chat, err := api.GetChat(tgbotapi.ChatInfoConfig{
			ChatConfig: tgbotapi.ChatConfig{ChatID: cfg.Bot.ForceSubChanID},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to resolve force-sub channel: %w", err)
		}
		b.inviteLink = chat.InviteLink
	}

	logger.Info("bot authorized", slog.String("username", api.Self.UserName))
	return b, nil
}

// Run consumes updates until the context is cancelled
func (b *Bot) Run(ctx context.Context) {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30

	updates := b.api.GetUpdatesChan(updateConfig)

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	b.logger.Info("update loop started")

	for update := range updates {
		go b.handleUpdate(ctx, update)
	}

	b.logger.Info("update loop stopped")
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("panic in update handler", slog.Any("panic", r))
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(ctx, update.Message)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat == nil || !msg.Chat.IsPrivate() || msg.From == nil {
		return
	}

	switch msg.Command() {
	case "start":
		b.handleStart(ctx, msg)
	case "users":
		b.handleUsers(ctx, msg)
	case "broadcast":
		b.handleBroadcast(ctx, msg)
	}
}

func (b *Bot) reply(chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) {
	out := tgbotapi.NewMessage(chatID, text)
	out.ParseMode = tgbotapi.ModeHTML
	out.DisableWebPagePreview = true
	if markup != nil {
		out.ReplyMarkup = markup
	}

	if _, err := b.api.Send(out); err != nil {
		b.logger.Error("failed to send reply", slog.Int64("chat_id", chatID), slog.Any("error", err))
	}
}
