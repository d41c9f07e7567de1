package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/filestorebot/filestorebot/internal/models"
	"github.com/filestorebot/filestorebot/internal/services"
	pkglogger "github.com/filestorebot/filestorebot/pkg/logger"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	verifyRequiredText = "<b>🔒 Verification required</b>\n\nYou must verify before accessing any files.\n\n<i>Use the button below to verify:</i>"
	verifySuccessText  = "<b>✅ Verification successful!</b>\n\nYou now have full access to all files.\n\n⏳ Access is valid until midnight (UTC)."
	verifyInvalidText  = "<b>⌛ This verification link is invalid or has expired.</b>\n\nGenerate a new one below."
	notYourLinkText    = "<b>⚠️ This verification link isn't yours.</b>"
	transientErrText   = "<b>❌ Something went wrong on our side. Please try again in a moment.</b>"
	malformedText      = "<b>❌ This file link is not valid.</b>"
	nothingToSendText  = "<b>Nothing to deliver for this link.</b>"
	processingText     = "<b>⏳ Processing your request...</b>"
	forceSubText       = "<b>📢 Join our channel to use this bot.</b>"

	newLinkCallback = "get_verify"
)

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	payload := msg.CommandArguments()

	b.registerUser(ctx, userID)

	if payload != "" && services.IsChallengePayload(payload) {
		b.handleRedemption(ctx, msg, payload)
		return
	}

	if !b.checkSubscribed(msg, payload) {
		return
	}

	if payload == "" {
		b.reply(msg.Chat.ID, b.cfg.Bot.StartMessage, nil)
		return
	}

	b.handleFileRequest(ctx, msg, payload)
}

// handleRedemption processes a verify-{userID}-{token} deep-link
func (b *Bot) handleRedemption(ctx context.Context, msg *tgbotapi.Message, payload string) {
	userID := msg.From.ID

	claimedID, token, err := services.ParseChallengePayload(payload)
	if err != nil {
		b.logger.Info("malformed redemption payload",
			slog.Int64("user_id", userID),
			slog.String("payload", pkglogger.SanitizedPayload(payload)))
		b.reply(msg.Chat.ID, verifyInvalidText, newLinkKeyboard())
		return
	}

	if claimedID != userID {
		b.reply(msg.Chat.ID, notYourLinkText, nil)
		return
	}

	switch err := b.verification.Redeem(ctx, userID, claimedID, token); {
	case err == nil:
		b.reply(msg.Chat.ID, verifySuccessText, nil)
	case errors.Is(err, models.ErrLinkInvalid):
		b.reply(msg.Chat.ID, verifyInvalidText, newLinkKeyboard())
	default:
		b.reply(msg.Chat.ID, transientErrText, nil)
	}
}

// handleFileRequest runs the access decision and, when allowed, delivers
// the referenced messages
func (b *Bot) handleFileRequest(ctx context.Context, msg *tgbotapi.Message, payload string) {
	userID := msg.From.ID

	decision, err := b.access.Authorize(ctx, userID, payload)
	if err != nil {
		b.reply(msg.Chat.ID, transientErrText, nil)
		return
	}

	switch decision.Outcome {
	case services.OutcomeChallenge:
		b.reply(msg.Chat.ID, verifyRequiredText, b.challengeKeyboard(decision.ChallengeURL))

	case services.OutcomeDeny:
		b.reply(msg.Chat.ID, malformedText, nil)

	case services.OutcomeAllow:
		ids := decision.Reference.MessageIDs()
		if len(ids) == 0 {
			b.reply(msg.Chat.ID, nothingToSendText, nil)
			return
		}

		b.reply(msg.Chat.ID, processingText, nil)

		results := b.deliverer.DeliverRange(ctx, userID, ids)
		failed := 0
		for _, res := range results {
			if res.Err != nil {
				failed++
			}
		}
		if failed > 0 {
			b.reply(msg.Chat.ID, fmt.Sprintf("<b>❌ %d of %d files could not be delivered.</b>", failed, len(results)), nil)
		}
	}
}

// handleCallback serves the "get new link" button under a rejected
// redemption
func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if query.Data != newLinkCallback || query.From == nil || query.Message == nil {
		return
	}

	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		b.logger.Error("failed to answer callback", slog.Any("error", err))
	}

	url, err := b.verification.IssueChallenge(ctx, query.From.ID)
	if err != nil {
		b.reply(query.Message.Chat.ID, transientErrText, nil)
		return
	}

	b.reply(query.Message.Chat.ID, verifyRequiredText, b.challengeKeyboard(url))
}

func (b *Bot) handleUsers(ctx context.Context, msg *tgbotapi.Message) {
	if !b.cfg.Bot.IsAdmin(msg.From.ID) {
		return
	}

	count, err := b.userRepo.Count(ctx)
	if err != nil {
		b.reply(msg.Chat.ID, transientErrText, nil)
		return
	}

	b.reply(msg.Chat.ID, fmt.Sprintf("<b>%d users</b> have used this bot.", count), nil)
}

// handleBroadcast copies the replied-to message to the whole user base,
// pruning users who have blocked the bot along the way
func (b *Bot) handleBroadcast(ctx context.Context, msg *tgbotapi.Message) {
	if !b.cfg.Bot.IsAdmin(msg.From.ID) {
		return
	}

	if msg.ReplyToMessage == nil {
		b.reply(msg.Chat.ID, "<b>Reply to the message you want to broadcast.</b>", nil)
		return
	}

	ids, err := b.userRepo.ListIDs(ctx)
	if err != nil {
		b.reply(msg.Chat.ID, transientErrText, nil)
		return
	}

	sent, pruned := 0, 0
	for _, id := range ids {
		err := b.deliverer.Copy(ctx, id, msg.Chat.ID, int64(msg.ReplyToMessage.MessageID))
		switch {
		case err == nil:
			sent++
		case IsBlockedErr(err):
			pruned++
			if err := b.userRepo.Delete(ctx, id); err != nil {
				b.logger.Error("failed to prune blocked user",
					slog.Int64("user_id", id),
					slog.Any("error", err))
			}
		}
	}

	b.reply(msg.Chat.ID, fmt.Sprintf("<b>Broadcast finished.</b>\nDelivered: %d\nRemoved (blocked): %d\nTotal: %d", sent, pruned, len(ids)), nil)
}

// registerUser records first-time users; failures only affect broadcast
// coverage and are logged, not surfaced
func (b *Bot) registerUser(ctx context.Context, userID int64) {
	exists, err := b.userRepo.Exists(ctx, userID)
	if err != nil {
		b.logger.Error("failed to check user existence", slog.Int64("user_id", userID), slog.Any("error", err))
		return
	}
	if exists {
		return
	}

	if err := b.userRepo.Add(ctx, userID); err != nil {
		b.logger.Error("failed to register user", slog.Int64("user_id", userID), slog.Any("error", err))
	}
}

// checkSubscribed enforces the optional force-subscribe channel. Returns
// true when the request may proceed.
func (b *Bot) checkSubscribed(msg *tgbotapi.Message, payload string) bool {
	if b.cfg.Bot.ForceSubChanID == 0 {
		return true
	}

	member, err := b.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: b.cfg.Bot.ForceSubChanID,
			UserID: msg.From.ID,
		},
	})
	if err != nil {
		b.logger.Error("failed to check channel membership", slog.Int64("user_id", msg.From.ID), slog.Any("error", err))
		// Membership unknown; do not lock the user out over an API hiccup.
		return true
	}

	switch member.Status {
	case "creator", "administrator", "member":
		return true
	}

	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("📢 Join Channel", b.inviteLink)),
	}
	if payload != "" {
		retry := fmt.Sprintf("https://t.me/%s?start=%s", b.cfg.Bot.Username, payload)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("🔄 Try Again", retry)))
	}

	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	b.reply(msg.Chat.ID, forceSubText, &markup)
	return false
}

func (b *Bot) challengeKeyboard(challengeURL string) *tgbotapi.InlineKeyboardMarkup {
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("🔐 Verify Now", challengeURL)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("❓ How To Verify", b.cfg.Access.TutorialURL)),
	)
	return &markup
}

func newLinkKeyboard() *tgbotapi.InlineKeyboardMarkup {
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🔄 Get New Link", newLinkCallback)),
	)
	return &markup
}
