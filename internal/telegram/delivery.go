package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

// DeliveryResult reports the outcome of copying one message
type DeliveryResult struct {
	MessageID int64
	Err       error
}

// ChannelDeliverer copies messages out of the storage channel one by one,
// pacing requests so Telegram's flood limits are not tripped.
type ChannelDeliverer struct {
	api            *tgbotapi.BotAPI
	channelID      int64
	protectContent bool
	customCaption  string
	limiter        *rate.Limiter
	logger         *slog.Logger
}

// NewChannelDeliverer creates a deliverer bound to the storage channel
func NewChannelDeliverer(api *tgbotapi.BotAPI, channelID int64, protectContent bool, customCaption string, logger *slog.Logger) *ChannelDeliverer {
	return &ChannelDeliverer{
		api:            api,
		channelID:      channelID,
		protectContent: protectContent,
		customCaption:  customCaption,
		limiter:        rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		logger:         logger,
	}
}

// DeliverRange copies each message in order and collects per-message
// results. A throttled copy is retried once after the server-advised wait.
func (d *ChannelDeliverer) DeliverRange(ctx context.Context, recipientID int64, messageIDs []int64) []DeliveryResult {
	results := make([]DeliveryResult, 0, len(messageIDs))

	for _, id := range messageIDs {
		if err := d.limiter.Wait(ctx); err != nil {
			results = append(results, DeliveryResult{MessageID: id, Err: err})
			continue
		}

		err := d.Copy(ctx, recipientID, d.channelID, id)

		var apiErr *tgbotapi.Error
		if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
			select {
			case <-time.After(time.Duration(apiErr.RetryAfter) * time.Second):
				err = d.Copy(ctx, recipientID, d.channelID, id)
			case <-ctx.Done():
				err = ctx.Err()
			}
		}

		if err != nil {
			d.logger.Error("failed to deliver message",
				slog.Int64("user_id", recipientID),
				slog.Int64("message_id", id),
				slog.Any("error", err))
		}

		results = append(results, DeliveryResult{MessageID: id, Err: err})
	}

	return results
}

// Copy performs a single copyMessage call. The request is built by hand
// because protect_content postdates the client's generated config types.
func (d *ChannelDeliverer) Copy(ctx context.Context, recipientID, fromChatID, messageID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", recipientID)
	params.AddNonZero64("from_chat_id", fromChatID)
	params.AddNonZero64("message_id", messageID)
	params.AddBool("protect_content", d.protectContent)
	if d.customCaption != "" {
		params.AddNonEmpty("caption", d.customCaption)
		params.AddNonEmpty("parse_mode", tgbotapi.ModeHTML)
	}

	if _, err := d.api.MakeRequest("copyMessage", params); err != nil {
		return fmt.Errorf("copyMessage to %d failed: %w", recipientID, err)
	}

	return nil
}

// IsBlockedErr reports whether a delivery error means the recipient has
// blocked the bot or deleted their account
func IsBlockedErr(err error) bool {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == 403
}
