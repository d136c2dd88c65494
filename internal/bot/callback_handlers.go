package bot

import (
	"context"
	"strconv"
	"strings"

	"goeventcity/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	cbVenuesPage   = "venues_page:"
	cbBook         = "book:"
	cbProceed      = "wizard:proceed"
	cbModify       = "wizard:modify"
	cbEdit         = "wizard:edit"
	cbCancel       = "wizard:cancel"
	cbPayNewCard   = "pay:new_card"
	cbPaySavedCard = "pay:saved_card"
)

func (b *Bot) handleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	// Отвечаем на callback сразу, чтобы убрать "часики"
	if err := b.tgService.AnswerCallback(callback.ID, ""); err != nil {
		b.logger.Warn().Err(err).Msg("Failed to answer callback")
	}

	data := callback.Data
	chatID := callback.Message.Chat.ID
	userID := callback.From.ID

	switch {
	case strings.HasPrefix(data, cbVenuesPage):
		page, _ := strconv.Atoi(strings.TrimPrefix(data, cbVenuesPage))
		b.sendVenuesPage(ctx, chatID, callback.Message.MessageID, page)

	case strings.HasPrefix(data, cbBook):
		venueID, err := strconv.ParseInt(strings.TrimPrefix(data, cbBook), 10, 64)
		if err != nil {
			return
		}
		b.startBooking(ctx, chatID, userID, venueID)

	case data == cbProceed:
		b.proceedToPayment(ctx, chatID, userID)

	case data == cbModify:
		b.modifyDetails(ctx, chatID, userID)

	case data == cbEdit:
		b.editAfterPayment(ctx, chatID, userID)

	case data == cbCancel:
		b.cancelBooking(ctx, chatID, userID)

	case data == cbPayNewCard:
		b.choosePayment(ctx, chatID, userID, models.PaymentMethodNewCard)

	case data == cbPaySavedCard:
		b.choosePayment(ctx, chatID, userID, models.PaymentMethodSavedCard)

	default:
		b.logger.Debug().Str("data", data).Msg("Unknown callback")
	}
}

func quoteKeyboard() [][]tgbotapi.InlineKeyboardButton {
	return [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Proceed to payment", cbProceed),
			tgbotapi.NewInlineKeyboardButtonData("✏️ Modify", cbModify),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", cbCancel),
		),
	}
}

func paymentKeyboard() [][]tgbotapi.InlineKeyboardButton {
	return [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💳 New card", cbPayNewCard),
			tgbotapi.NewInlineKeyboardButtonData("💾 Saved card", cbPaySavedCard),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✏️ Change details", cbEdit),
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", cbCancel),
		),
	}
}
