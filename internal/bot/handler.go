package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"goeventcity/internal/models"
	"goeventcity/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const welcomeText = `👋 Welcome to *GoEventCity*!

Book a venue for your event right here in the chat.

/venues - browse venues
/book <venue id> - start a booking
/cancel - cancel the current booking`

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	l := zerolog.Ctx(ctx)
	l.Debug().
		Int64("user_id", msg.From.ID).
		Str("username", msg.From.UserName).
		Bool("command", msg.IsCommand()).
		Msg("Handling message")

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	b.handleInput(ctx, msg)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	userID := msg.From.ID

	switch msg.Command() {
	case "start", "help":
		b.sendMarkdown(chatID, welcomeText)

	case "venues":
		b.sendVenuesPage(ctx, chatID, 0, 0)

	case "book":
		arg := strings.TrimSpace(msg.CommandArguments())
		venueID, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || venueID <= 0 {
			b.sendMessage(chatID, "Usage: /book <venue id>. Send /venues to see the list.")
			return
		}
		b.startBooking(ctx, chatID, userID, venueID)

	case "cancel":
		b.cancelBooking(ctx, chatID, userID)

	default:
		b.sendMessage(chatID, "Unknown command. Send /help for the list of commands.")
	}
}

// handleInput routes free text to whatever the user's session is waiting for.
func (b *Bot) handleInput(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	id := sessionID(msg.From.ID)

	session, err := b.wizards.Get(ctx, id)
	if errors.Is(err, service.ErrSessionNotFound) {
		b.sendMessage(chatID, "Send /venues to pick a venue and start a booking.")
		return
	}
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}

	awaiting := session.GetMeta(metaAwaiting)
	switch {
	case session.Step == models.StepDetails && fieldIndex(awaiting) >= 0:
		b.handleDetailsInput(ctx, chatID, session, msg.Text)

	case session.Step == models.StepPayment && awaiting == awaitCard:
		// Номер карты не должен оставаться в истории чата
		b.deleteMessage(chatID, msg.MessageID)
		b.handleCardInput(ctx, chatID, session, msg.Text)

	default:
		b.sendStepHint(chatID, session)
	}
}

func (b *Bot) sendStepHint(chatID int64, session *models.WizardSession) {
	switch session.Step {
	case models.StepReview:
		b.sendWithButtons(chatID, "Please choose an option for your quote.", quoteKeyboard()...)
	case models.StepPayment:
		b.sendWithButtons(chatID, "Please choose a payment method.", paymentKeyboard()...)
	case models.StepConfirmation:
		b.sendMessage(chatID, "Your booking request has been sent. Send /venues to book again.")
	default:
		b.sendMessage(chatID, "Send /cancel to stop this booking.")
	}
}

// replyError tells the user what went wrong and logs failures that are not
// the user's doing.
func (b *Bot) replyError(ctx context.Context, chatID int64, err error) {
	if !service.IsUserError(err) {
		zerolog.Ctx(ctx).Error().Err(err).Int64("chat_id", chatID).Msg("Booking step failed")
	}
	b.sendMessage(chatID, b.getErrorMessage(err))
}
