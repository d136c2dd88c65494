package bot

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"

	"goeventcity/internal/database"
	"goeventcity/internal/models"
	"goeventcity/internal/payment"
	"goeventcity/internal/service"
	"goeventcity/internal/wizard"

	"github.com/rs/zerolog"
)

const (
	metaAwaiting = "awaiting"
	awaitCard    = "card"
)

// detailsField is one prompt of the details step.
type detailsField struct {
	key    string
	prompt string
	apply  func(text string, u *wizard.DetailsUpdate) error
}

var detailsFields = []detailsField{
	{
		key:    "date",
		prompt: "📅 What date is your event? (YYYY-MM-DD or DD.MM.YYYY)",
		apply: func(text string, u *wizard.DetailsUpdate) error {
			d, err := parseDate(text)
			if err != nil {
				return err
			}
			u.Date = &d
			return nil
		},
	},
	{
		key:    "start_time",
		prompt: "🕒 Start time? (24-hour, e.g. 18:00)",
		apply: func(text string, u *wizard.DetailsUpdate) error {
			t, err := parseClock(text)
			if err != nil {
				return err
			}
			u.StartTime = &t
			return nil
		},
	},
	{
		key:    "end_time",
		prompt: "🕕 End time? (24-hour, e.g. 23:00; the same as the start books the whole day)",
		apply: func(text string, u *wizard.DetailsUpdate) error {
			t, err := parseClock(text)
			if err != nil {
				return err
			}
			u.EndTime = &t
			return nil
		},
	},
	{
		key:    "event_type",
		prompt: "🎉 What kind of event is it? (e.g. Birthday, Wedding, Conference)",
		apply: func(text string, u *wizard.DetailsUpdate) error {
			v := sanitizeInput(text)
			if v == "" || len(v) > 100 {
				return errors.New("please describe the event in up to 100 characters")
			}
			u.EventType = &v
			return nil
		},
	},
	{
		key:    "guest_count",
		prompt: "👥 How many guests?",
		apply: func(text string, u *wizard.DetailsUpdate) error {
			n, err := strconv.Atoi(strings.TrimSpace(text))
			if err != nil || n < 1 {
				return errors.New("please send the number of guests, e.g. 40")
			}
			u.GuestCount = &n
			return nil
		},
	},
	{
		key:    "contact_name",
		prompt: "👤 Your name?",
		apply: func(text string, u *wizard.DetailsUpdate) error {
			v := sanitizeInput(text)
			if v == "" {
				return errors.New("please send your name")
			}
			u.ContactName = &v
			return nil
		},
	},
	{
		key:    "contact_email",
		prompt: "✉️ Your email, so the venue can reach you?",
		apply: func(text string, u *wizard.DetailsUpdate) error {
			v := strings.TrimSpace(text)
			if _, err := mail.ParseAddress(v); err != nil {
				return errors.New("that does not look like an email address")
			}
			u.ContactEmail = &v
			return nil
		},
	},
}

func fieldIndex(key string) int {
	for i, f := range detailsFields {
		if f.key == key {
			return i
		}
	}
	return -1
}

func (b *Bot) startBooking(ctx context.Context, chatID, userID, venueID int64) {
	id := sessionID(userID)
	if _, err := b.wizards.StartWithID(ctx, id, venueID); err != nil {
		b.replyError(ctx, chatID, err)
		return
	}

	venue, err := b.venues.GetVenueByID(ctx, venueID)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}

	zerolog.Ctx(ctx).Info().Int64("user_id", userID).Int64("venue_id", venueID).Msg("Chat booking started")
	b.sendMarkdown(chatID, fmt.Sprintf("Let's book *%s*. Send /cancel at any time to stop.", escapeMarkdown(venue.Name)))
	b.askField(ctx, chatID, id, 0)
}

func (b *Bot) askField(ctx context.Context, chatID int64, id string, idx int) {
	if _, err := b.wizards.SetMeta(ctx, id, metaAwaiting, detailsFields[idx].key); err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.sendMessage(chatID, detailsFields[idx].prompt)
}

func (b *Bot) handleDetailsInput(ctx context.Context, chatID int64, session *models.WizardSession, text string) {
	idx := fieldIndex(session.GetMeta(metaAwaiting))
	field := detailsFields[idx]

	var u wizard.DetailsUpdate
	if err := field.apply(text, &u); err != nil {
		b.sendMessage(chatID, "⚠️ "+err.Error())
		b.sendMessage(chatID, field.prompt)
		return
	}
	if _, err := b.wizards.UpdateDetails(ctx, session.ID, u); err != nil {
		b.replyError(ctx, chatID, err)
		return
	}

	if idx+1 < len(detailsFields) {
		b.askField(ctx, chatID, session.ID, idx+1)
		return
	}
	b.requestQuote(ctx, chatID, session.ID)
}

func (b *Bot) requestQuote(ctx context.Context, chatID int64, id string) {
	session, err := b.wizards.RequestQuote(ctx, id)
	if err != nil {
		b.replyError(ctx, chatID, err)
		if service.IsUserError(err) && !errors.Is(err, service.ErrSessionNotFound) {
			b.sendMessage(chatID, "Let's go through the details again.")
			b.askField(ctx, chatID, id, 0)
		}
		return
	}
	if _, err := b.wizards.SetMeta(ctx, id, metaAwaiting, ""); err != nil {
		b.replyError(ctx, chatID, err)
		return
	}

	venue, err := b.venues.GetVenueByID(ctx, session.VenueID)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.sendWithButtons(chatID, formatQuote(venue, session, b.wizards.HoldAmount(session.Quote.Total)), quoteKeyboard()...)
}

func (b *Bot) proceedToPayment(ctx context.Context, chatID, userID int64) {
	if _, err := b.wizards.Proceed(ctx, sessionID(userID)); err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.sendWithButtons(chatID, "💳 How would you like to pay the hold?", paymentKeyboard()...)
}

func (b *Bot) modifyDetails(ctx context.Context, chatID, userID int64) {
	id := sessionID(userID)
	if _, err := b.wizards.Modify(ctx, id); err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.askField(ctx, chatID, id, 0)
}

// editAfterPayment goes from payment back to details via review.
func (b *Bot) editAfterPayment(ctx context.Context, chatID, userID int64) {
	id := sessionID(userID)
	if _, err := b.wizards.Back(ctx, id); err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.modifyDetails(ctx, chatID, userID)
}

func (b *Bot) choosePayment(ctx context.Context, chatID, userID int64, method models.PaymentMethod) {
	id := sessionID(userID)
	if _, err := b.wizards.UpdatePayment(ctx, id, wizard.PaymentUpdate{Method: &method}); err != nil {
		b.replyError(ctx, chatID, err)
		return
	}

	if method == models.PaymentMethodSavedCard {
		b.submit(ctx, chatID, id)
		return
	}

	if _, err := b.wizards.SetMeta(ctx, id, metaAwaiting, awaitCard); err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.sendMessage(chatID, "Send your card in one message:\nNUMBER MM/YY CVV ZIP\n\nFor example: 4111111111111111 12/27 123 94105\nThe message is deleted right after it is read.")
}

func (b *Bot) handleCardInput(ctx context.Context, chatID int64, session *models.WizardSession, text string) {
	number, expiry, cvv, zip, err := parseCardLine(text)
	if err != nil {
		b.sendMessage(chatID, "⚠️ "+err.Error())
		return
	}

	u := wizard.PaymentUpdate{CardNumber: &number, Expiry: &expiry, CVV: &cvv, BillingZip: &zip}
	if _, err := b.wizards.UpdatePayment(ctx, session.ID, u); err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.submit(ctx, chatID, session.ID)
}

func (b *Bot) submit(ctx context.Context, chatID int64, id string) {
	b.sendMessage(chatID, "⏳ Placing a hold on your card...")

	session, err := b.wizards.Submit(ctx, id)
	if err != nil {
		b.countSubmission("failed")
		b.replyError(ctx, chatID, err)

		switch {
		case errors.Is(err, wizard.ErrInvalidPaymentDetails):
			b.sendMessage(chatID, "Please send the card again: NUMBER MM/YY CVV ZIP")
		case errors.Is(err, payment.ErrPaymentDeclined):
			b.sendWithButtons(chatID, "Choose a payment method.", paymentKeyboard()...)
		case errors.Is(err, database.ErrNotAvailable):
			b.sendWithButtons(chatID, "Pick another time for your event.", paymentKeyboard()...)
		}
		return
	}
	b.countSubmission("ok")

	if _, err := b.wizards.SetMeta(ctx, id, metaAwaiting, ""); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("session_id", id).Msg("Failed to clear awaiting field")
	}

	venue, err := b.venues.GetVenueByID(ctx, session.VenueID)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int64("venue_id", session.VenueID).Msg("Venue lookup failed after submit")
	}
	b.sendMarkdown(chatID, formatConfirmation(venue, session.Confirmation))
}

func (b *Bot) cancelBooking(ctx context.Context, chatID, userID int64) {
	err := b.wizards.Cancel(ctx, sessionID(userID))
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		b.sendMessage(chatID, "There is no booking in progress.")
	case err != nil:
		b.replyError(ctx, chatID, err)
	default:
		b.sendMessage(chatID, "Booking cancelled. Send /venues to start again.")
	}
}

func (b *Bot) countSubmission(outcome string) {
	if b.metrics != nil {
		b.metrics.BookingsSubmitted.WithLabelValues(outcome).Inc()
	}
}
