package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"goeventcity/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const userDateLayout = "02.01.2006"

// sessionID is the wizard session id of a chat user.
func sessionID(userID int64) string {
	return "tg:" + strconv.FormatInt(userID, 10)
}

func (b *Bot) sendMessage(chatID int64, text string) {
	if _, err := b.tgService.SendMessage(chatID, text); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send message")
	}
}

func (b *Bot) sendMarkdown(chatID int64, text string) {
	if _, err := b.tgService.SendMarkdown(chatID, text); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send message")
	}
}

func (b *Bot) sendWithButtons(chatID int64, text string, rows ...[]tgbotapi.InlineKeyboardButton) {
	if _, err := b.tgService.SendWithButtons(chatID, text, rows...); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send message")
	}
}

// deleteMessage removes a chat message; used for messages carrying card data.
func (b *Bot) deleteMessage(chatID int64, messageID int) {
	if err := b.tgService.DeleteMessage(chatID, messageID); err != nil {
		b.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("Failed to delete message")
	}
}

func formatMoney(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

// escapeMarkdown escapes the characters legacy Markdown treats as markup.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")
	return r.Replace(s)
}

// sanitizeInput collapses line breaks and trims user text.
func sanitizeInput(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}

// parseDate accepts YYYY-MM-DD and DD.MM.YYYY.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{models.DateLayout, userDateLayout} {
		if d, err := time.Parse(layout, s); err == nil {
			return d, nil
		}
	}
	return time.Time{}, errors.New("expected a date like 2026-12-31 or 31.12.2026")
}

// parseClock accepts a 24-hour "18" or "18:00" and returns "HH:00".
func parseClock(s string) (string, error) {
	s = strings.TrimSpace(s)
	hh, mm, hasMinutes := strings.Cut(s, ":")
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return "", errors.New("expected an hour between 00:00 and 23:00")
	}
	if hasMinutes && mm != "00" {
		return "", errors.New("bookings start on the hour, e.g. 18:00")
	}
	return fmt.Sprintf("%02d:00", h), nil
}

// parseCardLine splits "NUMBER MM/YY CVV ZIP". Spaces inside the number are
// not supported, so the number must be sent as one block.
func parseCardLine(s string) (number, expiry, cvv, zip string, err error) {
	fields := strings.Fields(s)
	if len(fields) != 4 {
		return "", "", "", "", errors.New("send card number, expiry, CVV and ZIP separated by spaces")
	}
	return fields[0], fields[1], fields[2], fields[3], nil
}

func formatVenue(v *models.Venue) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "*%s*\n", escapeMarkdown(v.Name))
	if v.Address != "" {
		fmt.Fprintf(&sb, "   📍 %s\n", escapeMarkdown(v.Address))
	}
	fmt.Fprintf(&sb, "   💵 %s/hour · 👥 up to %d guests\n", formatMoney(v.PricePerHour), v.Capacity)
	for _, f := range v.Fees {
		fmt.Fprintf(&sb, "   ➕ %s: %s\n", escapeMarkdown(f.Name), formatMoney(f.Amount))
	}
	return sb.String()
}

func formatQuote(venue *models.Venue, s *models.WizardSession, hold float64) string {
	q := s.Quote
	r := s.Request

	var sb strings.Builder
	fmt.Fprintf(&sb, "🧾 *Quote for %s*\n\n", escapeMarkdown(venue.Name))
	fmt.Fprintf(&sb, "📅 %s, %s–%s", r.Date.Format(models.DateLayout), r.StartTime, r.EndTime)
	if q.FullDayWrap {
		sb.WriteString(" (full day)")
	}
	fmt.Fprintf(&sb, "\n🎉 %s, %d guests\n\n", escapeMarkdown(r.EventType), r.GuestCount)
	fmt.Fprintf(&sb, "Venue: %d h × %s = %s\n", q.Hours, formatMoney(venue.PricePerHour), formatMoney(q.BaseCost))
	if q.CleaningFee > 0 {
		fmt.Fprintf(&sb, "Cleaning fee: %s\n", formatMoney(q.CleaningFee))
	}
	if q.SecurityDeposit > 0 {
		fmt.Fprintf(&sb, "Security deposit: %s\n", formatMoney(q.SecurityDeposit))
	}
	fmt.Fprintf(&sb, "*Total: %s*\n\n", formatMoney(q.Total))
	fmt.Fprintf(&sb, "A hold of %s is placed on your card when you submit. You are only charged once the venue confirms.", formatMoney(hold))
	return sb.String()
}

func formatConfirmation(venue *models.Venue, c *models.Confirmation) string {
	var sb strings.Builder
	sb.WriteString("✅ *Booking request sent!*\n\n")
	fmt.Fprintf(&sb, "Reference: `%s`\n", c.Reference)
	if venue != nil {
		fmt.Fprintf(&sb, "Venue: %s\n", escapeMarkdown(venue.Name))
	}
	fmt.Fprintf(&sb, "Hold placed: %s of %s\n\n", formatMoney(c.HoldAmount), formatMoney(c.Total))
	fmt.Fprintf(&sb, "The venue will respond within %d hours.", c.ResponseTimeHours)
	return sb.String()
}
