package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const venuesPerPage = 5

type PaginationParams struct {
	ChatID     int64
	MessageID  int // 0 if new message
	Page       int
	Title      string
	PagePrefix string
}

// renderPaginatedList - универсальная функция для отрисовки пагинированного списка
func (b *Bot) renderPaginatedList(params PaginationParams, totalCount, itemsPerPage int, renderer func(startIdx, endIdx int) (string, [][]tgbotapi.InlineKeyboardButton)) {
	if itemsPerPage <= 0 {
		itemsPerPage = venuesPerPage
	}
	if params.Page < 0 {
		params.Page = 0
	}

	totalPages := (totalCount + itemsPerPage - 1) / itemsPerPage
	if params.Page >= totalPages && totalPages > 0 {
		params.Page = totalPages - 1
	}

	startIdx := params.Page * itemsPerPage
	endIdx := startIdx + itemsPerPage
	if endIdx > totalCount {
		endIdx = totalCount
	}

	content, keyboard := renderer(startIdx, endIdx)

	var message strings.Builder
	message.WriteString(params.Title + "\n\n")
	if totalPages > 1 {
		fmt.Fprintf(&message, "Page %d of %d\n\n", params.Page+1, totalPages)
	}
	message.WriteString(content)

	var navButtons []tgbotapi.InlineKeyboardButton
	if params.Page > 0 {
		navButtons = append(navButtons, tgbotapi.NewInlineKeyboardButtonData("⬅️ Prev", fmt.Sprintf("%s%d", params.PagePrefix, params.Page-1)))
	}
	if endIdx < totalCount {
		navButtons = append(navButtons, tgbotapi.NewInlineKeyboardButtonData("Next ➡️", fmt.Sprintf("%s%d", params.PagePrefix, params.Page+1)))
	}
	if len(navButtons) > 0 {
		keyboard = append(keyboard, navButtons)
	}

	var err error
	if params.MessageID != 0 {
		_, err = b.tgService.EditWithButtons(params.ChatID, params.MessageID, message.String(), keyboard...)
	} else {
		_, err = b.tgService.SendWithButtons(params.ChatID, message.String(), keyboard...)
	}
	if err != nil {
		b.logger.Error().Err(err).Int64("chat_id", params.ChatID).Msg("Failed to render list")
	}
}

// sendVenuesPage lists the active venues with a Book button each.
func (b *Bot) sendVenuesPage(ctx context.Context, chatID int64, messageID, page int) {
	venues, err := b.venues.GetActiveVenues(ctx)
	if err != nil {
		b.logger.Error().Err(err).Msg("Error getting active venues")
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}
	if len(venues) == 0 {
		b.sendMessage(chatID, "No venues are open for booking right now.")
		return
	}

	params := PaginationParams{
		ChatID:     chatID,
		MessageID:  messageID,
		Page:       page,
		Title:      "🏛 *Venues*",
		PagePrefix: cbVenuesPage,
	}
	b.renderPaginatedList(params, len(venues), venuesPerPage, func(startIdx, endIdx int) (string, [][]tgbotapi.InlineKeyboardButton) {
		var content strings.Builder
		var keyboard [][]tgbotapi.InlineKeyboardButton

		for i, v := range venues[startIdx:endIdx] {
			fmt.Fprintf(&content, "%d. %s\n", startIdx+i+1, formatVenue(v))

			btn := tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("Book %s", v.Name),
				fmt.Sprintf("%s%d", cbBook, v.ID),
			)
			keyboard = append(keyboard, []tgbotapi.InlineKeyboardButton{btn})
		}
		return content.String(), keyboard
	})
}
