package service

import (
	"errors"
	"testing"

	"goeventcity/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockTelegramSender struct {
	mock.Mock
}

func (m *mockTelegramSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return args.Get(0).(tgbotapi.Message), args.Error(1)
}

func (m *mockTelegramSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	args := m.Called(c)
	return args.Get(0).(*tgbotapi.APIResponse), args.Error(1)
}

func (m *mockTelegramSender) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	args := m.Called(config)
	return args.Get(0).(tgbotapi.UpdatesChannel)
}

func (m *mockTelegramSender) GetSelf() tgbotapi.User {
	args := m.Called()
	return args.Get(0).(tgbotapi.User)
}

func (m *mockTelegramSender) StopReceivingUpdates() {
	m.Called()
}

func TestTelegramService(t *testing.T) {
	mockSender := new(mockTelegramSender)
	svc := NewTelegramService(mockSender)
	row := tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("✅ Proceed", "wizard:proceed"))

	t.Run("SendMessage", func(t *testing.T) {
		mockSender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
			msg, ok := c.(tgbotapi.MessageConfig)
			return ok && msg.Text == "hello" && msg.ChatID == 123 && msg.ParseMode == ""
		})).Return(tgbotapi.Message{}, nil).Once()

		_, err := svc.SendMessage(123, "hello")
		assert.NoError(t, err)
		mockSender.AssertExpectations(t)
	})

	t.Run("SendMarkdown", func(t *testing.T) {
		mockSender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
			msg, ok := c.(tgbotapi.MessageConfig)
			return ok && msg.ParseMode == models.ParseModeMarkdown
		})).Return(tgbotapi.Message{}, nil).Once()

		_, err := svc.SendMarkdown(123, "*bold*")
		assert.NoError(t, err)
		mockSender.AssertExpectations(t)
	})

	t.Run("SendWithButtons", func(t *testing.T) {
		mockSender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
			msg, ok := c.(tgbotapi.MessageConfig)
			if !ok || msg.ParseMode != models.ParseModeMarkdown {
				return false
			}
			markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
			return ok && len(markup.InlineKeyboard) == 1
		})).Return(tgbotapi.Message{MessageID: 7}, nil).Once()

		msg, err := svc.SendWithButtons(123, "*Quote*", row)
		require.NoError(t, err)
		assert.Equal(t, 7, msg.MessageID)
		mockSender.AssertExpectations(t)
	})

	t.Run("SendWithButtons without rows", func(t *testing.T) {
		mockSender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
			msg, ok := c.(tgbotapi.MessageConfig)
			return ok && msg.ReplyMarkup == nil
		})).Return(tgbotapi.Message{}, nil).Once()

		_, err := svc.SendWithButtons(123, "plain")
		assert.NoError(t, err)
		mockSender.AssertExpectations(t)
	})

	t.Run("EditWithButtons", func(t *testing.T) {
		mockSender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
			msg, ok := c.(tgbotapi.EditMessageTextConfig)
			return ok && msg.MessageID == 42 && msg.ReplyMarkup != nil && msg.ParseMode == models.ParseModeMarkdown
		})).Return(tgbotapi.Message{}, nil).Once()

		_, err := svc.EditWithButtons(123, 42, "page 2", row)
		assert.NoError(t, err)
		mockSender.AssertExpectations(t)
	})

	t.Run("DeleteMessage", func(t *testing.T) {
		mockSender.On("Request", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
			msg, ok := c.(tgbotapi.DeleteMessageConfig)
			return ok && msg.MessageID == 9
		})).Return(&tgbotapi.APIResponse{Ok: true}, errors.New("message to delete not found")).Once()

		assert.Error(t, svc.DeleteMessage(123, 9))
		mockSender.AssertExpectations(t)
	})

	t.Run("AnswerCallback", func(t *testing.T) {
		mockSender.On("Request", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
			_, ok := c.(tgbotapi.CallbackConfig)
			return ok
		})).Return(&tgbotapi.APIResponse{Ok: true}, nil).Once()

		err := svc.AnswerCallback("cb123", "ok")
		assert.NoError(t, err)
		mockSender.AssertExpectations(t)
	})

	t.Run("Updates", func(t *testing.T) {
		ch := make(chan tgbotapi.Update)
		mockSender.On("GetUpdatesChan", mock.Anything).Return(tgbotapi.UpdatesChannel(ch)).Once()
		mockSender.On("GetSelf").Return(tgbotapi.User{UserName: "goeventcity_bot"}).Once()
		mockSender.On("StopReceivingUpdates").Once()

		assert.NotNil(t, svc.GetUpdatesChan(tgbotapi.NewUpdate(0)))
		assert.Equal(t, "goeventcity_bot", svc.GetSelf().UserName)
		svc.StopReceivingUpdates()
		mockSender.AssertExpectations(t)
	})
}
