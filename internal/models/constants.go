package models

const (
	StatusRequested = "requested"
	StatusConfirmed = "confirmed"
	StatusDeclined  = "declined"
	StatusCancelled = "cancelled"
)

const (
	ParseModeMarkdown = "Markdown"
	ParseModeHTML     = "HTML"
)

const (
	// DefaultHoldPercent доля от суммы, блокируемая на карте при отправке заявки
	DefaultHoldPercent = 20

	// DefaultSessionTTL время жизни сессии мастера бронирования
	DefaultSessionTTL = 2 * 60 * 60 // 2 часа в секундах

	// DefaultSimulatedPaymentDelay задержка имитации авторизации платежа
	DefaultSimulatedPaymentDelay = 1500 // миллисекунды

	// WorkerQueueSize размер очереди воркера
	WorkerQueueSize = 128

	// RateLimitMessages количество сообщений в окне
	RateLimitMessages = 20

	// RateLimitWindow окно ограничения частоты сообщений
	RateLimitWindow = 60 // 1 минута в секундах

	// DateLayout формат даты в API
	DateLayout = "2006-01-02"
)
