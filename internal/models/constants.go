package models

const (
	StatusConfirmed = "CONFIRMED"
	StatusCancelled = "CANCELLED"
)

const (
	// DefaultOfficeHours office-hours windows used when none are configured
	DefaultOfficeHours = "09:00-12:00,13:00-17:00"

	// DefaultSlotDurationMinutes длительность слота по умолчанию
	DefaultSlotDurationMinutes = 30

	// DefaultSlotCapacity number of openings of a slot with no record
	DefaultSlotCapacity = 5

	// DefaultHistoryLimit размер страницы истории бронирований
	DefaultHistoryLimit = 10

	// MaxHistoryLimit upper bound for a history page
	MaxHistoryLimit = 100

	// DefaultAdminPageSize размер страницы списка для операторов
	DefaultAdminPageSize = 50

	// CalendarCacheTTL время жизни кэша месячного календаря в секундах
	CalendarCacheTTL = 30

	// UserRateLimitRequests booking mutations allowed per user in one window
	UserRateLimitRequests = 20

	// UserRateLimitWindow окно ограничения в секундах
	UserRateLimitWindow = 60
)

func IsValidStatus(status string) bool {
	return status == StatusConfirmed || status == StatusCancelled
}
