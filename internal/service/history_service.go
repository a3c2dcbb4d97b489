package service

import (
	"context"
	"strings"
	"time"

	"slotbook/internal/domain"
	"slotbook/internal/models"
)

// HistoryService pages through one user's bookings.
type HistoryService struct {
	repo domain.Repository
	now  func() time.Time
}

func NewHistoryService(repo domain.Repository) *HistoryService {
	return &HistoryService{repo: repo, now: time.Now}
}

// ListBookings returns one page of the user's upcoming (past=false) or past
// bookings. after is the id of the last booking of the previous page, 0 to start.
func (s *HistoryService) ListBookings(ctx context.Context, userID string, after int64, limit int, past bool) (*models.BookingPage, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrMissingUser
	}
	if after < 0 {
		return nil, domain.ErrInvalidCursor
	}

	switch {
	case limit <= 0:
		limit = models.DefaultHistoryLimit
	case limit > models.MaxHistoryLimit:
		limit = models.MaxHistoryLimit
	}

	bookings, hasMore, err := s.repo.ListUserBookings(ctx, models.BookingQuery{
		UserID: userID,
		After:  after,
		Limit:  limit,
		Past:   past,
		Now:    s.now(),
	})
	if err != nil {
		return nil, err
	}

	page := &models.BookingPage{Bookings: bookings, HasMore: hasMore}
	if hasMore && len(bookings) > 0 {
		page.NextCursor = bookings[len(bookings)-1].ID
	}
	return page, nil
}
