package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"slotbook/internal/domain"
	"slotbook/internal/events"
	"slotbook/internal/metrics"
	"slotbook/internal/models"
	"slotbook/internal/slots"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Bookings"

// AdminService exposes operator actions over slots and bookings.
type AdminService struct {
	repo     domain.Repository
	grid     *slots.Grid
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

func NewAdminService(repo domain.Repository, grid *slots.Grid, eventBus domain.EventPublisher, logger *zerolog.Logger) *AdminService {
	return &AdminService{
		repo:     repo,
		grid:     grid,
		eventBus: eventBus,
		logger:   logger,
	}
}

// SlotDetail returns the slot record with its bookings. A slot nobody has booked
// yet is reported with full capacity and Materialized=false.
func (s *AdminService) SlotDetail(ctx context.Context, t time.Time) (*models.SlotDetail, error) {
	if !s.grid.IsLegal(t) {
		return nil, domain.ErrInvalidSlot
	}

	slot, err := s.repo.GetTimeSlot(ctx, t)
	if err != nil {
		return nil, err
	}

	detail := &models.SlotDetail{}
	if slot != nil {
		detail.Slot = *slot
		detail.Materialized = true
	} else {
		detail.Slot = models.TimeSlot{Time: t.UTC(), Openings: s.grid.Capacity()}
	}

	detail.Bookings, err = s.repo.ListBookingsAt(ctx, t)
	if err != nil {
		return nil, err
	}
	return detail, nil
}

// SetSlotOpenings overwrites the remaining openings of a slot. Confirmed bookings
// are not reconciled against the new value.
func (s *AdminService) SetSlotOpenings(ctx context.Context, t time.Time, openings int) (*models.TimeSlot, error) {
	if openings < 0 {
		return nil, domain.ErrInvalidOpenings
	}
	if !s.grid.IsLegal(t) {
		return nil, domain.ErrInvalidSlot
	}

	slot, err := s.repo.SetOpenings(ctx, t, openings)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Time("time", slot.Time).Int("openings", openings).Msg("slot openings set")
	if s.eventBus != nil {
		if err := s.eventBus.PublishJSON(events.EventSlotOpeningsSet, events.SlotEventPayload{Time: slot.Time, Openings: slot.Openings}); err != nil {
			s.logger.Error().Err(err).Time("time", slot.Time).Msg("publish event error")
		}
	}
	return slot, nil
}

func (s *AdminService) ListBookings(ctx context.Context, f models.AdminBookingFilter) (*models.AdminBookingList, error) {
	f, err := normalizeFilter(f)
	if err != nil {
		return nil, err
	}

	bookings, total, err := s.repo.ListBookings(ctx, f)
	if err != nil {
		return nil, err
	}
	return &models.AdminBookingList{
		Bookings: bookings,
		Total:    total,
		Limit:    f.Limit,
		Offset:   f.Offset,
	}, nil
}

// CancelBooking cancels any confirmed booking regardless of owner.
func (s *AdminService) CancelBooking(ctx context.Context, id int64) (*models.Booking, error) {
	booking, err := s.repo.CancelBookingByID(ctx, id)
	if err != nil {
		return nil, err
	}

	releaseOpening(ctx, s.repo, s.logger, booking)
	metrics.IncCancellation(actorAdmin)
	s.logger.Info().Int64("booking_id", booking.ID).Str("user_id", booking.UserID).Msg("booking cancelled by admin")
	publishBookingEvent(s.eventBus, s.logger, events.EventBookingCancelled, booking, actorAdmin)

	return booking, nil
}

// ExportBookings writes every booking matching f as an xlsx workbook to w.
// Limit and Offset of f are ignored.
func (s *AdminService) ExportBookings(ctx context.Context, f models.AdminBookingFilter, w io.Writer) error {
	f.Limit = models.MaxHistoryLimit
	f.Offset = 0
	f, err := normalizeFilter(f)
	if err != nil {
		return err
	}

	file := excelize.NewFile()
	defer file.Close()

	index, err := file.NewSheet(exportSheet)
	if err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}
	file.SetActiveSheet(index)
	_ = file.DeleteSheet("Sheet1")

	headers := []string{"ID", "User", "Time", "Status", "Created", "Updated"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = file.SetCellValue(exportSheet, cell, h)
	}
	style, err := file.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	if err == nil {
		lastCell, _ := excelize.CoordinatesToCellName(len(headers), 1)
		_ = file.SetCellStyle(exportSheet, "A1", lastCell, style)
	}
	_ = file.SetColWidth(exportSheet, "B", "B", 25)
	_ = file.SetColWidth(exportSheet, "C", "C", 22)
	_ = file.SetColWidth(exportSheet, "E", "F", 22)

	loc := s.grid.Location()
	row := 2
	for {
		bookings, total, err := s.repo.ListBookings(ctx, f)
		if err != nil {
			return err
		}

		for _, b := range bookings {
			values := []interface{}{
				b.ID,
				b.UserID,
				b.Time.In(loc).Format("2006-01-02 15:04"),
				b.Status,
				b.CreatedAt.In(loc).Format("2006-01-02 15:04:05"),
				b.UpdatedAt.In(loc).Format("2006-01-02 15:04:05"),
			}
			cell, _ := excelize.CoordinatesToCellName(1, row)
			if err := file.SetSheetRow(exportSheet, cell, &values); err != nil {
				return fmt.Errorf("error writing row %d: %w", row, err)
			}
			row++
		}

		f.Offset += len(bookings)
		if len(bookings) == 0 || f.Offset >= total {
			break
		}
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}

	s.logger.Info().Int("rows", row-2).Msg("bookings exported")
	return nil
}

func normalizeFilter(f models.AdminBookingFilter) (models.AdminBookingFilter, error) {
	f.Status = strings.ToUpper(strings.TrimSpace(f.Status))
	if f.Status != "" && !models.IsValidStatus(f.Status) {
		return f, domain.ErrInvalidStatus
	}
	f.UserID = strings.TrimSpace(f.UserID)

	switch {
	case f.Limit <= 0:
		f.Limit = models.DefaultAdminPageSize
	case f.Limit > models.MaxHistoryLimit:
		f.Limit = models.MaxHistoryLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f, nil
}
