package domain

import (
	"errors"
	"net/http"
)

// AppError is a business-rule rejection that is safe to show to the caller.
// Errors with the same Code compare equal under errors.Is, whatever their Number.
type AppError struct {
	Code    string
	Number  int
	Status  int
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

var (
	ErrInvalidSlot = &AppError{
		Code:    "INVALID_SLOT",
		Number:  1001,
		Status:  http.StatusBadRequest,
		Message: "time is not a valid slot",
	}
	ErrSlotFull = &AppError{
		Code:    "SLOT_FULL",
		Number:  1003,
		Status:  http.StatusBadRequest,
		Message: "slot has no openings left",
	}
	ErrAlreadyBooked = &AppError{
		Code:    "ALREADY_BOOKED",
		Number:  1004,
		Status:  http.StatusBadRequest,
		Message: "user already has a booking for this slot",
	}
	ErrBookingNotFound = &AppError{
		Code:    "BOOKING_NOT_FOUND",
		Number:  1005,
		Status:  http.StatusNotFound,
		Message: "booking not found",
	}
	// ErrSlotPassed is reported under the INVALID_SLOT code.
	ErrSlotPassed = &AppError{
		Code:    "INVALID_SLOT",
		Number:  1006,
		Status:  http.StatusBadRequest,
		Message: "slot has already started",
	}
	ErrInvalidCursor = &AppError{
		Code:    "INVALID_CURSOR",
		Number:  1007,
		Status:  http.StatusBadRequest,
		Message: "unknown pagination cursor",
	}
	ErrInvalidOpenings = &AppError{
		Code:    "INVALID_OPENINGS",
		Number:  1008,
		Status:  http.StatusBadRequest,
		Message: "openings must not be negative",
	}
	ErrInvalidDate = &AppError{
		Code:    "INVALID_DATE",
		Number:  1009,
		Status:  http.StatusBadRequest,
		Message: "invalid calendar date",
	}
	ErrInvalidStatus = &AppError{
		Code:    "INVALID_STATUS",
		Number:  1011,
		Status:  http.StatusBadRequest,
		Message: "unknown booking status",
	}
	ErrMissingUser = &AppError{
		Code:    "UNAUTHORIZED",
		Number:  1012,
		Status:  http.StatusUnauthorized,
		Message: "user id is required",
	}
	ErrRateLimited = &AppError{
		Code:    "RATE_LIMITED",
		Number:  1010,
		Status:  http.StatusTooManyRequests,
		Message: "too many booking requests, try again later",
	}
	ErrInvalidRequest = &AppError{
		Code:    "INVALID_REQUEST",
		Number:  1013,
		Status:  http.StatusBadRequest,
		Message: "malformed request",
	}
)

// AsAppError unwraps err to an AppError, if it is one.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
