package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/wordmarket/internal/domain"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrAlreadyExists, http.StatusConflict},
		{domain.ErrNotOwner, http.StatusForbidden},
		{domain.ErrNotAuthority, http.StatusForbidden},
		{domain.ErrResumeDisabled, http.StatusForbidden},
		{domain.ErrZeroAmount, http.StatusBadRequest},
		{domain.ErrInvalidPrice, http.StatusBadRequest},
		{domain.ErrInvalidOutcome, http.StatusBadRequest},
		{domain.ErrRoundingLoss, http.StatusBadRequest},
		{domain.ErrAmountOverflow, http.StatusBadRequest},
		{domain.ErrMarketNotActive, http.StatusConflict},
		{domain.ErrMarketResolved, http.StatusConflict},
		{domain.ErrInsufficientBalance, http.StatusConflict},
		{domain.ErrInsufficientYesFunds, http.StatusConflict},
		{domain.ErrNothingToClaim, http.StatusConflict},
		{domain.ErrLockHeld, http.StatusLocked},
		{domain.ErrRateLimited, http.StatusTooManyRequests},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), "error %v", tc.err)
	}
}

func TestStatusForWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("service: settle: %w", domain.ErrInsufficientNoFunds)
	assert.Equal(t, http.StatusConflict, statusFor(wrapped))
}

func TestWriteDomainError(t *testing.T) {
	rec := httptest.NewRecorder()
	writeDomainError(rec, domain.ErrNotFound)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not found")
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
}

func TestParseListOpts(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/audit", nil)
	opts := parseListOpts(req)
	assert.Equal(t, 50, opts.Limit)
	assert.Zero(t, opts.Offset)

	req = httptest.NewRequest(http.MethodGet, "/api/audit?limit=10&offset=30", nil)
	opts = parseListOpts(req)
	assert.Equal(t, 10, opts.Limit)
	assert.Equal(t, 30, opts.Offset)

	// Capped and sanitized inputs.
	req = httptest.NewRequest(http.MethodGet, "/api/audit?limit=9999&offset=-1", nil)
	opts = parseListOpts(req)
	assert.Equal(t, 500, opts.Limit)
	assert.Zero(t, opts.Offset)

	req = httptest.NewRequest(http.MethodGet, "/api/audit?limit=junk", nil)
	opts = parseListOpts(req)
	assert.Equal(t, 50, opts.Limit)
}
