// Package pricing computes booking quotes from a venue's hourly rate and fees.
package pricing

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"goeventcity/internal/models"
)

var ErrInvalidTime = errors.New("invalid time")

// Input is everything a quote depends on.
type Input struct {
	Date         time.Time
	StartTime    string
	EndTime      string
	PricePerHour float64
	Fees         []models.Fee
}

// ParseHour parses an "HH:00" string on a 24-hour clock.
func ParseHour(s string) (int, error) {
	s = strings.TrimSpace(s)
	hh, _, _ := strings.Cut(s, ":")
	if hh == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return h, nil
}

// Hours returns the booked duration. An end at or before the start wraps
// around midnight, so equal hours give a full 24-hour day.
func Hours(start, end int) int {
	if end > start {
		return end - start
	}
	return 24 - start + end
}

// Calculate builds the price breakdown. Only the first cleaning fee and the
// first security deposit count; other fees are ignored.
func Calculate(in Input) (models.PricingBreakdown, error) {
	start, err := ParseHour(in.StartTime)
	if err != nil {
		return models.PricingBreakdown{}, err
	}
	end, err := ParseHour(in.EndTime)
	if err != nil {
		return models.PricingBreakdown{}, err
	}

	hours := Hours(start, end)
	baseCost := in.PricePerHour * float64(hours)
	cleaning := feeOf(in.Fees, models.FeeKindCleaning)
	deposit := feeOf(in.Fees, models.FeeKindSecurityDeposit)

	return models.PricingBreakdown{
		Date:            in.Date,
		Hours:           hours,
		BaseCost:        baseCost,
		CleaningFee:     cleaning,
		SecurityDeposit: deposit,
		Total:           baseCost + cleaning + deposit,
		FullDayWrap:     start == end,
	}, nil
}

// HoldAmount is the share of total authorized on submission, rounded to the
// nearest whole unit.
func HoldAmount(total float64, percent int) float64 {
	if percent <= 0 {
		percent = models.DefaultHoldPercent
	}
	return math.Round(total * float64(percent) / 100)
}

func feeOf(fees []models.Fee, kind models.FeeKind) float64 {
	v := models.Venue{Fees: fees}
	return v.FeeOf(kind)
}
