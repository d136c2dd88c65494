package models

import "time"

// FeeKind classifies a fixed venue fee. Only cleaning and security deposit
// fees take part in a quote.
type FeeKind string

const (
	FeeKindCleaning        FeeKind = "cleaning"
	FeeKindSecurityDeposit FeeKind = "security_deposit"
	FeeKindOther           FeeKind = "other"
)

const (
	legacyCleaningFeeName     = "Cleaning Fee"
	legacySecurityDepositName = "Security Deposit"
)

type Fee struct {
	Kind   FeeKind `json:"kind" yaml:"kind"`
	Name   string  `json:"name" yaml:"name"`
	Amount float64 `json:"amount" yaml:"amount"`
}

// FeeKindFromName maps a legacy fee name to its kind. Matching is exact and
// case-sensitive.
func FeeKindFromName(name string) FeeKind {
	switch name {
	case legacyCleaningFeeName:
		return FeeKindCleaning
	case legacySecurityDepositName:
		return FeeKindSecurityDeposit
	default:
		return FeeKindOther
	}
}

// NormalizeKind fills an empty Kind from the fee name.
func (f Fee) NormalizeKind() Fee {
	if f.Kind == "" {
		f.Kind = FeeKindFromName(f.Name)
	}
	return f
}

type Venue struct {
	ID                int64     `json:"id" yaml:"id"`
	Name              string    `json:"name" yaml:"name"`
	Image             string    `json:"image" yaml:"image"`
	Address           string    `json:"address" yaml:"address"`
	PricePerHour      float64   `json:"price_per_hour" yaml:"price_per_hour"`
	Fees              []Fee     `json:"fees" yaml:"fees"`
	Capacity          int       `json:"capacity" yaml:"capacity"`
	ResponseTimeHours int       `json:"response_time_hours" yaml:"response_time_hours"`
	SortOrder         int64     `json:"sort_order" yaml:"sort_order"`
	IsActive          bool      `json:"is_active" yaml:"is_active"`
	CreatedAt         time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" yaml:"updated_at"`
}

// FeeOf returns the amount of the first fee of the given kind.
func (v *Venue) FeeOf(kind FeeKind) float64 {
	for _, f := range v.Fees {
		if f.NormalizeKind().Kind == kind {
			return f.Amount
		}
	}
	return 0
}
