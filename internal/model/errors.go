package model

import (
	"errors"
	"fmt"
	"time"
)

// Common errors used across the application
var (
	// Player errors
	ErrPlayerNotFound = errors.New("player not found")

	// Resource errors
	ErrInsufficientResource = errors.New("insufficient resource")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrLimitReached         = errors.New("upgrade limit reached")
	ErrAlreadyOwned         = errors.New("already owned")

	// Gating errors
	ErrRateLimited    = errors.New("rate limited")
	ErrUnknownFeature = errors.New("unknown feature")

	// Claim errors
	ErrAlreadyClaimed  = errors.New("already claimed")
	ErrAlreadyReferred = errors.New("already referred")
	ErrInvalidReferrer = errors.New("invalid referrer")
	ErrNotEligible     = errors.New("not eligible")
	ErrUnknownTask     = errors.New("unknown task")

	// Package errors
	ErrInvalidPackage      = errors.New("invalid package")
	ErrPackageDowngrade    = errors.New("cannot downgrade your package")
	ErrPaymentNotConfirmed = errors.New("payment not confirmed")

	// Sync errors
	ErrSyncFailure = errors.New("sync failure")
)

// Resource names used in ResourceError
const (
	ResourceStamina = "stamina"
	ResourceBalance = "balance"
)

// ResourceError reports a balance or stamina shortfall
type ResourceError struct {
	Resource string
	Have     int64
	Need     int64
}

func (e *ResourceError) Error() string {
	if e.Resource == ResourceStamina {
		return fmt.Sprintf("out of stamina (have %d, need %d)", e.Have, e.Need)
	}
	return fmt.Sprintf("not enough coins (have %d, need %d)", e.Have, e.Need)
}

func (e *ResourceError) Unwrap() error {
	return ErrInsufficientResource
}

// RateLimitError reports a daily limit or cooldown that blocks an action
type RateLimitError struct {
	Feature    Feature
	Limit      int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	wait := FormatWait(e.RetryAfter)
	if e.Limit > 0 {
		return fmt.Sprintf("%s limit of %d per day reached, come back in %s", e.Feature, e.Limit, wait)
	}
	return fmt.Sprintf("%s is cooling down, come back in %s", e.Feature, wait)
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// SyncError wraps a failed exchange with the remote player store
type SyncError struct {
	Op  string
	Err error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync %s: %v", e.Op, e.Err)
}

func (e *SyncError) Unwrap() []error {
	return []error{ErrSyncFailure, e.Err}
}

// FormatWait renders a wait as "3h12m", "12m" or "40s"
func FormatWait(d time.Duration) string {
	if r := d.Round(time.Second); r < time.Minute {
		secs := int(r / time.Second)
		if secs < 1 {
			secs = 1
		}
		return fmt.Sprintf("%ds", secs)
	}
	d = d.Round(time.Minute)
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh%dm", h, m)
}
