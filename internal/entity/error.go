package entity

import "errors"

var (
	ErrDataNotFound        = errors.New("data not found")
	ErrConflictingData     = errors.New("conflicting data")
	ErrInvalidData         = errors.New("invalid data")
	ErrBroadcastNotFound   = errors.New("broadcast not found")
	ErrBroadcastNotPending = errors.New("broadcast is not pending")
	ErrScheduleTooSoon     = errors.New("scheduled time is too soon")
	ErrNetworkNotFound     = errors.New("network not found")
	ErrNoChannelConfigured = errors.New("no channel configured")
	ErrRecipientNotLinked  = errors.New("recipient account not linked")
)
