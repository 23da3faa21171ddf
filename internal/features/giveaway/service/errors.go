package service

import "errors"

var (
	ErrTimerExists     = errors.New("timer already scheduled for giveaway")
	ErrTimerStopped    = errors.New("scheduler stopped")
	ErrNoFreeName      = errors.New("no free channel name")
	ErrNotifyFailed    = errors.New("winner notice could not be posted")
	ErrNothingToSelect = errors.New("winner count must not be negative")
)
