package service

import "time"

const (
	// Defaults used when Options leaves a field zero.
	DefaultEntryEmoji           = "🎉"
	DefaultProvisionConcurrency = 3
	DefaultRetries              = 3
	DefaultRetryDelay           = time.Second
	DefaultRefreshDelay         = 2 * time.Second

	// Upper bound for one conclusion run including provisioning.
	ConclusionTimeout = 5 * time.Minute
	// Upper bound for best-effort calls made outside the conclusion run.
	SideEffectTimeout = 15 * time.Second
	// Giving up on finding a free channel name after this many suffixes.
	MaxChannelNameAttempts = 50
	// Error sink buffer; older errors are dropped (and logged) when full.
	ErrorBufferSize = 64
)
