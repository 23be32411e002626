package constants

import "time"

const (
	// Idle detection
	IdleCheckInterval = 30 * time.Second
	IdleMaxPeriod     = 60 * time.Second

	// Batch cadence
	FlushInterval = 60 * time.Second

	// Upper bound for the final flush performed while stopping
	ShutdownFlushTimeout = 15 * time.Second

	// Spooled batches resent per successful flush
	SpoolDrainLimit = 20
)

// Wire formats
const (
	// TimestampLayout matches ISO-8601 with a numeric offset, e.g. 2017-09-07T09:45:26-03:00
	TimestampLayout = "2006-01-02T15:04:05-07:00"
)

const (
	DefaultAPIURL   = "https://codealike.com"
	DefaultClientID = "codealike-agent"
)
