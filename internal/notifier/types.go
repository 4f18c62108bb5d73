package notifier

import "time"

// Config controls pacing and bookkeeping of deliveries.
type Config struct {
	RatePerSec  float64
	Burst       int
	SendTimeout time.Duration
	HistorySize int
}

type HistoryItem struct {
	At    time.Time
	Kind  string
	Title string
	Error string
}

// Report summarizes one Deliver call.
type Report struct {
	Sent   int
	Failed int
}
