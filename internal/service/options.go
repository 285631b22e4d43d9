package service

import "time"

type EventOption func(*EventService)

// FanOutLimit caps the number of recipients processed concurrently
// during one event's fan-out.
func FanOutLimit(limit int) EventOption {
	return func(s *EventService) {
		if limit > 0 {
			s.fanOutLimit = limit
		}
	}
}

// EventClock overrides the time source, for tests.
func EventClock(now func() time.Time) EventOption {
	return func(s *EventService) {
		if now != nil {
			s.now = now
		}
	}
}

type BroadcastOption func(*BroadcastService)

// MinLeadTime sets the scheduling floor: a broadcast must be at least
// this far in the future at create/reschedule time.
func MinLeadTime(d time.Duration) BroadcastOption {
	return func(s *BroadcastService) {
		if d > 0 {
			s.minLeadTime = d
		}
	}
}

// ClaimBatch caps how many due broadcasts one sweep claims.
func ClaimBatch(n int) BroadcastOption {
	return func(s *BroadcastService) {
		if n > 0 {
			s.claimBatch = n
		}
	}
}

// BroadcastClock overrides the time source, for tests.
func BroadcastClock(now func() time.Time) BroadcastOption {
	return func(s *BroadcastService) {
		if now != nil {
			s.now = now
		}
	}
}
