package grant

import "time"

// accessEntry is one recorded access check. allowed is the TRUE grant at
// check time, never the circuit-overridden answer.
type accessEntry struct {
	at      time.Time
	userID  string
	allowed bool
}

// accessLog is one feature's sliding window of access checks. The head is
// pruned on every write, and the user multisets carry per-user refcounts:
// a user stays in the window until their last entry ages out, so repeated
// checks by one user cannot evict their membership early.
type accessLog struct {
	entries []accessEntry
	users   map[string]int // userID → entries currently in window
	denied  map[string]int // userID → denied entries currently in window
}

func newAccessLog() *accessLog {
	return &accessLog{
		users:  make(map[string]int),
		denied: make(map[string]int),
	}
}

// observe appends one access check, then prunes every entry older than
// now minus window. Entries exactly at the cutoff are retained.
func (l *accessLog) observe(now time.Time, userID string, allowed bool, window time.Duration) {
	l.entries = append(l.entries, accessEntry{at: now, userID: userID, allowed: allowed})

	cutoff := now.Add(-window)
	for len(l.entries) > 0 && l.entries[0].at.Before(cutoff) {
		old := l.entries[0]
		l.entries = l.entries[1:]
		decrement(l.users, old.userID)
		if !old.allowed {
			decrement(l.denied, old.userID)
		}
	}

	l.users[userID]++
	if !allowed {
		l.denied[userID]++
	}
}

// distinctUsers is the number of distinct users with any in-window entry.
func (l *accessLog) distinctUsers() int {
	return len(l.users)
}

// distinctDenied is the number of distinct users with an in-window denial.
func (l *accessLog) distinctDenied() int {
	return len(l.denied)
}

func decrement(counts map[string]int, key string) {
	if counts[key] <= 1 {
		delete(counts, key)
		return
	}
	counts[key]--
}
