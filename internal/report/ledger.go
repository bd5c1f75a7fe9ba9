package report

import "sync"

// Ledger stores outcomes in memory.
type Ledger struct {
	mu       sync.Mutex
	outcomes []Outcome
}

// NewLedger creates an empty ledger optionally pre-sizing storage.
func NewLedger(capacity int) *Ledger {
	if capacity < 0 {
		capacity = 0
	}
	return &Ledger{outcomes: make([]Outcome, 0, capacity)}
}

// Record appends an outcome to the ledger.
func (l *Ledger) Record(o Outcome) {
	l.mu.Lock()
	l.outcomes = append(l.outcomes, o)
	l.mu.Unlock()
}

// Snapshot returns a copy of the recorded outcomes.
func (l *Ledger) Snapshot() []Outcome {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Outcome, len(l.outcomes))
	copy(out, l.outcomes)
	return out
}

// Counts returns accepted and failed totals.
func (l *Ledger) Counts() (ok, failed int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, o := range l.outcomes {
		if o.OK() {
			ok++
		} else {
			failed++
		}
	}
	return ok, failed
}

// Reset clears all stored outcomes.
func (l *Ledger) Reset() {
	l.mu.Lock()
	l.outcomes = l.outcomes[:0]
	l.mu.Unlock()
}
