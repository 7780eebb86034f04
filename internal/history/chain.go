package history

import (
	"fmt"
	"time"

	"github.com/blackwell-systems/venvtrack/internal/snapshot"
)

// CheckChain verifies that each entry's after-state equals the next
// entry's before-state. A mismatch means something mutated the
// environment outside the ledger's view between the two operations; it
// is reported, never silently assumed away.
func CheckChain(entries []*Entry) []string {
	var breaks []string
	for i := 0; i+1 < len(entries); i++ {
		a, b := entries[i], entries[i+1]
		if a.After == nil || b.Before == nil {
			continue // tolerant listing left a phase unloaded
		}
		if !snapshot.Equal(a.After, b.Before) {
			breaks = append(breaks, fmt.Sprintf(
				"untracked change between operations %d and %d: environment did not match the recorded state",
				a.ID, b.ID))
		}
	}
	return breaks
}

// Stats summarizes ledger activity for the snapshot-reminder heuristic.
type Stats struct {
	TotalOperations int
	// OperationsSince counts mutations recorded after the reference
	// time handed to CollectStats.
	OperationsSince int
	LastOperation   time.Time
}

// CollectStats reads ledger statistics relative to since (zero time means
// count everything).
func (l *Ledger) CollectStats(since time.Time) (*Stats, error) {
	ops, err := l.st.ListOperations(0)
	if err != nil {
		return nil, err
	}
	st := &Stats{TotalOperations: len(ops)}
	if len(ops) > 0 {
		st.LastOperation = ops[len(ops)-1].CreatedAt
	}
	n, err := l.st.CountOperationsSince(since)
	if err != nil {
		return nil, err
	}
	st.OperationsSince = n
	return st, nil
}
