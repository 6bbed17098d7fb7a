package killmail

import (
	"golang.org/x/exp/slices"
)

// CompareEvents orders by timestamp, breaking ties on event id.
func CompareEvents(a, b Event) int {
	if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
		return c
	}
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	}
	return 0
}

// SortEvents sorts events in place with CompareEvents.
func SortEvents(events []Event) {
	slices.SortFunc(events, CompareEvents)
}
