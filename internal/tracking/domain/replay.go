package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// SortEvents orders events by occurrence time ascending, tiebreaking on
// event ID. Scan stations have skewed clocks, so replay never trusts
// insertion order; the ID tiebreak makes the order total and replay
// deterministic for equal timestamps.
func SortEvents(events []MovementEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].OccurredAt.Equal(events[j].OccurredAt) {
			return events[i].OccurredAt.Before(events[j].OccurredAt)
		}
		return events[i].ID < events[j].ID
	})
}

// Replay folds a label's ordered movement events into its current state.
// It is a pure function: the same event sequence always yields the same
// final state. Callers must pass events already sorted (see SortEvents).
//
// State machine: OUT (initial) and IN(location, qty, containers).
//   - PUTAWAY places the label, defaulting quantity/containers to the
//     label's nominal values on first placement. A PUTAWAY while the label
//     is IN at a different location quietly relocates it; the operator
//     scanned the pallet at its new spot without an explicit transfer.
//   - TRANSFER relocates; quantity/containers change only when restated.
//   - CONSUME subtracts deltas, clamped at zero; location unchanged.
//   - EMPTY_OUT zeroes everything and clears the location.
func Replay(label *Label, events []MovementEvent) CurrentState {
	state := CurrentState{
		LabelID: label.ID,
		Status:  StatusOut,
	}

	for i := range events {
		ev := &events[i]
		if ev.LabelID != label.ID {
			continue
		}

		switch ev.Type {
		case EventPutAway:
			dest := ""
			if ev.ToLocation != nil {
				dest = *ev.ToLocation
			}
			if state.Status == StatusOut {
				state.Status = StatusIn
				state.Location = dest
				state.Quantity = label.NetQuantity
				state.Containers = label.Containers
				t := ev.OccurredAt
				state.PlacedAt = &t
			} else if state.Location != dest {
				// Lenient relocation: tolerated, not rejected.
				state.Location = dest
				t := ev.OccurredAt
				state.PlacedAt = &t
			}
			// Absolute overwrite when values are restated.
			if ev.Quantity != nil {
				state.Quantity = *ev.Quantity
			}
			if ev.Containers != nil {
				state.Containers = *ev.Containers
			}

		case EventTransfer:
			dest := ""
			if ev.ToLocation != nil {
				dest = *ev.ToLocation
			}
			if state.Status == StatusOut {
				// A transfer of an unmapped label is rejected on the write
				// path; during replay it behaves as an initial placement.
				state.Status = StatusIn
				state.Quantity = label.NetQuantity
				state.Containers = label.Containers
			}
			if state.Location != dest {
				t := ev.OccurredAt
				state.PlacedAt = &t
			}
			state.Location = dest
			if ev.Quantity != nil {
				state.Quantity = *ev.Quantity
			}
			if ev.Containers != nil {
				state.Containers = *ev.Containers
			}

		case EventConsume:
			if state.Status != StatusIn {
				continue
			}
			if ev.Quantity != nil {
				state.Quantity = decimal.Max(decimal.Zero, state.Quantity.Sub(*ev.Quantity))
			}
			if ev.Containers != nil {
				c := state.Containers - *ev.Containers
				if c < 0 {
					c = 0
				}
				state.Containers = c
			}

		case EventEmptyOut:
			state.Status = StatusOut
			state.Location = ""
			state.Quantity = decimal.Zero
			state.Containers = 0
			state.PlacedAt = nil
		}

		state.UpdatedAt = ev.OccurredAt
	}

	return state
}

// ReplayAll groups a mixed event stream by label and folds each label
// independently. Labels without a reference record are skipped; their
// events cannot be interpreted without nominal quantities.
func ReplayAll(labels map[string]*Label, events []MovementEvent) map[string]CurrentState {
	SortEvents(events)

	byLabel := make(map[string][]MovementEvent)
	for _, ev := range events {
		byLabel[ev.LabelID] = append(byLabel[ev.LabelID], ev)
	}

	states := make(map[string]CurrentState, len(byLabel))
	for id, evs := range byLabel {
		label, ok := labels[id]
		if !ok {
			continue
		}
		states[id] = Replay(label, evs)
	}
	return states
}
