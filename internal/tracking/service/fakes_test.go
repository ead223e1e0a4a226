package service_test

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/pharmtrace/pharmtrace-backend/internal/tracking/domain"
	"github.com/pharmtrace/pharmtrace-backend/pkg/errors"
)

// In-memory fakes for the service store interfaces. They mirror the SQL
// repositories closely enough to exercise the decision logic without a
// database.

type fakeLabels struct {
	labels map[string]*domain.Label
}

func newFakeLabels(labels ...*domain.Label) *fakeLabels {
	m := make(map[string]*domain.Label, len(labels))
	for _, l := range labels {
		m[l.ID] = l
	}
	return &fakeLabels{labels: m}
}

func (f *fakeLabels) GetByID(_ context.Context, id string) (*domain.Label, error) {
	label, ok := f.labels[id]
	if !ok {
		return nil, errors.NotFound("label")
	}
	return label, nil
}

func (f *fakeLabels) GetByIDs(_ context.Context, ids []string) (map[string]*domain.Label, error) {
	out := make(map[string]*domain.Label)
	for _, id := range ids {
		if label, ok := f.labels[id]; ok {
			out[id] = label
		}
	}
	return out, nil
}

type fakeMovements struct {
	mu     sync.Mutex
	events []domain.MovementEvent
	nextID int
}

func (f *fakeMovements) Append(_ context.Context, event *domain.MovementEvent) (string, error) {
	if details := event.Validate(); details != nil {
		return "", errors.Validation(details)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("ev-%04d", f.nextID)
	stored := *event
	stored.ID = id
	stored.RecordedAt = stored.OccurredAt
	f.events = append(f.events, stored)
	return id, nil
}

func (f *fakeMovements) ListByLabel(_ context.Context, labelID string) ([]domain.MovementEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.MovementEvent
	for _, ev := range f.events {
		if ev.LabelID == labelID {
			out = append(out, ev)
		}
	}
	domain.SortEvents(out)
	return out, nil
}

func (f *fakeMovements) ListForLabels(_ context.Context, labelIDs []string) ([]domain.MovementEvent, error) {
	want := make(map[string]bool, len(labelIDs))
	for _, id := range labelIDs {
		want[id] = true
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.MovementEvent
	for _, ev := range f.events {
		if want[ev.LabelID] {
			out = append(out, ev)
		}
	}
	domain.SortEvents(out)
	return out, nil
}

func (f *fakeMovements) LabelIDsTouchingLocation(_ context.Context, code string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, ev := range f.events {
		touches := (ev.ToLocation != nil && *ev.ToLocation == code) ||
			(ev.FromLocation != nil && *ev.FromLocation == code)
		if touches && !seen[ev.LabelID] {
			seen[ev.LabelID] = true
			out = append(out, ev.LabelID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeMovements) DistinctLabelIDs(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, ev := range f.events {
		if !seen[ev.LabelID] {
			seen[ev.LabelID] = true
			out = append(out, ev.LabelID)
		}
	}
	sort.Strings(out)
	return out, nil
}

type fakeQuality struct {
	mu     sync.Mutex
	events []domain.QualityEvent
	nextID int
}

func (f *fakeQuality) Append(_ context.Context, event *domain.QualityEvent) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("qe-%04d", f.nextID)
	stored := *event
	stored.ID = id
	f.events = append(f.events, stored)
	return id, nil
}

func (f *fakeQuality) ListByLabel(_ context.Context, labelID string) ([]domain.QualityEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.QualityEvent
	for _, ev := range f.events {
		if ev.LabelID == labelID {
			out = append(out, ev)
		}
	}
	// Newest first, matching the SQL repository.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OccurredAt.After(out[j].OccurredAt)
	})
	return out, nil
}

func (f *fakeQuality) LatestByLabel(_ context.Context, labelIDs []string) (map[string]domain.QualityEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := make(map[string]bool, len(labelIDs))
	for _, id := range labelIDs {
		want[id] = true
	}
	out := make(map[string]domain.QualityEvent)
	for _, ev := range f.events {
		if !want[ev.LabelID] {
			continue
		}
		cur, ok := out[ev.LabelID]
		if !ok || ev.OccurredAt.After(cur.OccurredAt) {
			out[ev.LabelID] = ev
		}
	}
	return out, nil
}

type fakeLocations struct {
	locations map[string]*domain.Location
}

func newFakeLocations(codes ...string) *fakeLocations {
	m := make(map[string]*domain.Location, len(codes))
	for _, code := range codes {
		m[code] = &domain.Location{Code: code, Name: code, Active: true}
	}
	return &fakeLocations{locations: m}
}

func (f *fakeLocations) GetByCode(_ context.Context, code string) (*domain.Location, error) {
	loc, ok := f.locations[code]
	if !ok {
		return nil, errors.NotFound("location")
	}
	return loc, nil
}

func (f *fakeLocations) GetMany(_ context.Context, codes []string) (map[string]*domain.Location, error) {
	out := make(map[string]*domain.Location)
	for _, code := range codes {
		if loc, ok := f.locations[code]; ok {
			out[code] = loc
		}
	}
	return out, nil
}

func (f *fakeLocations) List(_ context.Context, filter *domain.LocationFilter) ([]*domain.Location, error) {
	var out []*domain.Location
	for _, loc := range f.locations {
		out = append(out, loc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// fakeProjection keeps states in memory; flipping unavailable makes every
// call fail with ProjectionUnavailable, simulating a missing read-side.
type fakeProjection struct {
	mu          sync.Mutex
	states      map[string]domain.CurrentState
	unavailable bool
	upsertErr   error
}

func newFakeProjection() *fakeProjection {
	return &fakeProjection{states: make(map[string]domain.CurrentState)}
}

func (f *fakeProjection) failing() error {
	if f.unavailable {
		return errors.ProjectionUnavailable(fmt.Errorf("relation does not exist"))
	}
	return nil
}

func (f *fakeProjection) GetByLabel(_ context.Context, labelID string) (*domain.CurrentState, error) {
	if err := f.failing(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	state, ok := f.states[labelID]
	if !ok {
		return nil, nil
	}
	return &state, nil
}

func (f *fakeProjection) ListAtLocation(_ context.Context, code string) ([]domain.CurrentState, error) {
	if err := f.failing(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.CurrentState
	for _, st := range f.states {
		if st.Status == domain.StatusIn && st.Location == code {
			out = append(out, st)
		}
	}
	return out, nil
}

func (f *fakeProjection) List(_ context.Context) ([]domain.CurrentState, error) {
	if err := f.failing(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.CurrentState
	for _, st := range f.states {
		if st.Status == domain.StatusIn {
			out = append(out, st)
		}
	}
	return out, nil
}

func (f *fakeProjection) Upsert(_ context.Context, state *domain.CurrentState) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	if err := f.failing(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[state.LabelID] = *state
	return nil
}

func (f *fakeProjection) ViewAtLocation(_ context.Context, code string) ([]domain.StateRow, error) {
	return nil, errors.ProjectionUnavailable(fmt.Errorf("view not deployed"))
}

func (f *fakeProjection) ViewByLabel(_ context.Context, labelID string) (*domain.StateRow, error) {
	return nil, errors.ProjectionUnavailable(fmt.Errorf("view not deployed"))
}

func (f *fakeProjection) ViewList(_ context.Context) ([]domain.StateRow, error) {
	return nil, errors.ProjectionUnavailable(fmt.Errorf("view not deployed"))
}

// fakePublisher records published notifications
type fakePublisher struct {
	mu        sync.Mutex
	movements []domain.MovementEvent
	quality   []domain.QualityEvent
	emptied   []domain.MovementEvent
}

func (f *fakePublisher) PublishMovementRecorded(_ context.Context, ev *domain.MovementEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.movements = append(f.movements, *ev)
}

func (f *fakePublisher) PublishQualityChanged(_ context.Context, ev *domain.QualityEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quality = append(f.quality, *ev)
}

func (f *fakePublisher) PublishLabelEmptied(_ context.Context, ev *domain.MovementEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emptied = append(f.emptied, *ev)
}
