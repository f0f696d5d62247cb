package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/i474232898/weather-lookup/internal/observability"
	"github.com/i474232898/weather-lookup/internal/store"
)

const (
	DefaultStorageKey     = "weather-storage"
	DefaultMinQueryLength = 3
)

// State is a copy of the application state. Location and WeatherData are
// shared with the service and must not be modified.
type State struct {
	Status        RequestStatus     `json:"status"`
	ErrorMessage  string            `json:"errorMessage,omitempty"`
	Location      *Location         `json:"location"`
	WeatherData   *ForecastSnapshot `json:"weatherData"`
	Units         UnitPreferences   `json:"units"`
	SearchResults []Location        `json:"searchResults"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

func (s State) IsFetching() bool { return s.Status == StatusPending }
func (s State) IsError() bool    { return s.Status == StatusFailed }

func (s State) clone() State {
	if s.SearchResults != nil {
		s.SearchResults = append([]Location(nil), s.SearchResults...)
	}
	return s
}

// Options configures a Service. Geocoder and Forecaster are required.
type Options struct {
	Geocoder   Geocoder
	Forecaster Forecaster

	// Positioner backs UseMyLocation; nil reports ErrUnsupportedCapability.
	Positioner Positioner

	// KV persists units, location and forecast; nil disables persistence.
	KV         KV
	StorageKey string

	// StaleGuard drops completions of operations that were superseded by a
	// newer one. When false the last operation to complete wins.
	StaleGuard bool

	MinQueryLength int

	Clock   clockwork.Clock
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Service is the weather orchestration store: it holds the application state
// and sequences geocoding and forecast calls. All mutations go through its
// methods. Operations never return lookup errors; failures are recorded as
// the state's error message.
type Service struct {
	geocoder   Geocoder
	forecaster Forecaster
	positioner Positioner
	kv         KV
	storageKey string
	staleGuard bool
	minQuery   int
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics

	mu    sync.RWMutex
	state State
	seq   uint64
}

// NewService creates a Service in the idle state with default units.
func NewService(opts Options) *Service {
	s := &Service{
		geocoder:   opts.Geocoder,
		forecaster: opts.Forecaster,
		positioner: opts.Positioner,
		kv:         opts.KV,
		storageKey: opts.StorageKey,
		staleGuard: opts.StaleGuard,
		minQuery:   opts.MinQueryLength,
		clock:      opts.Clock,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		state: State{
			Status: StatusIdle,
			Units:  DefaultUnits(),
		},
	}
	if s.storageKey == "" {
		s.storageKey = DefaultStorageKey
	}
	if s.minQuery <= 0 {
		s.minQuery = DefaultMinQueryLength
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.logger == nil {
		s.logger = observability.NopLogger()
	}
	return s
}

// State returns a copy of the current state.
func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Restore loads the persisted blob. Missing, undecodable or outdated blobs
// leave the initial state in place.
func (s *Service) Restore(ctx context.Context) error {
	if s.kv == nil {
		return nil
	}

	data, err := s.kv.Get(ctx, s.storageKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load persisted state: %w", err)
	}

	p, err := decodePersisted(data)
	if err != nil {
		s.logger.Warn("discarding persisted state", "key", s.storageKey, "error", err)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Units = p.Units
	s.state.Location = p.Location
	s.state.WeatherData = p.WeatherData
	s.state.Status = StatusIdle
	if p.WeatherData != nil {
		s.state.Status = StatusReady
	}
	s.state.UpdatedAt = s.clock.Now()

	s.logger.Info("restored persisted state",
		"key", s.storageKey,
		"has_location", p.Location != nil,
		"has_forecast", p.WeatherData != nil,
		"saved_at", p.SavedAt,
	)
	return nil
}

// Search resolves query to candidate locations and publishes them as the
// search results. An empty query is a no-op.
func (s *Service) Search(ctx context.Context, query string) State {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.State()
	}

	op := s.begin(ctx, "search")
	results, err := s.resolveName(ctx, query)
	if err != nil {
		return s.fail(ctx, op, err, clearSearchResults)
	}
	return s.succeed(ctx, op, func(st *State) {
		st.SearchResults = results
	})
}

// Suggest runs Search for queries of at least the minimum length and clears
// the search results otherwise.
func (s *Service) Suggest(ctx context.Context, query string) State {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < s.minQuery {
		return s.ClearSearchResults(ctx)
	}
	return s.Search(ctx, query)
}

// SelectCandidate fetches the forecast for loc in the current units.
func (s *Service) SelectCandidate(ctx context.Context, loc Location) State {
	op := s.begin(ctx, "select")
	return s.fetchFor(ctx, op, loc, true)
}

// SearchAndSelectFirst resolves query and fetches the forecast for the first
// candidate. Candidates are not published as search results.
func (s *Service) SearchAndSelectFirst(ctx context.Context, query string) State {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.State()
	}

	op := s.begin(ctx, "search_and_select")
	results, err := s.resolveName(ctx, query)
	if err != nil {
		return s.fail(ctx, op, err, clearSearchResults)
	}
	if s.isStale(op) {
		return s.dropStale(op)
	}
	return s.fetchFor(ctx, op, results[0], true)
}

// UseCurrentPosition reverse-geocodes coords and fetches their forecast.
func (s *Service) UseCurrentPosition(ctx context.Context, coords Coordinates) State {
	op := s.begin(ctx, "use_position")
	return s.resolveAndFetch(ctx, op, coords)
}

// UseMyLocation asks the positioner for a fix and continues as
// UseCurrentPosition.
func (s *Service) UseMyLocation(ctx context.Context) State {
	op := s.begin(ctx, "use_my_location")
	if s.positioner == nil {
		return s.fail(ctx, op, ErrUnsupportedCapability, nil)
	}

	coords, err := s.positioner.CurrentPosition(ctx)
	if err != nil {
		return s.fail(ctx, op, err, nil)
	}
	if s.isStale(op) {
		return s.dropStale(op)
	}
	return s.resolveAndFetch(ctx, op, coords)
}

// Refresh re-fetches the current location's forecast. Search results are
// kept. Without a location it is a no-op.
func (s *Service) Refresh(ctx context.Context) State {
	s.mu.RLock()
	loc := s.state.Location
	s.mu.RUnlock()

	if loc == nil {
		return s.State()
	}

	op := s.begin(ctx, "refresh")
	return s.fetchFor(ctx, op, *loc, false)
}

// SetUnits merges the non-empty fields of patch into the unit preferences
// and discards the forecast, which was fetched in the old units. It does not
// refetch. With the stale guard on, operations started before the change are
// superseded and their completions dropped.
func (s *Service) SetUnits(ctx context.Context, patch UnitPreferences) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.Units.Merge(patch)
	if err := next.Validate(); err != nil {
		return s.state.clone(), err
	}

	s.state.Units = next
	s.state.WeatherData = nil

	// Fetches already in flight use the old units.
	s.seq++
	if s.staleGuard && s.state.Status == StatusPending {
		s.state.Status = StatusIdle
	}
	s.touchLocked(ctx)

	s.logger.Info("units changed",
		"temperature", next.Temperature,
		"wind_speed", next.WindSpeed,
		"precipitation", next.Precipitation,
	)
	return s.state.clone(), nil
}

// Clear drops the location together with its forecast.
func (s *Service) Clear(ctx context.Context) State {
	return s.update(ctx, func(st *State) {
		st.Location = nil
		st.WeatherData = nil
	})
}

// ClearError drops the error message; a failed status becomes idle.
func (s *Service) ClearError(ctx context.Context) State {
	return s.update(ctx, func(st *State) {
		st.ErrorMessage = ""
		if st.Status == StatusFailed {
			st.Status = StatusIdle
		}
	})
}

func (s *Service) ClearSearchResults(ctx context.Context) State {
	return s.update(ctx, clearSearchResults)
}

func clearSearchResults(st *State) {
	st.SearchResults = nil
}

func (s *Service) resolveName(ctx context.Context, query string) ([]Location, error) {
	results, err := s.geocoder.ResolveByName(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, query)
	}
	return results, nil
}

func (s *Service) resolveAndFetch(ctx context.Context, op operation, coords Coordinates) State {
	loc, err := s.geocoder.ResolveByCoordinates(ctx, coords.Latitude, coords.Longitude)
	if err != nil {
		return s.fail(ctx, op, err, nil)
	}
	if s.isStale(op) {
		return s.dropStale(op)
	}
	return s.fetchFor(ctx, op, loc, true)
}

// fetchFor fetches loc's forecast in the units captured when op began. On
// failure the previous location and forecast are kept.
func (s *Service) fetchFor(ctx context.Context, op operation, loc Location, clearResults bool) State {
	snap, err := s.forecaster.Fetch(ctx, loc.Latitude, loc.Longitude, op.units)
	if err != nil {
		return s.fail(ctx, op, err, nil)
	}
	snap.FetchedAt = s.clock.Now()
	if loc.Timezone == "" {
		loc.Timezone = snap.Timezone
	}

	return s.succeed(ctx, op, func(st *State) {
		st.Location = &loc
		st.WeatherData = snap
		if clearResults {
			st.SearchResults = nil
		}
	})
}

// operation tracks one in-flight store operation.
type operation struct {
	name   string
	seq    uint64
	units  UnitPreferences
	logger *slog.Logger
}

// begin marks the state pending, clears the error and captures the units the
// operation will fetch with.
func (s *Service) begin(ctx context.Context, name string) operation {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	op := operation{
		name:   name,
		seq:    s.seq,
		units:  s.state.Units,
		logger: s.logger.With("op", name, "op_id", uuid.NewString()),
	}

	s.state.Status = StatusPending
	s.state.ErrorMessage = ""
	s.touchLocked(ctx)

	op.logger.Debug("operation started", "seq", op.seq)
	return op
}

func (s *Service) succeed(ctx context.Context, op operation, apply func(st *State)) State {
	st, applied := s.commit(ctx, op, func(st *State) {
		apply(st)
		st.Status = StatusReady
		st.ErrorMessage = ""
	})
	if applied {
		op.logger.Info("operation completed")
		s.metrics.ObserveOperation(op.name, "ready")
	}
	return st
}

func (s *Service) fail(ctx context.Context, op operation, err error, also func(st *State)) State {
	st, applied := s.commit(ctx, op, func(st *State) {
		if also != nil {
			also(st)
		}
		st.Status = StatusFailed
		st.ErrorMessage = err.Error()
	})
	if applied {
		op.logger.Warn("operation failed", "error", err)
		s.metrics.ObserveOperation(op.name, "failed")
	}
	return st
}

// commit applies mutate unless the stale guard rejects op.
func (s *Service) commit(ctx context.Context, op operation, mutate func(st *State)) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isStaleLocked(op) {
		s.recordStale(op)
		return s.state.clone(), false
	}

	mutate(&s.state)
	s.touchLocked(ctx)
	return s.state.clone(), true
}

func (s *Service) update(ctx context.Context, mutate func(st *State)) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	mutate(&s.state)
	s.touchLocked(ctx)
	return s.state.clone()
}

func (s *Service) isStale(op operation) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isStaleLocked(op)
}

func (s *Service) isStaleLocked(op operation) bool {
	return s.staleGuard && op.seq != s.seq
}

func (s *Service) dropStale(op operation) State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.recordStale(op)
	return s.state.clone()
}

func (s *Service) recordStale(op operation) {
	op.logger.Debug("dropping superseded completion", "seq", op.seq, "latest_seq", s.seq)
	s.metrics.ObserveOperation(op.name, "stale")
}

// touchLocked stamps the state and overwrites the persisted blob.
func (s *Service) touchLocked(ctx context.Context) {
	now := s.clock.Now()
	s.state.UpdatedAt = now

	if s.kv == nil {
		return
	}
	data, err := encodePersisted(s.state, now)
	if err == nil {
		err = s.kv.Put(context.WithoutCancel(ctx), s.storageKey, data)
	}
	if err != nil {
		s.logger.Error("failed to persist state", "key", s.storageKey, "error", err)
		s.metrics.PersistFailed()
	}
}
