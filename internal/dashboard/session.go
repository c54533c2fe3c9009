package dashboard

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"

	"clinica/internal/core"
	"clinica/internal/insight"
	"clinica/internal/log"
)

// ErrNotRefreshed is returned by mutations attempted before the first
// Refresh chose a mode.
var ErrNotRefreshed = errors.New("dashboard session has not been refreshed")

// ErrNothingToAnalyze is returned by Insight on an empty collection.
var ErrNothingToAnalyze = insight.ErrNothingToAnalyze

// Session ties the pieces together for one user: it runs the mode probe,
// owns State and hands mutations to the coordinator of the chosen mode.
type Session struct {
	remote  RemoteClient
	cache   Cache
	insight *insight.Service
	state   *State
	view    *ViewModel
	logger  *log.Logger
	group   singleflight.Group

	mu    sync.RWMutex
	coord *Coordinator
}

// NewSession creates a session in ModeUnknown. Call Refresh before
// mutating.
func NewSession(remote RemoteClient, cache Cache, insights *insight.Service, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentDashboard)
	}
	if insights == nil {
		insights = insight.NewService(nil, logger.WithComponent(log.ComponentInsight))
	}
	state := NewState()
	return &Session{
		remote:  remote,
		cache:   cache,
		insight: insights,
		state:   state,
		view:    NewViewModel(state),
		logger:  logger,
	}
}

// Refresh probes the remote store once. A usable answer selects remote mode
// and adopts the list; anything else selects local mode with the cached
// collection, or an empty one. The mode holds until the next Refresh.
// Concurrent calls share one probe.
func (s *Session) Refresh(ctx context.Context) Mode {
	v, _, _ := s.group.Do("refresh", func() (any, error) {
		return s.probe(ctx), nil
	})
	return v.(Mode)
}

func (s *Session) probe(ctx context.Context) Mode {
	var backend Backend
	list, err := s.remote.List(ctx)
	if err == nil {
		s.state.Replace(list)
		backend = NewRemoteBackend(s.remote, s.state, s.logger)
		s.logger.InfoContext(ctx, "Connected to remote store",
			log.FieldMode, ModeRemote.String(),
			log.FieldCount, len(list))
	} else {
		cached, _ := s.cache.Load()
		s.state.Replace(cached)
		backend = NewLocalBackend(s.cache, s.state, s.logger)
		s.logger.WarnContext(ctx, "Remote store unavailable, using local fallback",
			log.FieldMode, ModeLocal.String(),
			log.FieldCount, len(cached),
			log.FieldError, err)
	}

	coord := NewCoordinator(backend, s.logger)
	s.mu.Lock()
	s.coord = coord
	s.mu.Unlock()
	return backend.Mode()
}

func (s *Session) coordinator() (*Coordinator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.coord == nil {
		return nil, ErrNotRefreshed
	}
	return s.coord, nil
}

// Mode reports the mode chosen by the last Refresh.
func (s *Session) Mode() Mode {
	c, err := s.coordinator()
	if err != nil {
		return ModeUnknown
	}
	return c.Mode()
}

func (s *Session) View() *ViewModel {
	return s.view
}

func (s *Session) State() *State {
	return s.state
}

func (s *Session) Create(ctx context.Context, d core.Draft) (bool, error) {
	c, err := s.coordinator()
	if err != nil {
		return false, err
	}
	return c.Create(ctx, d)
}

func (s *Session) Delete(ctx context.Context, id string) error {
	c, err := s.coordinator()
	if err != nil {
		return err
	}
	return c.Delete(ctx, id)
}

// Insight asks for an analysis of the whole collection. It refuses an empty
// collection; provider failures come back as the placeholder text.
func (s *Session) Insight(ctx context.Context) (string, error) {
	list := s.state.Snapshot()
	if len(list) == 0 {
		return "", ErrNothingToAnalyze
	}
	return s.insight.Request(ctx, list)
}
