package table

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"

	"github.com/gridline/table-sync-service/internal/domain/model"
)

// Registry is the process-wide map from table id to live session. The first
// open for an id materializes the table from storage under the registry
// lock, so two concurrent opens produce exactly one load. Sessions are
// retained for the process's lifetime; there is no eviction.
type Registry struct {
	mu       sync.Mutex
	sessions map[int64]*Session

	// missing remembers table ids storage recently reported absent, so a
	// storm of connects to a dead link does not hammer the database.
	missing *expirable.LRU[int64, time.Time]

	store     Store
	exporter  Exporter
	logger    *slog.Logger
	cfg       options
	startedAt time.Time
}

func NewRegistry(store Store, exporter Exporter, logger *slog.Logger, opts ...Option) *Registry {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Registry{
		sessions:  make(map[int64]*Session),
		missing:   expirable.NewLRU[int64, time.Time](cfg.missingCacheSize, nil, cfg.missingCacheTTL),
		store:     store,
		exporter:  exporter,
		logger:    logger,
		cfg:       cfg,
		startedAt: time.Now(),
	}
}

// Open returns the session for tableID, materializing it from storage on
// first use: load dimensions and cells, allocate the grid, build the hub,
// start the sweeper. Returns ErrNotFound when the id is absent from storage
// or storage failed to answer.
func (r *Registry) Open(ctx context.Context, tableID int64) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[tableID]; ok {
		return s, nil
	}
	if _, ok := r.missing.Get(tableID); ok {
		return nil, ErrNotFound
	}

	var (
		width, height int32
		records       []CellRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		width, height, err = r.store.LoadDims(gctx, tableID)
		return err
	})
	g.Go(func() error {
		var err error
		records, err = r.store.LoadCells(gctx, tableID)
		return err
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, ErrNotFound) {
			r.missing.Add(tableID, time.Now())
		} else {
			// Transient storage failure: surface as NotFound to the
			// connection, but keep it out of the negative cache.
			r.logger.Error("table load failed", "table_id", tableID, "error", err)
		}
		return nil, ErrNotFound
	}

	s := newSession(tableID, width, height, records, r.store, r.exporter, r.logger, r.cfg)
	s.start()
	r.sessions[tableID] = s
	r.logger.Info("table session materialized",
		"table_id", tableID, "width", width, "height", height)
	return s, nil
}

// Stats assembles the live registry view for the stats surface.
func (r *Registry) Stats() model.RegistryStats {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	out := model.RegistryStats{Uptime: time.Since(r.startedAt)}
	for _, s := range sessions {
		ts := s.Stats()
		out.Tables = append(out.Tables, ts)
		out.TotalSubscribers += ts.Subscribers
	}
	out.TotalTables = len(sessions)
	return out
}

// Shutdown stops every session's sweeper and drops all subscribers. Called
// from the fx lifecycle on process exit only.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		s.stop()
		delete(r.sessions, id)
	}
}
