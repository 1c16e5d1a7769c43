package app

import (
	"context"
	"errors"
	"time"

	"dutyroster/internal/config"
	"dutyroster/internal/eventbus"
	"dutyroster/internal/roster"
	"dutyroster/internal/storage"
	logx "dutyroster/pkg/logx"
)

// State is exclusive access to the persisted roster: the single-writer
// lock, the open store and an engine loaded from it.
type State struct {
	Path   string
	Lock   *storage.Lock
	Store  storage.Store
	Engine *roster.Engine

	log logx.Logger
}

// OpenState locks, opens and loads the configured store. A missing state
// file is created with defaults.
func OpenState(ctx context.Context, cfg *config.Config, log logx.Logger) (*State, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	sc, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	opts, err := mapEngineOptions(cfg)
	if err != nil {
		return nil, err
	}
	lock, err := storage.AcquireLock(sc.Path)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(sc, log)
	if err != nil {
		_ = lock.Release()
		return nil, err
	}
	st, found, err := store.Load(ctx)
	if err != nil {
		_ = store.Close()
		_ = lock.Release()
		return nil, err
	}
	eng := roster.NewEngine(st, opts, store)
	if eng.State().Collides() {
		log.Warn("stored pair points at the same slot; next forward step fixes it", logx.Int("slot", eng.State().Index1+1))
	}
	if !found {
		if err := eng.Flush(ctx); err != nil {
			_ = store.Close()
			_ = lock.Release()
			return nil, err
		}
		log.Info("state file created", logx.String("path", sc.Path))
	}
	log.Debug("state opened", logx.String("driver", sc.Driver), logx.String("path", sc.Path), logx.String("state", eng.State().String()))
	return &State{Path: sc.Path, Lock: lock, Store: store, Engine: eng, log: log}, nil
}

// Host wraps the engine in a roster.Host that records every change in the
// audit trail.
func (s *State) Host(dates roster.DateSource, bus eventbus.Bus, log logx.Logger) *roster.Host {
	h := roster.NewHost(s.Engine, dates, bus, log)
	h.OnChange(s.audit)
	return h
}

func (s *State) audit(ctx context.Context, c roster.Change) {
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.Store.AppendAudit(actx, storage.AuditFromChange(c)); err != nil {
		s.log.Warn("audit append failed", logx.String("action", c.Action), logx.Err(err))
	}
}

// Close releases the store and the lock.
func (s *State) Close() error {
	if s == nil {
		return nil
	}
	return errors.Join(s.Store.Close(), s.Lock.Release())
}

// RunHost starts h, applies op and stops h again, flushing the state.
// CLI commands use it for one mutation.
func RunHost[T any](ctx context.Context, h *roster.Host, op func(ctx context.Context) (T, error)) (T, error) {
	hctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = h.Run(hctx)
	}()
	defer func() {
		cancel()
		<-done
	}()
	return op(ctx)
}

// OpenStore opens the configured store without taking the lock, for
// read-only commands that must work while the daemon runs.
func OpenStore(cfg *config.Config, log logx.Logger) (storage.Store, error) {
	sc, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	return storage.Open(sc, log)
}
