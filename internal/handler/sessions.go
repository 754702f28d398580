package handler

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/pratofino/catering-cart/internal/domain/cart"
)

// StorageFactory creates the per-session slot storage an engine persists
// into.
type StorageFactory func(sessionID string) cart.Storage

// Sessions maps session identifiers to cart engines. Each session owns
// exactly one engine for its lifetime; the engine restores its persisted
// state on first use.
type Sessions struct {
	storageFor StorageFactory
	lg         *zap.Logger

	mu      sync.Mutex
	engines map[string]*cart.Engine
}

// NewSessions creates a session registry over the given storage factory.
func NewSessions(storageFor StorageFactory, lg *zap.Logger) *Sessions {
	return &Sessions{
		storageFor: storageFor,
		lg:         lg,
		engines:    make(map[string]*cart.Engine),
	}
}

// Get returns the session's engine, creating and restoring it on first
// access. Restore failures surface to the caller; the engine is not
// registered so the next request retries.
func (s *Sessions) Get(ctx context.Context, sessionID string) (*cart.Engine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if engine, ok := s.engines[sessionID]; ok {
		return engine, nil
	}

	engine := cart.NewEngine(s.storageFor(sessionID), s.lg.With(zap.String("sessionId", sessionID)))
	if err := engine.Restore(ctx); err != nil {
		return nil, err
	}
	s.engines[sessionID] = engine
	return engine, nil
}
