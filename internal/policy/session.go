package policy

import (
	"context"
	"fmt"

	"github.com/robert-at-pretension-io/ipxact-meta/internal/facts"
)

// Session keeps the last fact snapshot so that a re-resolution can be linted
// from a delta instead of a full table dump.
type Session struct {
	engine  *Engine
	current facts.Tables
	loaded  bool
}

// NewSession starts an empty session on engine.
func NewSession(engine *Engine) *Session {
	return &Session{engine: engine, current: facts.NewTables()}
}

// Init loads a full snapshot and returns the current violations.
func (s *Session) Init(ctx context.Context, tables facts.Tables) (*Result, error) {
	res, err := s.engine.Evaluate(ctx, tables)
	if err != nil {
		return nil, err
	}
	s.current = tables
	s.loaded = true
	return res, nil
}

// Delta applies an incremental update and returns the updated violations.
// The snapshot is left unchanged when the update fails.
func (s *Session) Delta(ctx context.Context, delta facts.Delta) (*Result, error) {
	if !s.loaded {
		return nil, fmt.Errorf("delta before init")
	}
	if err := s.engine.facts.ValidateDelta(delta); err != nil {
		return nil, fmt.Errorf("delta facts invalid: %w", err)
	}
	next := facts.ApplyDelta(s.current, delta)
	res, err := s.engine.Evaluate(ctx, next)
	if err != nil {
		return nil, err
	}
	s.current = next
	return res, nil
}

// Snapshot re-evaluates the current state without changes.
func (s *Session) Snapshot(ctx context.Context) (*Result, error) {
	if !s.loaded {
		return nil, fmt.Errorf("snapshot before init")
	}
	return s.engine.Evaluate(ctx, s.current)
}

// Tables returns the session's current snapshot.
func (s *Session) Tables() facts.Tables {
	return s.current
}
