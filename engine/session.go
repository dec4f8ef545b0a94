package engine

import (
	"sync"

	"go.uber.org/zap"

	nanocorehost "github.com/wippyai/nanocore-host"
)

// Session serializes all engine access process-wide. The underlying
// engine carries one implicit global execution context, so two
// instances' runs must never interleave inside it; the session mutex is
// the only path to the engine, making the serialization guarantee
// structural rather than a calling convention.
type Session struct {
	mu  sync.Mutex
	eng nanocorehost.Engine
	log *zap.Logger
}

// NewSession wraps eng in a session lock.
func NewSession(eng nanocorehost.Engine) *Session {
	return &Session{
		eng: eng,
		log: Logger(),
	}
}

// Do runs fn with exclusive access to the engine. The lock is held for
// the whole of fn, so a compound sequence (bind context, push
// breakpoints, run, read state) is atomic with respect to every other
// instance. fn must not call back into the session.
func (s *Session) Do(fn func(eng nanocorehost.Engine)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.eng)
}
