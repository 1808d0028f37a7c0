package core

import "errors"

var (
	// ErrSessionActive is returned when StartSession is called on an
	// orchestrator that has already started (or finished) its session.  A
	// new orchestrator instance is required per session.
	ErrSessionActive = errors.New("session already started")
	// ErrSessionNotActive guards every per-turn operation outside the
	// Active state.
	ErrSessionNotActive = errors.New("session not active")
	// ErrEnhancementInvalid means the composed payload failed the label
	// check.  Should not occur given fixed composition; checked defensively.
	ErrEnhancementInvalid = errors.New("enhanced input validation failed")
)
