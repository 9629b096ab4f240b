// Package wildcard implements a hierarchical-name event emitter distinct from
// the exact-match dispatch in the asyncevents package. Event names are
// segmented by a delimiter and matched against patterns that may end in a
// terminal wildcard segment.
package wildcard

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Config controls how patterns are parsed and how the no-subscription
// fallback is named. NewEmitter treats an empty Delimiter or Wildcard as its
// default, so the zero Config behaves the same as DefaultConfig.
type Config struct {
	// Delimiter splits an event name and a pattern into segments. Default "_".
	Delimiter string
	// Wildcard is the token that, as a pattern's final segment, matches one
	// or more trailing segments of an event name. Default "%".
	Wildcard string
	// NoSubscriptionEvent is the sentinel pattern whose listeners receive a
	// synthetic dispatch when an emitted event matches nothing else. Default
	// "" (the empty string).
	NoSubscriptionEvent string
}

// DefaultConfig returns the emitter's default delimiter ("_"), wildcard
// token ("%"), and no-subscription sentinel ("").
func DefaultConfig() Config {
	return Config{Delimiter: "_", Wildcard: "%", NoSubscriptionEvent: ""}
}

// MatchedEvent is prepended to a listener's arguments when its pattern
// matched by wildcard rather than by exact equality. Exact matches receive no
// such argument.
type MatchedEvent struct {
	// Name is the event name that was emitted.
	Name string
}

// Listener receives a dispatched event. matched is non-nil only when the
// listener's pattern matched via wildcard expansion.
type Listener func(ctx context.Context, matched *MatchedEvent, payload any)

type listenerEntry struct {
	id       string
	pattern  string
	segments []string
	bare     bool // pattern is exactly the wildcard token, matches everything
	listener Listener
	seq      uint64
}

// Emitter is a hierarchical-name dispatcher. It is safe for concurrent use.
type Emitter struct {
	cfg Config

	mu     sync.RWMutex
	byID   map[string]*listenerEntry
	all    []*listenerEntry // registration order, global across patterns
	seqGen uint64
}

// NewEmitter constructs an Emitter. An empty Delimiter or Wildcard falls back
// to DefaultConfig's value for that field.
func NewEmitter(cfg Config) *Emitter {
	if cfg.Delimiter == "" {
		cfg.Delimiter = "_"
	}
	if cfg.Wildcard == "" {
		cfg.Wildcard = "%"
	}
	return &Emitter{cfg: cfg, byID: make(map[string]*listenerEntry)}
}

// On registers listener against pattern and returns its ID, usable with Off.
// pattern's wildcard token, if present, must be the final segment: "a_%" is
// valid, "a_%_b" is not.
func (e *Emitter) On(pattern string, listener Listener) (string, error) {
	if listener == nil {
		return "", fmt.Errorf("wildcard: listener cannot be nil")
	}
	segments := strings.Split(pattern, e.cfg.Delimiter)
	for i, seg := range segments {
		if seg == e.cfg.Wildcard && i != len(segments)-1 {
			return "", fmt.Errorf("wildcard: wildcard token only valid as the terminal segment of pattern %q", pattern)
		}
	}

	entry := &listenerEntry{
		id:       uuid.NewString(),
		pattern:  pattern,
		segments: segments,
		bare:     pattern == e.cfg.Wildcard,
		listener: listener,
	}

	e.mu.Lock()
	e.seqGen++
	entry.seq = e.seqGen
	e.byID[entry.id] = entry
	e.all = append(e.all, entry)
	e.mu.Unlock()

	return entry.id, nil
}

// Off removes a listener by ID. It reports whether a listener with that ID
// was still registered.
func (e *Emitter) Off(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.byID[id]; !ok {
		return false
	}
	delete(e.byID, id)
	for i, entry := range e.all {
		if entry.id == id {
			e.all = append(e.all[:i], e.all[i+1:]...)
			break
		}
	}
	return true
}

// Emit dispatches name, synchronously and in global registration order, to
// every listener whose pattern matches. If nothing matches, Emit dispatches
// once, non-recursively, to listeners registered on the configured
// NoSubscriptionEvent sentinel — that synthetic dispatch is never itself
// eligible for the no-subscription fallback.
func (e *Emitter) Emit(ctx context.Context, name string, payload any) {
	e.dispatch(ctx, name, name, payload, false, true)
}

// dispatch matches pattern against the listeners registered on dispatchAs
// (either name itself, or the NoSubscriptionEvent sentinel on a fallback
// pass) while always reporting the originally emitted name to a wildcard or
// sentinel listener. name and dispatchAs are kept separate so the
// no-subscription fallback can still tell its listeners which event actually
// had no subscribers. isFallback records whether this call IS that fallback
// pass; it must not be inferred from dispatchAs != name, since an emitted
// name may coincidentally equal the configured sentinel.
func (e *Emitter) dispatch(ctx context.Context, name, dispatchAs string, payload any, isFallback, allowFallback bool) {
	dispatchSegments := strings.Split(dispatchAs, e.cfg.Delimiter)

	e.mu.RLock()
	entries := make([]*listenerEntry, len(e.all))
	copy(entries, e.all)
	e.mu.RUnlock()

	matchedAny := false
	for _, entry := range entries {
		nameMatch := entry.pattern == dispatchAs
		wildcardMatch := !nameMatch && matches(entry, dispatchSegments, e.cfg.Wildcard)
		if !nameMatch && !wildcardMatch {
			continue
		}
		matchedAny = true
		if nameMatch && !isFallback {
			entry.listener(ctx, nil, payload)
			continue
		}
		entry.listener(ctx, &MatchedEvent{Name: name}, payload)
	}

	if matchedAny || !allowFallback {
		return
	}
	e.dispatch(ctx, name, e.cfg.NoSubscriptionEvent, payload, true, false)
}

// matches reports whether entry's pattern matches nameSegments under the
// bare-wildcard and prefix-wildcard rules: a bare wildcard ("%") matches any
// name, and a prefix pattern ("a_b_%") matches any name whose leading
// segments equal the pattern's non-wildcard segments and which has at least
// one further segment beyond that prefix.
func matches(entry *listenerEntry, nameSegments []string, wildcard string) bool {
	if entry.bare {
		return true
	}
	if len(entry.segments) == 0 || entry.segments[len(entry.segments)-1] != wildcard {
		return false
	}
	prefix := entry.segments[:len(entry.segments)-1]
	if len(nameSegments) <= len(prefix) {
		return false
	}
	for i, seg := range prefix {
		if nameSegments[i] != seg {
			return false
		}
	}
	return true
}
