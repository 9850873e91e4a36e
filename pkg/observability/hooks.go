// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about history, codec, and library store operations.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hook signatures only use primitive types so that pkg/history, pkg/bpstring
// and pkg/store can call them without import cycles.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    p, _ := observability.NewPrometheus("bpedit")
//	    p.Install()
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	start := time.Now()
//	s, err := encode(item)
//	observability.Codec().OnEncode(ctx, "blueprint", "game", len(s), time.Since(start), err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// History Hooks
// =============================================================================

// HistoryHooks receives events from the undo/redo engine.
// History operations are synchronous and carry no context.
type HistoryHooks interface {
	// OnCommit records a transaction being appended to the timeline.
	OnCommit(annotation string, records int)

	// OnApplied records an undo or redo. direction is "undo" or "redo".
	OnApplied(direction, annotation string, records int)
}

// =============================================================================
// Codec Hooks
// =============================================================================

// CodecHooks receives events from the blueprint string codec.
type CodecHooks interface {
	// OnEncode records an encode. kind is the item kind, scheme the envelope scheme.
	OnEncode(ctx context.Context, kind, scheme string, size int, duration time.Duration, err error)

	// OnDecode records a decode. kind is the decoded item kind on success.
	OnDecode(ctx context.Context, kind string, size int, duration time.Duration, err error)

	// OnFind records a search for an envelope in free text.
	OnFind(ctx context.Context, candidates int, found bool)
}

// =============================================================================
// Store Hooks
// =============================================================================

// StoreHooks receives events from blueprint library backends.
type StoreHooks interface {
	// OnStoreHit records a successful lookup.
	OnStoreHit(ctx context.Context, backend string)

	// OnStoreMiss records a lookup for an absent key.
	OnStoreMiss(ctx context.Context, backend string)

	// OnStoreSet records a write.
	OnStoreSet(ctx context.Context, backend string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopHistoryHooks is a no-op implementation of HistoryHooks.
type NoopHistoryHooks struct{}

func (NoopHistoryHooks) OnCommit(string, int)          {}
func (NoopHistoryHooks) OnApplied(string, string, int) {}

// NoopCodecHooks is a no-op implementation of CodecHooks.
type NoopCodecHooks struct{}

func (NoopCodecHooks) OnEncode(context.Context, string, string, int, time.Duration, error) {}
func (NoopCodecHooks) OnDecode(context.Context, string, int, time.Duration, error)         {}
func (NoopCodecHooks) OnFind(context.Context, int, bool)                                   {}

// NoopStoreHooks is a no-op implementation of StoreHooks.
type NoopStoreHooks struct{}

func (NoopStoreHooks) OnStoreHit(context.Context, string)      {}
func (NoopStoreHooks) OnStoreMiss(context.Context, string)     {}
func (NoopStoreHooks) OnStoreSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	historyHooks HistoryHooks = NoopHistoryHooks{}
	codecHooks   CodecHooks   = NoopCodecHooks{}
	storeHooks   StoreHooks   = NoopStoreHooks{}
	hooksMu      sync.RWMutex
)

// SetHistoryHooks registers custom history hooks.
// This should be called once at application startup before any editing.
func SetHistoryHooks(h HistoryHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		historyHooks = h
	}
}

// SetCodecHooks registers custom codec hooks.
// This should be called once at application startup before any codec operations.
func SetCodecHooks(h CodecHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		codecHooks = h
	}
}

// SetStoreHooks registers custom store hooks.
// This should be called once at application startup before any store operations.
func SetStoreHooks(h StoreHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		storeHooks = h
	}
}

// History returns the registered history hooks.
func History() HistoryHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return historyHooks
}

// Codec returns the registered codec hooks.
func Codec() CodecHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return codecHooks
}

// Store returns the registered store hooks.
func Store() StoreHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return storeHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	historyHooks = NoopHistoryHooks{}
	codecHooks = NoopCodecHooks{}
	storeHooks = NoopStoreHooks{}
}
