// Package pkg holds the libraries behind the bpedit blueprint editor.
//
// # Overview
//
// The editor loads blueprint strings, edits the entity graph with full
// undo/redo and writes blueprint strings back out. The packages layer as
// follows:
//
//  1. [graph] - entities, tiles and circuit wires keyed by entity number
//  2. [history] - transactional undo/redo over graph mutations
//  3. [blueprint] - Blueprint and Book containers
//  4. [bpstring] - the blueprint string codec (encode, decode, find)
//  5. [session] - the editing session: active blueprint, quickbar, pipette
//  6. [store], [config], [observability] - persistence, settings and metrics
//
// # Data Flow
//
//	clipboard text
//	      ↓
//	[bpstring] Find + Decode
//	      ↓
//	[blueprint] Blueprint / Book
//	      ↓
//	[history] recorded edits on [graph]
//	      ↓
//	[bpstring] Encode → clipboard text
//
// [graph]: github.com/matzehuels/bpedit/pkg/graph
// [history]: github.com/matzehuels/bpedit/pkg/history
// [blueprint]: github.com/matzehuels/bpedit/pkg/blueprint
// [bpstring]: github.com/matzehuels/bpedit/pkg/bpstring
// [session]: github.com/matzehuels/bpedit/pkg/session
// [store]: github.com/matzehuels/bpedit/pkg/store
// [config]: github.com/matzehuels/bpedit/pkg/config
// [observability]: github.com/matzehuels/bpedit/pkg/observability
package pkg
