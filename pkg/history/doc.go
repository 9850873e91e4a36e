// Package history makes every blueprint graph mutation reversible.
//
// An [Engine] wraps a [graph.Graph]. Each primitive mutation made through the
// engine produces exactly one [Record] (a delete of a wired entity produces
// one extra record per wired peer) and appends it to the open transaction.
// [Engine.Commit] closes the transaction at the end of a user gesture and
// appends it to a linear timeline. [Engine.Undo] and [Engine.Redo] move a
// cursor over that timeline, replaying whole transactions.
//
// # Records
//
// Records are a closed set of variants:
//
//   - [*Add]: entity or tile created; undone by deleting it
//   - [*Delete]: entity or tile removed; undone by re-creating it with its wires
//   - [*Move]: placement changed; undone by restoring the prior placement
//   - [*Update]: fields changed; undone by restoring the prior values
//
// Collaborators redraw from the returned records, using [Record.Target] and
// [Record.OtherEntity] (or [Affected]) to find the entities to refresh. The
// engine performs no rendering itself.
//
// # Transactions
//
// Mutations outside an explicit transaction accumulate implicitly until
// Commit, Undo or Redo. Explicit transactions nest:
//
//	err := h.Transaction("paste", func() error {
//	    for _, e := range clipboard {
//	        if _, err := h.Create(e); err != nil {
//	            return err // everything created so far is reverted
//	        }
//	    }
//	    return nil
//	})
//
// Committing after an undo discards the redo tail; there is no redo tree.
package history
