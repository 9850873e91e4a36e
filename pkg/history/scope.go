package history

// Scope groups mutations into one transaction using defer.
//
//	func dragSelection(h *history.Engine, ids []int, delta graph.Position) error {
//	    defer h.Scope("drag selection").End()
//	    // ... several Move calls ...
//	}
type Scope struct {
	engine *Engine
	active bool
	start  savepoint
}

// Scope begins an explicit transaction and returns a handle that ends it.
func (h *Engine) Scope(annotation string) *Scope {
	sp := h.savepoint()
	h.Begin(annotation)
	return &Scope{engine: h, active: true, start: sp}
}

// End commits the scope's transaction.
// Safe to call multiple times; only the first call has effect.
func (s *Scope) End() {
	if s.active {
		s.engine.Commit()
		s.active = false
	}
}

// Cancel reverts the mutations made since the scope began. An enclosing
// transaction stays open with its earlier records. Calling End afterwards
// does nothing.
func (s *Scope) Cancel() error {
	if !s.active {
		return nil
	}
	s.active = false
	return s.engine.rollbackTo(s.start)
}

// Transaction runs fn inside an explicit transaction.
// If fn returns an error the mutations it made are reverted and the error is
// returned; otherwise the transaction is committed. Nested inside another
// transaction, a failure reverts only fn's own mutations.
func (h *Engine) Transaction(annotation string, fn func() error) error {
	s := h.Scope(annotation)
	if err := fn(); err != nil {
		if rerr := s.Cancel(); rerr != nil {
			return rerr
		}
		return err
	}
	s.End()
	return nil
}
