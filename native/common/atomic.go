package common

// Snapshotter is the minimal revert surface the engines need from the state
// backend. Every public engine operation runs inside Atomic so a failure at
// any point leaves state byte-identical to its pre-call form.
type Snapshotter interface {
	Snapshot() int
	RevertToSnapshot(int)
}

// Atomic executes fn inside a state snapshot, reverting every mutation fn
// performed when it returns an error. There is no partial commit and no
// compensating-transaction logic anywhere above this helper.
func Atomic(s Snapshotter, fn func() error) error {
	if s == nil {
		return fn()
	}
	snap := s.Snapshot()
	if err := fn(); err != nil {
		s.RevertToSnapshot(snap)
		return err
	}
	return nil
}
