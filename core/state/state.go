package state

import (
	"errors"
	"fmt"
	"math/big"
	"sort"

	"routevault/storage"
)

// ErrInsufficientBalance is returned when a debit exceeds the account's
// balance for the mint.
var ErrInsufficientBalance = errors.New("state: insufficient balance")

// ErrInvalidSnapshot is returned when a revert targets a snapshot id that
// was never issued or has already been reverted.
var ErrInvalidSnapshot = errors.New("state: invalid snapshot id")

type overlayEntry struct {
	value   []byte // nil marks a pending delete
	present bool
}

type journalEntry struct {
	key  string
	prev overlayEntry
	had  bool // whether the overlay held an entry for key before the write
}

// State is the persistence backend shared by every engine. Writes buffer in
// an overlay over the database, and a journal records how to undo each
// overlay mutation so a failed operation can roll back to the snapshot taken
// at its start. Commit flushes the overlay to the database.
type State struct {
	db      storage.Database
	overlay map[string]overlayEntry
	journal []journalEntry
	nextID  int
	// issued snapshot id -> journal length at issue time
	revisions map[int]int
}

// New constructs a State over the given database.
func New(db storage.Database) *State {
	return &State{
		db:        db,
		overlay:   make(map[string]overlayEntry),
		revisions: make(map[int]int),
	}
}

// Snapshot marks the current journal position and returns an id that
// RevertToSnapshot accepts.
func (s *State) Snapshot() int {
	id := s.nextID
	s.nextID++
	s.revisions[id] = len(s.journal)
	return id
}

// RevertToSnapshot undoes every overlay mutation recorded after the given
// snapshot was taken. Later snapshot ids are invalidated.
func (s *State) RevertToSnapshot(id int) {
	mark, ok := s.revisions[id]
	if !ok {
		panic(fmt.Errorf("%w: %d", ErrInvalidSnapshot, id))
	}
	for i := len(s.journal) - 1; i >= mark; i-- {
		entry := s.journal[i]
		if entry.had {
			s.overlay[entry.key] = entry.prev
		} else {
			delete(s.overlay, entry.key)
		}
	}
	s.journal = s.journal[:mark]
	for issued := range s.revisions {
		if issued >= id {
			delete(s.revisions, issued)
		}
	}
}

// Commit flushes the overlay to the database and clears the journal.
// Outstanding snapshots are invalidated.
func (s *State) Commit() error {
	keys := make([]string, 0, len(s.overlay))
	for key := range s.overlay {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		entry := s.overlay[key]
		if entry.value == nil {
			if err := s.db.Delete([]byte(key)); err != nil {
				return fmt.Errorf("state: commit delete: %w", err)
			}
			continue
		}
		if err := s.db.Put([]byte(key), entry.value); err != nil {
			return fmt.Errorf("state: commit put: %w", err)
		}
	}
	s.overlay = make(map[string]overlayEntry)
	s.journal = s.journal[:0]
	s.revisions = make(map[int]int)
	return nil
}

func (s *State) set(key []byte, value []byte) {
	k := string(key)
	prev, had := s.overlay[k]
	s.journal = append(s.journal, journalEntry{key: k, prev: prev, had: had})
	s.overlay[k] = overlayEntry{value: value, present: true}
}

func (s *State) put(key, value []byte) {
	buf := make([]byte, len(value))
	copy(buf, value)
	s.set(key, buf)
}

func (s *State) delete(key []byte) {
	s.set(key, nil)
}

func (s *State) get(key []byte) ([]byte, bool, error) {
	if entry, ok := s.overlay[string(key)]; ok {
		if entry.value == nil {
			return nil, false, nil
		}
		return entry.value, true, nil
	}
	value, err := s.db.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

// BalanceOf returns the balance of the account for the mint, zero when the
// pair has never been credited.
func (s *State) BalanceOf(account, mint [20]byte) *big.Int {
	raw, ok, err := s.get(balanceKey(account, mint))
	if err != nil || !ok {
		return big.NewInt(0)
	}
	return new(big.Int).SetBytes(raw)
}

// Credit adds amount to the account's balance for the mint.
func (s *State) Credit(account, mint [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("state: credit amount must be non-negative")
	}
	balance := s.BalanceOf(account, mint)
	balance.Add(balance, amount)
	s.put(balanceKey(account, mint), balance.Bytes())
	return nil
}

// Debit subtracts amount from the account's balance for the mint.
func (s *State) Debit(account, mint [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("state: debit amount must be non-negative")
	}
	balance := s.BalanceOf(account, mint)
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	balance.Sub(balance, amount)
	s.put(balanceKey(account, mint), balance.Bytes())
	return nil
}
