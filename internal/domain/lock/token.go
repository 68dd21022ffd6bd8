package lock

import "fmt"

// Token proves a guarded operation holds the lock on Key. Aggregate writers take
// one as a parameter so a write path that forgot to lock does not compile.
type Token struct {
	key    Key
	lockID uint64
}

func TokenFor(e *Entry) Token { return Token{key: e.Key(), lockID: e.ID} }

func (t Token) Key() Key       { return t.key }
func (t Token) LockID() uint64 { return t.lockID }

// Covers fails with ErrLockRequired unless t was issued for key.
func (t Token) Covers(key Key) error {
	if t.lockID == 0 || t.key != key {
		return fmt.Errorf("%w: %s (token covers %s)", ErrLockRequired, key, t.key)
	}
	return nil
}
