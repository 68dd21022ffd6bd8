package mysql

import (
	"context"
	"errors"
	"time"

	lockDomain "collections-backend/internal/domain/lock"

	"gorm.io/gorm"
)

// LockStore keeps lock entries in the lock_entries table. Bound to a *gorm.DB that
// may itself be a transaction; Acquire then runs inside a savepoint.
type LockStore struct{ db *gorm.DB }

func NewLockStore(db *gorm.DB) *LockStore { return &LockStore{db: db} }

var _ lockDomain.Store = (*LockStore)(nil)

func releaseColumns(now time.Time) map[string]any {
	return map[string]any{"active": false, "active_slot": nil, "released_at": now}
}

func (s *LockStore) byKey(tx *gorm.DB, key lockDomain.Key) *gorm.DB {
	return tx.Where("resource_type = ? AND resource_id = ?", key.Type, key.ID)
}

func (s *LockStore) Acquire(ctx context.Context, e *lockDomain.Entry, now time.Time) (*lockDomain.Entry, int64, error) {
	key := e.Key()
	var (
		blocking  *lockDomain.Entry
		reclaimed int64
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. live lock? A plain read: the unique active_slot index is what keeps two
		// acquirers apart, a locking read here only adds InnoDB gap-lock deadlocks.
		var cur lockDomain.Entry
		res := s.byKey(tx, key).
			Where("active = ? AND expires_at > ?", true, now).
			Order("id DESC").Limit(1).Find(&cur)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			blocking = &cur
			return nil
		}

		// 2. reclaim rows whose holder never released them
		res = s.byKey(tx.Model(&lockDomain.Entry{}), key).
			Where("active = ? AND expires_at <= ?", true, now).
			Updates(releaseColumns(now))
		if res.Error != nil {
			return res.Error
		}
		reclaimed = res.RowsAffected

		// 3. claim the active slot; the unique index rejects a concurrent twin
		slot := key.String()
		e.ActiveSlot = &slot
		e.Active = true
		return tx.Create(e).Error
	})
	if err == nil {
		return blocking, reclaimed, nil
	}
	e.ID, e.ActiveSlot, e.Active = 0, nil, false
	switch {
	case isDuplicateKey(err):
		// lost the race between lookup and insert: someone else holds the slot now
		return s.conflictWinner(ctx, key, now)
	case isContention(err):
		// the database picked this acquirer as the loser of a lock wait
		return unseenWinner(key), 0, nil
	default:
		return nil, 0, err
	}
}

// conflictWinner reports the entry that took key's slot after a duplicate-key
// insert. A winner still inside its own transaction is invisible here and is
// reported as an entry without id.
func (s *LockStore) conflictWinner(ctx context.Context, key lockDomain.Key, now time.Time) (*lockDomain.Entry, int64, error) {
	winner, err := s.Active(ctx, key, now)
	switch {
	case err == nil:
		return winner, 0, nil
	case errors.Is(err, lockDomain.ErrNotFound):
		return unseenWinner(key), 0, nil
	default:
		return nil, 0, err
	}
}

func unseenWinner(key lockDomain.Key) *lockDomain.Entry {
	return &lockDomain.Entry{ResourceType: key.Type, ResourceID: key.ID, Active: true}
}

func (s *LockStore) Get(ctx context.Context, id uint64) (*lockDomain.Entry, error) {
	var out lockDomain.Entry
	if err := s.db.WithContext(ctx).First(&out, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, lockDomain.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

func (s *LockStore) Active(ctx context.Context, key lockDomain.Key, now time.Time) (*lockDomain.Entry, error) {
	var out lockDomain.Entry
	err := s.byKey(s.db.WithContext(ctx), key).
		Where("active = ? AND expires_at > ?", true, now).
		Order("id DESC").
		First(&out).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, lockDomain.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

func (s *LockStore) Release(ctx context.Context, id uint64, now time.Time) (bool, error) {
	// conditional on active so two racing releases cannot both report true
	res := s.db.WithContext(ctx).Model(&lockDomain.Entry{}).
		Where("id = ? AND active = ?", id, true).
		Updates(releaseColumns(now))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *LockStore) ReleaseAll(ctx context.Context, key lockDomain.Key, now time.Time) (int64, error) {
	res := s.byKey(s.db.WithContext(ctx).Model(&lockDomain.Entry{}), key).
		Where("active = ?", true).
		Updates(releaseColumns(now))
	return res.RowsAffected, res.Error
}

func (s *LockStore) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&lockDomain.Entry{}).
		Where("active = ? AND expires_at <= ?", true, now).
		Updates(releaseColumns(now))
	return res.RowsAffected, res.Error
}

func (s *LockStore) History(ctx context.Context, key lockDomain.Key, limit int) ([]lockDomain.Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []lockDomain.Entry
	err := s.byKey(s.db.WithContext(ctx), key).Order("id DESC").Limit(limit).Find(&out).Error
	return out, err
}
