package lock

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ResourceType tags the class of aggregate a lock protects.
type ResourceType string

const (
	ResourceLoan        ResourceType = "LOAN"
	ResourcePayment     ResourceType = "PAYMENT"
	ResourceRestructure ResourceType = "RESTRUCTURE"
)

const (
	DefaultTimeout = 300 * time.Second
	ComplexTimeout = 600 * time.Second
)

func (t ResourceType) Valid() bool {
	switch t {
	case ResourceLoan, ResourcePayment, ResourceRestructure:
		return true
	}
	return false
}

// ParseResourceType accepts the tag case-insensitively ("loan", "LOAN").
func ParseResourceType(s string) (ResourceType, error) {
	t := ResourceType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown resource type %q", ErrInvalidResource, s)
	}
	return t, nil
}

// Key identifies one protected aggregate instance.
type Key struct {
	Type ResourceType
	ID   uint64
}

func LoanKey(loanID uint64) Key { return Key{Type: ResourceLoan, ID: loanID} }

func (k Key) Validate() error {
	if !k.Type.Valid() {
		return fmt.Errorf("%w: unknown resource type %q", ErrInvalidResource, k.Type)
	}
	if k.ID == 0 {
		return fmt.Errorf("%w: resource id must be positive", ErrInvalidResource)
	}
	return nil
}

// String renders the key as "LOAN#123"; it is also the value stored in the active slot.
func (k Key) String() string { return string(k.Type) + "#" + strconv.FormatUint(k.ID, 10) }

// Table: lock_entries. Rows are append-only history; a released or reclaimed row
// is never reactivated.
type Entry struct {
	ID           uint64       `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ResourceType ResourceType `gorm:"column:resource_type;size:20;not null;index:idx_lock_entries_resource,priority:1" json:"resource_type"`
	ResourceID   uint64       `gorm:"column:resource_id;not null;index:idx_lock_entries_resource,priority:2" json:"resource_id"`
	// nil means system-initiated
	HolderID    *uint64 `gorm:"column:holder_id" json:"holder_id,omitempty"`
	Description string  `gorm:"column:description;size:255" json:"description,omitempty"`
	// "<TYPE>#<id>" while active, NULL afterwards. The unique index over this column
	// is what admits a single active row per resource key.
	ActiveSlot *string    `gorm:"column:active_slot;size:64;uniqueIndex:ux_lock_entries_active_slot" json:"-"`
	Active     bool       `gorm:"column:active;not null;index" json:"active"`
	ExpiresAt  time.Time  `gorm:"column:expires_at;precision:6;not null;index" json:"expires_at"`
	ReleasedAt *time.Time `gorm:"column:released_at;precision:6" json:"released_at,omitempty"`
	CreatedAt  time.Time  `gorm:"column:created_at;precision:6;autoCreateTime" json:"created_at"`
}

func (Entry) TableName() string { return "lock_entries" }

func (e *Entry) Key() Key { return Key{Type: e.ResourceType, ID: e.ResourceID} }

// Held reports whether the entry blocks new acquisitions at now.
func (e *Entry) Held(now time.Time) bool { return e.Active && e.ExpiresAt.After(now) }

type AcquireOptions struct {
	// zero means DefaultTimeout
	Timeout     time.Duration
	Holder      *uint64
	Description string
}

type AcquireResult struct {
	Acquired  bool
	LockID    uint64
	ExpiresAt time.Time
	// zero unless Acquired
	Token Token
	// set when Acquired is false
	Message string
	Busy    *BusyError
}

type Status struct {
	Locked      bool       `json:"locked"`
	LockID      uint64     `json:"lock_id,omitempty"`
	Holder      *uint64    `json:"holder,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Description string     `json:"description,omitempty"`
}
