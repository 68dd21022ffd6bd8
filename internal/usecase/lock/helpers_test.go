package lock

import (
	"sync"
	"testing"
	"time"

	mysqlrepo "collections-backend/internal/adapter/repository/mysql"
	"collections-backend/internal/metrics"
	"collections-backend/internal/testutil/sqlitedb"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// fakeClock is a settable clock for deterministic expiry.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	db      *gorm.DB
	manager *Manager
	metrics *metrics.Metrics
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	db := sqlitedb.Open(t)
	mt := metrics.New("test")
	opts = append([]Option{WithMetrics(mt)}, opts...)
	return &fixture{
		db:      db,
		manager: NewManager(mysqlrepo.NewLockStore(db), zap.NewNop(), opts...),
		metrics: mt,
	}
}

func u64(v uint64) *uint64 { return &v }
