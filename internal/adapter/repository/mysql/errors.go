package mysql

import (
	"errors"
	"strings"

	driver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// InnoDB lock-wait outcomes. Both mean another transaction holds what we need.
const (
	errLockWaitTimeout uint16 = 1205
	errDeadlock        uint16 = 1213
)

// isDuplicateKey recognises unique-index violations. gorm translates them to
// ErrDuplicatedKey when TranslateError is on; the message check covers raw
// driver errors from connections opened without it.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || // MySQL 1062
		strings.Contains(msg, "UNIQUE constraint failed") // SQLite
}

// isContention recognises a deadlock victim or a lock wait timeout. After 1213
// InnoDB has already rolled back the whole transaction, an enclosing one included.
func isContention(err error) bool {
	var me *driver.MySQLError
	if !errors.As(err, &me) {
		return false
	}
	return me.Number == errDeadlock || me.Number == errLockWaitTimeout
}
