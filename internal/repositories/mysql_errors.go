package repositories

import (
	"context"
	"database/sql"
	"errors"

	"busyatri/internal/domain"

	"github.com/go-sql-driver/mysql"
)

const (
	mysqlErrDuplicateEntry  = 1062
	mysqlErrLockWaitTimeout = 1205
	mysqlErrQueryTimeout    = 3024
)

// mapMySQLError converts driver timeouts into StoreTimeoutError and leaves
// everything else untouched.
func mapMySQLError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.StoreTimeoutError{Op: op, Err: err}
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) && (me.Number == mysqlErrLockWaitTimeout || me.Number == mysqlErrQueryTimeout) {
		return domain.StoreTimeoutError{Op: op, Err: err}
	}
	return err
}

func isDuplicateEntry(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlErrDuplicateEntry
}

func rollback(tx *sql.Tx, committed *bool) {
	if !*committed {
		_ = tx.Rollback()
	}
}
