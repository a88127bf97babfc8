package shared

import (
	"errors"
	"fmt"
	"testing"
)

func TestSQLiteErrorPredicates(t *testing.T) {
	t.Parallel()

	busy := errors.New("database is locked (5) (SQLITE_BUSY)")
	unique := fmt.Errorf("insert: %w", errors.New("constraint failed: UNIQUE constraint failed: users.email (2067)"))

	if !IsSQLiteConflictError(busy) || !IsSQLiteBusyError(busy) || !IsSQLiteLockedError(busy) {
		t.Error("expected busy error to be a conflict")
	}
	if IsSQLiteConflictError(unique) {
		t.Error("unique violation must not be retried as a conflict")
	}
	if !IsSQLiteUniqueError(unique) {
		t.Error("expected unique violation to be detected through wrapping")
	}
	if IsSQLiteConflictError(nil) || IsSQLiteUniqueError(nil) {
		t.Error("nil must not match")
	}
}
