package sqlite

import (
	"fmt"
	"strings"

	"github.com/rpggio/fieldwork/internal/fault"
)

func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, fault.ErrNotFound)
}

func notInProgress(id string) error {
	return fmt.Errorf("activity %q is not in progress: %w", id, fault.ErrIllegalTransition)
}

func writeError(action string, err error) error {
	switch {
	case isForeignKeyViolation(err):
		return fmt.Errorf("failed to %s: %w: unknown reference", action, fault.ErrRejected)
	case isUniqueViolation(err):
		return fmt.Errorf("failed to %s: %w: duplicate", action, fault.ErrRejected)
	default:
		return fmt.Errorf("failed to %s: %w", action, err)
	}
}
