package db

import (
	"strings"

	"github.com/teranos/ontomap/errors"
)

// ErrDatabaseClosed is returned when operations are attempted on a closed database,
// typically during shutdown while a drain is still importing.
var ErrDatabaseClosed = errors.New("database is closed")

// IsDatabaseClosed checks for ErrDatabaseClosed or the driver's own closed message,
// which cannot be wrapped at the source.
func IsDatabaseClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDatabaseClosed) {
		return true
	}
	return strings.Contains(err.Error(), "database is closed")
}
