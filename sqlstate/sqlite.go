//go:build cgo

package sqlstate

import (
	"errors"
	"strconv"

	"github.com/mattn/go-sqlite3"
)

func init() {
	Register(classifySQLite)
}

// classifySQLite maps sqlite result codes. SQLite has no SQLSTATE of its own;
// constraint failures map to class 23 and everything else to HY000.
func classifySQLite(err error) (Info, bool) {
	var liteErr sqlite3.Error
	if !errors.As(err, &liteErr) {
		return Info{}, false
	}

	state := GeneralError
	if liteErr.Code == sqlite3.ErrConstraint {
		state = IntegrityConstraintViolation
	}

	return Info{
		SQLState:   state,
		DriverCode: strconv.Itoa(int(liteErr.ExtendedCode)),
		Message:    liteErr.Error(),
	}, true
}
