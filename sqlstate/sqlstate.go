package sqlstate

import (
	"context"
	"database/sql/driver"
	"errors"
	"strconv"
	"sync"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Well known SQLSTATE values.
const (
	// Success is the "no error" sentinel.
	Success = "00000"

	// GeneralError is used when the driver reports no SQLSTATE.
	GeneralError = "HY000"

	// OperationCanceled is reported for canceled contexts.
	OperationCanceled = "HY008"

	// TimeoutExpired is reported for expired context deadlines.
	TimeoutExpired = "HYT00"

	// CommunicationLinkFailure is reported for broken connections.
	CommunicationLinkFailure = "08S01"

	// IntegrityConstraintViolation is the class 23 code used by drivers
	// that do not distinguish constraint kinds.
	IntegrityConstraintViolation = "23000"
)

// Info is the error status attached to a statement or connection.
// The zero value means no status has been recorded yet.
type Info struct {
	// SQLState is the five character SQLSTATE code.
	SQLState string

	// DriverCode is the driver specific error number, if any.
	DriverCode string

	// Message is the driver's error text.
	Message string
}

// Present reports whether a status has been recorded.
func (i Info) Present() bool {
	return i.SQLState != ""
}

// IsError reports whether a recorded status differs from Success.
// An absent status is not an error.
func (i Info) IsError() bool {
	return i.Present() && i.SQLState != Success
}

// Classifier extracts Info from err. It returns false when err is not
// one of the errors it understands.
type Classifier func(err error) (Info, bool)

var (
	classifiersMu sync.RWMutex
	classifiers   = []Classifier{
		classifyPQ,
		classifyPgconn,
		classifyMySQL,
	}
)

// Register adds a classifier consulted before the generic fallbacks.
// Classifiers run in registration order.
func Register(c Classifier) {
	classifiersMu.Lock()
	defer classifiersMu.Unlock()
	classifiers = append(classifiers, c)
}

// Classify returns the status for err. A nil err yields Success.
func Classify(err error) Info {
	if err == nil {
		return Info{SQLState: Success}
	}

	classifiersMu.RLock()
	list := classifiers
	classifiersMu.RUnlock()

	for _, c := range list {
		if info, ok := c(err); ok {
			return info
		}
	}

	var stater interface{ SQLState() string }
	if errors.As(err, &stater) && len(stater.SQLState()) == 5 {
		return Info{SQLState: stater.SQLState(), Message: err.Error()}
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Info{SQLState: TimeoutExpired, Message: err.Error()}
	case errors.Is(err, context.Canceled):
		return Info{SQLState: OperationCanceled, Message: err.Error()}
	case errors.Is(err, driver.ErrBadConn):
		return Info{SQLState: CommunicationLinkFailure, Message: err.Error()}
	}

	return Info{SQLState: GeneralError, Message: err.Error()}
}

func classifyPQ(err error) (Info, bool) {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return Info{}, false
	}
	return Info{
		SQLState:   string(pqErr.Code),
		DriverCode: string(pqErr.Code),
		Message:    pqErr.Message,
	}, true
}

func classifyPgconn(err error) (Info, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return Info{}, false
	}
	return Info{
		SQLState:   pgErr.Code,
		DriverCode: pgErr.Code,
		Message:    pgErr.Message,
	}, true
}

func classifyMySQL(err error) (Info, bool) {
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		return Info{}, false
	}

	state := GeneralError
	if myErr.SQLState != [5]byte{} {
		state = string(myErr.SQLState[:])
	}

	return Info{
		SQLState:   state,
		DriverCode: strconv.Itoa(int(myErr.Number)),
		Message:    myErr.Message,
	}, true
}
