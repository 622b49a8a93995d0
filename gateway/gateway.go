package gateway

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// TimeLayout is the fixed-width UTC layout used for every timestamp this
// system writes to a text column, so that lexical order is time order.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

var (
	ErrInvalidParameter = errors.New("gateway: invalid parameter")
	ErrRequest          = errors.New("gateway: request failed")
	ErrDecode           = errors.New("gateway: decode failed")
	ErrStatement        = errors.New("gateway: statement rejected")
)

// Dialect names the SQL flavour spoken behind a Gateway.
type Dialect string

const (
	DialectSQLite Dialect = "sqlite"
	DialectMySQL  Dialect = "mysql"
)

// Gateway executes one parameterized statement against the backing store.
// Params substitute the positional ? placeholders in order.
type Gateway interface {
	Execute(ctx context.Context, sql string, params ...any) (*Result, error)
	Dialect() Dialect
}

// Pinger is implemented by gateways that can check their own reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Result ...
type Result struct {
	Rows []Row
	Meta Meta
}

// Meta ...
type Meta struct {
	Changes  int64   `json:"changes"`
	LastID   int64   `json:"last_row_id"`
	Duration float64 `json:"duration"`
}

// First returns the first row or nil.
func (r *Result) First() Row {
	if r == nil || len(r.Rows) == 0 {
		return nil
	}
	return r.Rows[0]
}

// RequestError is returned when the remote store answered with a non-2xx status.
type RequestError struct {
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("gateway: http status %d: %s", e.StatusCode, e.Body)
}

func (e *RequestError) Unwrap() error {
	return ErrRequest
}

// IsFailure reports whether err came out of a Gateway.
func IsFailure(err error) bool {
	return errors.Is(err, ErrInvalidParameter) ||
		errors.Is(err, ErrRequest) ||
		errors.Is(err, ErrDecode) ||
		errors.Is(err, ErrStatement)
}

// Row maps column names to the scalar values returned by the store.
type Row map[string]any

// String returns the column as text; NULL and missing columns are "".
func (r Row) String(col string) string {
	switch v := r[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case sql.RawBytes:
		return string(v)
	case sql.NullString:
		return v.String
	case *string:
		if v == nil {
			return ""
		}
		return *v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		return v.UTC().Format(TimeLayout)
	default:
		return fmt.Sprint(v)
	}
}

var timeLayouts = []string{
	TimeLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// Time parses the column as a timestamp. Zone-less text is read as UTC.
func (r Row) Time(col string) (time.Time, error) {
	switch v := r[col].(type) {
	case time.Time:
		return v, nil
	case *time.Time:
		if v != nil {
			return *v, nil
		}
	case sql.NullTime:
		if v.Valid {
			return v.Time, nil
		}
	}
	s := r.String(col)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("column %s: unrecognised timestamp %q", col, s)
}

// normalizeParam turns Go values into the scalars the wire format accepts.
func normalizeParam(p any) any {
	switch v := p.(type) {
	case time.Time:
		return v.UTC().Format(TimeLayout)
	case *time.Time:
		if v == nil {
			return nil
		}
		return v.UTC().Format(TimeLayout)
	case *string:
		if v == nil {
			return nil
		}
		return *v
	default:
		return p
	}
}
