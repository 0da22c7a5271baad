// Package backend is the thin table client the application uses to reach its
// hosted data store. It only knows tables, equality filters and ordering.
package backend

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// Table names consumed by the application.
const (
	TableComputers  = "computers"
	TableComponents = "components"
	TableIncidents  = "incidents"
)

var (
	ErrNoRows         = errors.New("no rows in result set")
	ErrMultipleRows   = errors.New("multiple rows returned where one was expected")
	ErrMissingFilter  = errors.New("update and delete require at least one filter")
	ErrInvalidName    = errors.New("invalid table or column name")
	ErrMismatchedRows = errors.New("inserted rows must share the same columns")
)

var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Filter is an equality predicate on a column.
type Filter struct {
	Column string
	Value  interface{}
}

// Eq builds an equality filter.
func Eq(column string, value interface{}) Filter {
	return Filter{Column: column, Value: value}
}

// Order sorts a selection by one column.
type Order struct {
	Column    string
	Ascending bool
}

// Values maps column names to values for inserts and updates.
type Values map[string]interface{}

// Query describes a selection against one table. An empty Columns list
// selects every column.
type Query struct {
	Table   string
	Columns []string
	Filters []Filter
	Order   *Order
}

// From starts a query on table.
func From(table string) Query {
	return Query{Table: table}
}

// Select sets the projected columns.
func (q Query) Select(columns ...string) Query {
	q.Columns = columns
	return q
}

// Where adds an equality filter.
func (q Query) Where(column string, value interface{}) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Eq(column, value))
	return q
}

// OrderBy sets the sort column and direction.
func (q Query) OrderBy(column string, ascending bool) Query {
	q.Order = &Order{Column: column, Ascending: ascending}
	return q
}

// Validate checks every identifier in the query.
func (q Query) Validate() error {
	if err := checkName(q.Table); err != nil {
		return err
	}
	for _, c := range q.Columns {
		if err := checkName(c); err != nil {
			return err
		}
	}
	if err := checkFilters(q.Filters); err != nil {
		return err
	}
	if q.Order != nil {
		return checkName(q.Order.Column)
	}
	return nil
}

// Client is the generic table interface. Every method returns an error for
// query failures instead of panicking.
type Client interface {
	// Select decodes all matching rows into dest, a pointer to a slice.
	Select(ctx context.Context, q Query, dest interface{}) error
	// Single decodes exactly one matching row into dest. It returns ErrNoRows
	// or ErrMultipleRows when the match count is not one.
	Single(ctx context.Context, q Query, dest interface{}) error
	Insert(ctx context.Context, table string, rows ...Values) error
	Update(ctx context.Context, table string, values Values, filters ...Filter) (int64, error)
	Delete(ctx context.Context, table string, filters ...Filter) (int64, error)
	Ping(ctx context.Context) error
}

// Error is a failure reported by the backend itself.
type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.Status)
	}
	return e.Message
}

func checkName(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func checkFilters(filters []Filter) error {
	for _, f := range filters {
		if err := checkName(f.Column); err != nil {
			return err
		}
	}
	return nil
}

func checkValues(values Values) error {
	for column := range values {
		if err := checkName(column); err != nil {
			return err
		}
	}
	return nil
}
