package backend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Per-operation timeouts for SQL round trips.
const (
	ReadTimeout  = 10 * time.Second
	WriteTimeout = 5 * time.Second
)

// SQLClient implements Client directly against a Postgres database.
type SQLClient struct {
	DB *sqlx.DB
}

// NewSQLClient creates a Client backed by db.
func NewSQLClient(db *sqlx.DB) *SQLClient {
	return &SQLClient{DB: db}
}

// Select runs q and scans every row into dest.
func (c *SQLClient) Select(ctx context.Context, q Query, dest interface{}) error {
	if err := q.Validate(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, ReadTimeout)
	defer cancel()

	query, args := buildSelect(q, 0)
	if err := c.DB.SelectContext(ctx, dest, query, args...); err != nil {
		return fmt.Errorf("failed to select from %s: %w", q.Table, translateError(err))
	}
	return nil
}

// Single runs q and scans exactly one row into dest.
func (c *SQLClient) Single(ctx context.Context, q Query, dest interface{}) error {
	if err := q.Validate(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, ReadTimeout)
	defer cancel()

	// Two rows are enough to tell "one" from "many".
	query, args := buildSelect(q, 2)
	rows, err := c.DB.QueryxContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to select from %s: %w", q.Table, translateError(err))
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return fmt.Errorf("row iteration error: %w", translateError(err))
		}
		return ErrNoRows
	}
	if err := rows.StructScan(dest); err != nil {
		return fmt.Errorf("failed to scan %s row: %w", q.Table, err)
	}
	if rows.Next() {
		return ErrMultipleRows
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("row iteration error: %w", translateError(err))
	}
	return nil
}

// Insert writes rows in a single statement. Every row must carry the same columns.
func (c *SQLClient) Insert(ctx context.Context, table string, rows ...Values) error {
	if len(rows) == 0 {
		return nil
	}
	if err := checkName(table); err != nil {
		return err
	}
	if err := checkValues(rows[0]); err != nil {
		return err
	}
	columns := sortedColumns(rows[0])

	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = pq.QuoteIdentifier(col)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", pq.QuoteIdentifier(table), strings.Join(quoted, ", "))

	args := make([]interface{}, 0, len(rows)*len(columns))
	for i, row := range rows {
		if len(row) != len(columns) {
			return ErrMismatchedRows
		}
		if i > 0 {
			b.WriteString(", ")
		}
		placeholders := make([]string, len(columns))
		for j, col := range columns {
			value, ok := row[col]
			if !ok {
				return ErrMismatchedRows
			}
			args = append(args, value)
			placeholders[j] = fmt.Sprintf("$%d", len(args))
		}
		b.WriteString("(" + strings.Join(placeholders, ", ") + ")")
	}

	ctx, cancel := context.WithTimeout(ctx, WriteTimeout)
	defer cancel()

	if _, err := c.DB.ExecContext(ctx, b.String(), args...); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", table, translateError(err))
	}
	return nil
}

// Update sets values on every row matching filters.
func (c *SQLClient) Update(ctx context.Context, table string, values Values, filters ...Filter) (int64, error) {
	if len(filters) == 0 {
		return 0, ErrMissingFilter
	}
	if err := checkName(table); err != nil {
		return 0, err
	}
	if err := checkValues(values); err != nil {
		return 0, err
	}
	if err := checkFilters(filters); err != nil {
		return 0, err
	}

	columns := sortedColumns(values)
	sets := make([]string, len(columns))
	args := make([]interface{}, 0, len(columns)+len(filters))
	for i, col := range columns {
		args = append(args, values[col])
		sets[i] = fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(col), len(args))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "UPDATE %s SET %s", pq.QuoteIdentifier(table), strings.Join(sets, ", "))
	args = append(args, writeWhere(&b, filters, len(args))...)

	ctx, cancel := context.WithTimeout(ctx, WriteTimeout)
	defer cancel()

	result, err := c.DB.ExecContext(ctx, b.String(), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update %s: %w", table, translateError(err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected, nil
}

// Delete removes every row matching filters.
func (c *SQLClient) Delete(ctx context.Context, table string, filters ...Filter) (int64, error) {
	if len(filters) == 0 {
		return 0, ErrMissingFilter
	}
	if err := checkName(table); err != nil {
		return 0, err
	}
	if err := checkFilters(filters); err != nil {
		return 0, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "DELETE FROM %s", pq.QuoteIdentifier(table))
	args := writeWhere(&b, filters, 0)

	ctx, cancel := context.WithTimeout(ctx, WriteTimeout)
	defer cancel()

	result, err := c.DB.ExecContext(ctx, b.String(), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete from %s: %w", table, translateError(err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected, nil
}

// Ping checks the database connection.
func (c *SQLClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func buildSelect(q Query, limit int) (string, []interface{}) {
	var b strings.Builder
	b.WriteString("SELECT ")
	if len(q.Columns) == 0 {
		b.WriteString("*")
	} else {
		quoted := make([]string, len(q.Columns))
		for i, col := range q.Columns {
			quoted[i] = pq.QuoteIdentifier(col)
		}
		b.WriteString(strings.Join(quoted, ", "))
	}
	b.WriteString(" FROM " + pq.QuoteIdentifier(q.Table))

	args := writeWhere(&b, q.Filters, 0)

	if q.Order != nil {
		direction := "DESC"
		if q.Order.Ascending {
			direction = "ASC"
		}
		fmt.Fprintf(&b, " ORDER BY %s %s", pq.QuoteIdentifier(q.Order.Column), direction)
	}
	if limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", limit)
	}
	return b.String(), args
}

// writeWhere appends the WHERE clause numbering placeholders after offset.
func writeWhere(b *strings.Builder, filters []Filter, offset int) []interface{} {
	args := make([]interface{}, 0, len(filters))
	for i, f := range filters {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		fmt.Fprintf(b, "%s = $%d", pq.QuoteIdentifier(f.Column), offset+i+1)
		args = append(args, f.Value)
	}
	return args
}

func sortedColumns(values Values) []string {
	columns := make([]string, 0, len(values))
	for col := range values {
		columns = append(columns, col)
	}
	sort.Strings(columns)
	return columns
}

// translateError turns driver errors from either lib/pq or pgx into *Error so
// callers see the server's own message.
func translateError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return &Error{
			Code:    string(pqErr.Code),
			Message: pqErr.Message,
			Details: pqErr.Detail,
			Hint:    pqErr.Hint,
		}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &Error{
			Code:    pgErr.Code,
			Message: pgErr.Message,
			Details: pgErr.Detail,
			Hint:    pgErr.Hint,
		}
	}
	return err
}
