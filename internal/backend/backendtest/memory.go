// Package backendtest provides an in-memory backend.Client for tests.
package backendtest

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"lab-manager/internal/backend"

	"github.com/google/uuid"
)

// Operation names accepted by Fail.
const (
	OpSelect = "select"
	OpSingle = "single"
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
	OpPing   = "ping"
)

// Fixed-width layout so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Memory is a goroutine-safe in-memory implementation of backend.Client.
// Rows are stored in their JSON form, the same shape the REST backend returns.
type Memory struct {
	mu       sync.Mutex
	tables   map[string][]map[string]interface{}
	failures map[string]error
	seq      int
	Clock    func() time.Time
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		tables:   make(map[string][]map[string]interface{}),
		failures: make(map[string]error),
		Clock:    time.Now,
	}
}

// Fail makes every future op on table return err. A nil err clears it.
// OpPing ignores table.
func (m *Memory) Fail(op, table string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := op + ":" + table
	if err == nil {
		delete(m.failures, key)
		return
	}
	m.failures[key] = err
}

// Count returns the number of rows stored in table.
func (m *Memory) Count(table string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tables[table])
}

func (m *Memory) Select(ctx context.Context, q backend.Query, dest interface{}) error {
	if err := q.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(OpSelect, q.Table); err != nil {
		return err
	}
	return decode(m.query(q), dest)
}

func (m *Memory) Single(ctx context.Context, q backend.Query, dest interface{}) error {
	if err := q.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(OpSingle, q.Table); err != nil {
		return err
	}
	rows := m.query(q)
	switch len(rows) {
	case 0:
		return backend.ErrNoRows
	case 1:
		return decode(rows[0], dest)
	default:
		return backend.ErrMultipleRows
	}
}

func (m *Memory) Insert(ctx context.Context, table string, rows ...backend.Values) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(OpInsert, table); err != nil {
		return err
	}
	for _, row := range rows {
		record := make(map[string]interface{}, len(row)+3)
		for col, value := range row {
			record[col] = normalize(value)
		}
		if _, ok := record["id"]; !ok {
			record["id"] = uuid.NewString()
		}
		now := m.now()
		if _, ok := record["created_at"]; !ok {
			record["created_at"] = now
		}
		if _, ok := record["updated_at"]; !ok {
			record["updated_at"] = now
		}
		m.tables[table] = append(m.tables[table], record)
	}
	return nil
}

func (m *Memory) Update(ctx context.Context, table string, values backend.Values, filters ...backend.Filter) (int64, error) {
	if len(filters) == 0 {
		return 0, backend.ErrMissingFilter
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(OpUpdate, table); err != nil {
		return 0, err
	}
	var affected int64
	for _, record := range m.tables[table] {
		if !matches(record, filters) {
			continue
		}
		for col, value := range values {
			record[col] = normalize(value)
		}
		affected++
	}
	return affected, nil
}

func (m *Memory) Delete(ctx context.Context, table string, filters ...backend.Filter) (int64, error) {
	if len(filters) == 0 {
		return 0, backend.ErrMissingFilter
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(OpDelete, table); err != nil {
		return 0, err
	}
	kept := m.tables[table][:0]
	var affected int64
	for _, record := range m.tables[table] {
		if matches(record, filters) {
			affected++
			continue
		}
		kept = append(kept, record)
	}
	m.tables[table] = kept
	return affected, nil
}

func (m *Memory) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failure(OpPing, "")
}

func (m *Memory) failure(op, table string) error {
	if op == OpPing {
		table = ""
	}
	return m.failures[op+":"+table]
}

// now never returns the same instant twice so created_at ordering is total.
func (m *Memory) now() string {
	m.seq++
	return m.Clock().UTC().Add(time.Duration(m.seq) * time.Microsecond).Format(timeLayout)
}

func (m *Memory) query(q backend.Query) []map[string]interface{} {
	var rows []map[string]interface{}
	for _, record := range m.tables[q.Table] {
		if matches(record, q.Filters) {
			rows = append(rows, record)
		}
	}
	if q.Order != nil {
		col, asc := q.Order.Column, q.Order.Ascending
		sort.SliceStable(rows, func(i, j int) bool {
			a, b := fmt.Sprint(rows[i][col]), fmt.Sprint(rows[j][col])
			if asc {
				return a < b
			}
			return a > b
		})
	}
	if rows == nil {
		rows = []map[string]interface{}{}
	}
	return rows
}

func matches(record map[string]interface{}, filters []backend.Filter) bool {
	for _, f := range filters {
		if fmt.Sprint(record[f.Column]) != fmt.Sprint(normalize(f.Value)) {
			return false
		}
	}
	return true
}

// normalize converts a Go value to its JSON representation.
func normalize(value interface{}) interface{} {
	if t, ok := value.(time.Time); ok {
		return t.UTC().Format(timeLayout)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprint(value)
	}
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Sprint(value)
	}
	return out
}

func decode(value interface{}, dest interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

var _ backend.Client = (*Memory)(nil)
