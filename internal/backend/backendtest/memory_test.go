package backendtest

import (
	"context"
	"errors"
	"testing"

	"lab-manager/internal/backend"
	"lab-manager/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_InsertSelectOrdered(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Insert(ctx, backend.TableComputers,
		backend.Values{"id": uuid.New(), "name": "PC02", "status": model.StatusOperational},
		backend.Values{"id": uuid.New(), "name": "PC01", "status": model.StatusNonOperational},
	))

	var computers []model.Computer
	err := m.Select(ctx, backend.From(backend.TableComputers).OrderBy("name", true), &computers)

	require.NoError(t, err)
	require.Len(t, computers, 2)
	assert.Equal(t, "PC01", computers[0].Name)
	assert.Equal(t, model.StatusNonOperational, computers[0].Status)
	assert.False(t, computers[0].CreatedAt.IsZero())
}

func TestMemory_CreatedAtIsStrictlyIncreasing(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, m.Insert(ctx, backend.TableIncidents, backend.Values{"description": string(rune('a' + i))}))
	}

	var incidents []model.Incident
	require.NoError(t, m.Select(ctx, backend.From(backend.TableIncidents).OrderBy("created_at", false), &incidents))

	require.Len(t, incidents, 3)
	assert.Equal(t, "c", incidents[0].Description)
	assert.True(t, incidents[0].CreatedAt.After(incidents[1].CreatedAt))
}

func TestMemory_FailureInjection(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	boom := errors.New("boom")

	m.Fail(OpInsert, backend.TableIncidents, boom)
	assert.ErrorIs(t, m.Insert(ctx, backend.TableIncidents, backend.Values{}), boom)
	assert.NoError(t, m.Insert(ctx, backend.TableComputers, backend.Values{}))

	m.Fail(OpInsert, backend.TableIncidents, nil)
	assert.NoError(t, m.Insert(ctx, backend.TableIncidents, backend.Values{}))
}

func TestMemory_UpdateDelete(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, m.Insert(ctx, backend.TableComputers, backend.Values{"id": id, "name": "PC01"}))

	n, err := m.Update(ctx, backend.TableComputers, backend.Values{"name": "PC09"}, backend.Eq("id", id))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var c model.Computer
	require.NoError(t, m.Single(ctx, backend.From(backend.TableComputers).Where("id", id), &c))
	assert.Equal(t, "PC09", c.Name)

	n, err = m.Delete(ctx, backend.TableComputers, backend.Eq("id", id))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.ErrorIs(t, m.Single(ctx, backend.From(backend.TableComputers).Where("id", id), &c), backend.ErrNoRows)
}
