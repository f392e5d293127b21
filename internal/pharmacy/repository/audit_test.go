package repository

import (
	"context"
	"testing"
	"time"

	"github.com/meditrack/meditrack-backend/internal/pharmacy/domain"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/store"
	"github.com/meditrack/meditrack-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditRepository_Create(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	mockDB.ExpectQuery("INSERT INTO audit_logs").
		WithArgs(testutil.AnyUUID{}, testUserID, "CREATE", "UsageRecord", testUsageID,
			`{"action":"record_usage","quantity":10}`).
		WillReturnRows(testutil.MockRows("created_at").AddRow(time.Now()))

	entry := &domain.AuditLog{
		UserID:   testUserID,
		Action:   domain.AuditCreate,
		Entity:   domain.EntityUsageRecord,
		EntityID: testUsageID,
		Changes:  domain.Changes{"action": "record_usage", "quantity": 10},
	}

	require.NoError(t, NewAuditRepository(mockDB.DB).Create(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
	mockDB.ExpectationsWereMet(t)
}

func TestAuditRepository_List(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	mockDB.ExpectQuery("SELECT COUNT(*) FROM audit_logs WHERE 1=1 AND entity = $1 AND entity_id = $2").
		WithArgs("UsageRecord", testUsageID).
		WillReturnRows(testutil.MockRows("count").AddRow(1))
	mockDB.ExpectQuery("ORDER BY created_at DESC LIMIT $3 OFFSET $4").
		WithArgs("UsageRecord", testUsageID, 20, 0).
		WillReturnRows(testutil.MockRows("id", "user_id", "action", "entity", "entity_id", "changes", "created_at").
			AddRow("7a6b5c4d-3e2f-4a1b-9c8d-7e6f5a4b3c2d", testUserID, "DELETE", "UsageRecord", testUsageID,
				[]byte(`{"action":"delete_usage","restoredStock":10}`), time.Now()))

	entries, total, err := NewAuditRepository(mockDB.DB).List(context.Background(), store.AuditFilter{
		Entity:   domain.EntityUsageRecord,
		EntityID: testUsageID,
		Limit:    20,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.AuditDelete, entries[0].Action)
	assert.Equal(t, "delete_usage", entries[0].Changes["action"])
	assert.EqualValues(t, 10, entries[0].Changes["restoredStock"])
}
