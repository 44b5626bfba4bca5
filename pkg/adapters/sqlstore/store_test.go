package sqlstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/ports"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_Contract(t *testing.T) {
	store := openSQLite(t)
	ports.RunCaseStoreContract(t, store, func(a domain.FrozenAccount) error {
		return store.UpsertFrozenAccount(context.Background(), a)
	})
}

func TestSQLiteStore_ComplaintEvidenceCount(t *testing.T) {
	store := openSQLite(t)
	ctx := context.Background()

	_, err := store.SaveComplaint(ctx, domain.FinalizedComplaint{
		CaseID:       "CC1772359200000001",
		UserPhone:    "9876543210",
		Description:  "Fake profile using my photos.",
		Category:     domain.CategorySocial,
		FraudTypeKey: "facebookFraud",
		Evidence: []domain.SubmittedEvidence{
			{Key: domain.EvidenceDisputedContentURL, Value: "https://facebook.com/fake.profile", Source: "text"},
		},
		Impersonation: true,
	})
	require.NoError(t, err)

	_, err = store.SaveComplaint(ctx, domain.FinalizedComplaint{CaseID: "CC1772359200000001"})
	var dup *domain.DuplicateRecordError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "caseId", dup.Field)

	rec, err := store.LookupCase(ctx, "CC1772359200000001")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Evidence)
	assert.Equal(t, "Registered", rec.Status)
}

func TestSQLiteStore_UpsertFrozenAccount(t *testing.T) {
	store := openSQLite(t)
	ctx := context.Background()
	since := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.UpsertFrozenAccount(ctx, domain.FrozenAccount{AccountNumber: "123456789012", Frozen: true}))
	require.NoError(t, store.UpsertFrozenAccount(ctx, domain.FrozenAccount{
		AccountNumber: "123456789012",
		Frozen:        false,
		FreezeDate:    since,
		Reason:        "released by court order",
	}))

	a, err := store.LookupFrozenAccount(ctx, "123456789012")
	require.NoError(t, err)
	assert.False(t, a.Frozen)
	assert.True(t, a.FreezeDate.Equal(since))
	assert.Equal(t, "released by court order", a.Reason)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "")
	assert.ErrorContains(t, err, `unsupported database driver "mysql"`)
}

func TestRebind(t *testing.T) {
	pg := &Store{driver: DriverPostgres}
	assert.Equal(t, "SELECT a FROM t WHERE b = $1 AND c = $2", pg.rebind("SELECT a FROM t WHERE b = ? AND c = ?"))

	lite := &Store{driver: DriverSQLite}
	assert.Equal(t, "WHERE b = ?", lite.rebind("WHERE b = ?"))
}

func TestDuplicate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want *domain.DuplicateRecordError
	}{
		{"postgres phone", &pq.Error{Code: "23505", Constraint: "users_phone_key"}, &domain.DuplicateRecordError{Field: "phone"}},
		{"postgres other code", &pq.Error{Code: "23502"}, nil},
		{"sqlite identity", errors.New("constraint failed: UNIQUE constraint failed: users.identity_number (2067)"), &domain.DuplicateRecordError{Field: "identityNumber"}},
		{"unrelated", errors.New("disk I/O error"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, duplicate(tt.err))
		})
	}
}
