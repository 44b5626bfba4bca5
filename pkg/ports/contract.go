package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore implementation
// adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	key := "contract-" + time.Now().Format("20060102150405.000000")
	now := time.Now().UTC().Truncate(time.Millisecond)

	t.Run("Save and Load", func(t *testing.T) {
		s := domain.NewSession(key, domain.FlowRegistration, "postalCode", 4, now)
		s.Data.Set("registration", "name", "Asha")
		s.Data.Set("registration", "address", map[string]any{"district": "Khordha"})
		s.History.Push(domain.Snapshot{State: domain.FlowEntry, Step: "menu", Data: domain.Data{}})
		s.Version = 7

		require.NoError(t, store.Save(ctx, key, s), "Save should not return error")

		loaded, err := store.Load(ctx, key)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, s.State, loaded.State)
		assert.Equal(t, s.Step, loaded.Step)
		assert.Equal(t, uint64(7), loaded.Version)
		assert.Equal(t, "Asha", loaded.Data.String("registration", "name"))
		assert.Equal(t, "Khordha", loaded.Data.Map("registration", "address")["district"])
		require.NotNil(t, loaded.History)
		assert.Equal(t, 1, loaded.History.Len())
		assert.Equal(t, 4, loaded.History.Cap())
		assert.True(t, s.LastActivity.Equal(loaded.LastActivity))
	})

	t.Run("Load returns a copy", func(t *testing.T) {
		loaded, err := store.Load(ctx, key)
		require.NoError(t, err)
		loaded.Data.Set("registration", "name", "mutated")

		again, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "Asha", again.Data.String("registration", "name"))
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+key)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, key, domain.NewSession(key, domain.FlowEntry, "menu", 4, now)))

		require.NoError(t, store.Delete(ctx, key), "Delete should not return error")

		_, err := store.Load(ctx, key)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")

		assert.NoError(t, store.Delete(ctx, key), "Delete of a missing key is a no-op")
	})

	t.Run("List", func(t *testing.T) {
		id1 := key + "-1"
		id2 := key + "-2"
		require.NoError(t, store.Save(ctx, id1, domain.NewSession(id1, domain.FlowEntry, "menu", 4, now)))
		require.NoError(t, store.Save(ctx, id2, domain.NewSession(id2, domain.FlowEntry, "menu", 4, now)))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		keys, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, keys, id1)
		assert.Contains(t, keys, id2)
	})
}

// RunCaseStoreContract verifies a CaseStore implementation. seed inserts a
// freeze record, which the interface itself never writes.
func RunCaseStoreContract(t *testing.T, store CaseStore, seed func(domain.FrozenAccount) error) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("Registration", func(t *testing.T) {
		id, err := store.SaveRegistration(ctx, domain.FinalizedUser{
			Name:           "Asha Devi",
			Phone:          "9876543210",
			IdentityNumber: "234567890123",
			District:       "Khordha",
			CreatedAt:      now,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, id)

		u, err := store.FindUserByPhone(ctx, "9876543210")
		require.NoError(t, err)
		assert.Equal(t, id, u.ID)
		assert.Equal(t, "Asha Devi", u.Name)
		assert.Equal(t, "Khordha", u.District)

		_, err = store.FindUserByPhone(ctx, "9000000000")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Duplicate registration", func(t *testing.T) {
		var dup *domain.DuplicateRecordError

		_, err := store.SaveRegistration(ctx, domain.FinalizedUser{Name: "Other", Phone: "9123456789", IdentityNumber: "234567890123"})
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, "identityNumber", dup.Field)

		_, err = store.SaveRegistration(ctx, domain.FinalizedUser{Name: "Other", Phone: "9876543210", IdentityNumber: "345678901234"})
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, "phone", dup.Field)
	})

	t.Run("Complaint", func(t *testing.T) {
		caseID, err := store.SaveComplaint(ctx, domain.FinalizedComplaint{
			CaseID:         "CC1772359200000123",
			UserPhone:      "9876543210",
			IdentityNumber: "234567890123",
			Description:    "Money was taken from my account.",
			Category:       domain.CategoryFinancial,
			FraudTypeKey:   "upiFraud",
			Evidence: []domain.SubmittedEvidence{
				{Key: domain.EvidenceIdentityDocument, URL: "https://evidence.example/1", Source: "upload"},
				{Key: domain.EvidenceTransactionReference, URL: "https://evidence.example/2", Source: "upload"},
			},
			CreatedAt: now,
		})
		require.NoError(t, err)
		assert.Equal(t, "CC1772359200000123", caseID)

		rec, err := store.LookupCase(ctx, "cc1772359200000123")
		require.NoError(t, err)
		assert.Equal(t, "CC1772359200000123", rec.CaseID)
		assert.Equal(t, domain.CategoryFinancial, rec.Category)
		assert.Equal(t, "upiFraud", rec.FraudTypeKey)
		assert.Equal(t, 2, rec.Evidence)
		assert.NotEmpty(t, rec.Status)
		assert.True(t, rec.CreatedAt.Equal(now))

		_, err = store.LookupCase(ctx, "CC0000000000000000")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Frozen account", func(t *testing.T) {
		require.NoError(t, seed(domain.FrozenAccount{
			AccountNumber: "123456789012",
			BankName:      "State Bank of India",
			HolderPhone:   "9876543210",
			Frozen:        true,
			FreezeState:   "Odisha Police",
		}))

		a, err := store.LookupFrozenAccount(ctx, "123456789012")
		require.NoError(t, err)
		assert.True(t, a.Frozen)
		assert.Equal(t, "State Bank of India", a.BankName)

		a, err = store.LookupFrozenAccount(ctx, "9876543210")
		require.NoError(t, err)
		assert.Equal(t, "123456789012", a.AccountNumber)

		_, err = store.LookupFrozenAccount(ctx, "999999999999")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
