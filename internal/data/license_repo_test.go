package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caretrack/licensure/internal/domain/model"
	"github.com/caretrack/licensure/internal/testutil"
)

func createTestLicense(t *testing.T, db *sql.DB, personID string) *model.License {
	t.Helper()
	repo := NewLicenseRepo(db)
	lic, err := repo.Create(context.Background(), testutil.NewLicenseRequest().
		WithPersonID(personID).
		WithNumber(fmt.Sprintf("RN-%d", time.Now().UnixNano())).
		Build())
	require.NoError(t, err)
	return lic
}

func TestLicenseRepo_Create_Get_List_Update_Delete(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewLicenseRepo(db)

		exp := testutil.TestTime().AddDate(1, 0, 0)
		req := testutil.NewLicenseRequest().
			WithPersonID("person-create").
			WithJurisdiction("oh").
			WithExpiration(exp).
			Build()

		lic, err := repo.Create(ctx, req)
		require.NoError(t, err)
		require.NotEmpty(t, lic.ID)
		assert.Equal(t, "OH", lic.Jurisdiction, "jurisdiction is normalized on create")
		assert.Equal(t, model.LicenseStatusUnknown, lic.Status)
		require.NotNil(t, lic.Expiration)
		assert.WithinDuration(t, exp, *lic.Expiration, time.Second)
		assert.Nil(t, lic.LastVerifiedAt)
		assert.False(t, lic.Archived)
		assert.NotZero(t, lic.CreatedAt)

		got, err := repo.GetByID(ctx, lic.ID)
		require.NoError(t, err)
		assert.Equal(t, lic.Number, got.Number)

		lst, err := repo.List(ctx, model.LicenseListOptions{
			PersonID: testutil.StringPtr("person-create"),
		})
		require.NoError(t, err)
		require.Len(t, lst, 1)
		assert.Equal(t, lic.ID, lst[0].ID)

		updated, err := repo.Update(ctx, lic.ID, model.UpdateLicenseRequest{
			FirstName: testutil.StringPtr("Janet"),
			Archived:  testutil.BoolPtr(true),
		})
		require.NoError(t, err)
		assert.Equal(t, "Janet", updated.FirstName)
		assert.True(t, updated.Archived)
		assert.Equal(t, lic.LastName, updated.LastName, "untouched fields survive partial update")

		deleted, err := repo.Delete(ctx, lic.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		_, err = repo.GetByID(ctx, lic.ID)
		assert.ErrorIs(t, err, ErrLicenseNotFound)
	})
}

func TestLicenseRepo_Create_Duplicate(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewLicenseRepo(db)

		req := testutil.NewLicenseRequest().WithNumber("RN-DUP-1").Build()
		_, err := repo.Create(ctx, req)
		require.NoError(t, err)

		_, err = repo.Create(ctx, req)
		assert.ErrorIs(t, err, ErrLicenseExists)

		// Same number under another person is a distinct license.
		other := testutil.NewLicenseRequest().
			WithPersonID("person-2").
			WithNumber("RN-DUP-1").
			Build()
		_, err = repo.Create(ctx, other)
		assert.NoError(t, err)
	})
}

func TestLicenseRepo_FindDueForVerification(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewLicenseRepo(db)
		cutoff := testutil.TestTime()

		never := createTestLicense(t, db, "due-never")
		stale := createTestLicense(t, db, "due-stale")
		fresh := createTestLicense(t, db, "due-fresh")
		archived := createTestLicense(t, db, "due-archived")

		setVerifiedAt := func(id string, at time.Time) {
			_, err := db.ExecContext(ctx,
				"UPDATE licenses SET last_verified_at = $1 WHERE id = $2", at, id)
			require.NoError(t, err)
		}
		setVerifiedAt(stale.ID, cutoff.Add(-48*time.Hour))
		setVerifiedAt(fresh.ID, cutoff.Add(-time.Hour))
		setVerifiedAt(archived.ID, cutoff.Add(-96*time.Hour))
		_, err := repo.Update(ctx, archived.ID, model.UpdateLicenseRequest{
			Archived: testutil.BoolPtr(true),
		})
		require.NoError(t, err)

		due, err := repo.FindDueForVerification(ctx, cutoff.Add(-24*time.Hour), 10)
		require.NoError(t, err)
		require.Len(t, due, 2)
		assert.Equal(t, never.ID, due[0].ID, "never-verified licenses come first")
		assert.Equal(t, stale.ID, due[1].ID)

		limited, err := repo.FindDueForVerification(ctx, cutoff.Add(-24*time.Hour), 1)
		require.NoError(t, err)
		require.Len(t, limited, 1)
		assert.Equal(t, never.ID, limited[0].ID)

		_ = fresh
	})
}

func TestLicenseRepo_ApplyProjection(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewLicenseRepo(db)
		now := testutil.TestTime()

		lic := createTestLicense(t, db, "proj-person")
		exp := now.AddDate(2, 0, 0)
		payload := json.RawMessage(`{"board":"OH","status":"ACTIVE"}`)

		err := repo.ApplyProjection(ctx, lic.ID, model.LicenseProjection{
			Status:         model.LicenseStatusActive,
			Expiration:     &exp,
			SyncedData:     payload,
			SyncedAt:       now,
			LastVerifiedAt: now,
		})
		require.NoError(t, err)

		got, err := repo.GetByID(ctx, lic.ID)
		require.NoError(t, err)
		assert.Equal(t, model.LicenseStatusActive, got.Status)
		require.NotNil(t, got.Expiration)
		assert.WithinDuration(t, exp, *got.Expiration, time.Second)
		require.NotNil(t, got.LastVerifiedAt)
		assert.JSONEq(t, string(payload), string(got.SyncedData))

		// A projection without an expiration leaves the stored one alone,
		// and an empty payload keeps the previous synced snapshot.
		later := now.Add(time.Hour)
		err = repo.ApplyProjection(ctx, lic.ID, model.LicenseProjection{
			Status:         model.LicenseStatusNeedsManual,
			LastVerifiedAt: later,
		})
		require.NoError(t, err)

		got, err = repo.GetByID(ctx, lic.ID)
		require.NoError(t, err)
		assert.Equal(t, model.LicenseStatusNeedsManual, got.Status)
		require.NotNil(t, got.Expiration)
		assert.WithinDuration(t, exp, *got.Expiration, time.Second)
		assert.JSONEq(t, string(payload), string(got.SyncedData))
		require.NotNil(t, got.LastVerifiedAt)
		assert.WithinDuration(t, later, *got.LastVerifiedAt, time.Second)

		err = repo.ApplyProjection(ctx, "00000000-0000-0000-0000-000000000000", model.LicenseProjection{
			Status:         model.LicenseStatusActive,
			LastVerifiedAt: now,
		})
		assert.ErrorIs(t, err, ErrLicenseNotFound)
	})
}
