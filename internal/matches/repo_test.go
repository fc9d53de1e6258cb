package matches

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/nanumlink/nanumlink-backend/pkg/db/models"
	"github.com/nanumlink/nanumlink-backend/pkg/enums"
	"github.com/nanumlink/nanumlink-backend/pkg/pagination"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:matches_%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	ddl := []string{
		`CREATE TABLE organizations (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			name TEXT NOT NULL,
			registration_no TEXT NOT NULL,
			representative TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			postal_code TEXT,
			license_file_url TEXT,
			approval_status TEXT NOT NULL DEFAULT 'pending',
			rejection_reason TEXT,
			reviewed_at DATETIME,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE donations (
			id TEXT PRIMARY KEY,
			business_org_id TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			quantity NUMERIC NOT NULL,
			unit TEXT NOT NULL,
			pickup_deadline DATETIME NOT NULL,
			pickup_location TEXT NOT NULL DEFAULT '',
			photo_urls TEXT,
			status TEXT NOT NULL DEFAULT 'pending_review',
			remaining_quantity NUMERIC,
			completed_at DATETIME,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE donation_matches (
			id TEXT PRIMARY KEY,
			donation_id TEXT NOT NULL,
			beneficiary_org_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'proposed',
			proposed_at DATETIME NOT NULL,
			responded_at DATETIME,
			received_at DATETIME,
			accepted_quantity NUMERIC,
			accepted_unit TEXT,
			response_notes TEXT,
			receipt_issued BOOLEAN NOT NULL DEFAULT 0,
			receipt_issued_at DATETIME,
			receipt_file_url TEXT,
			created_at DATETIME,
			updated_at DATETIME,
			UNIQUE (donation_id, beneficiary_org_id)
		)`,
	}
	for _, stmt := range ddl {
		require.NoError(t, gdb.Exec(stmt).Error)
	}
	return gdb
}

func seedDonation(t *testing.T, gdb *gorm.DB, orgID uuid.UUID) *models.Donation {
	t.Helper()
	donation := &models.Donation{
		ID:             uuid.New(),
		BusinessOrgID:  orgID,
		Name:           "Day-old bread",
		Quantity:       decimal.NewFromInt(40),
		Unit:           "loaf",
		PickupDeadline: time.Now().Add(48 * time.Hour),
		PickupLocation: "Mapo branch",
		Status:         enums.DonationStatusMatched,
	}
	require.NoError(t, gdb.Create(donation).Error)
	return donation
}

func seedMatch(t *testing.T, gdb *gorm.DB, donationID uuid.UUID, status enums.MatchStatus, accepted *decimal.Decimal) *models.DonationMatch {
	t.Helper()
	match := &models.DonationMatch{
		ID:               uuid.New(),
		DonationID:       donationID,
		BeneficiaryOrgID: uuid.New(),
		Status:           status,
		ProposedAt:       time.Now(),
		AcceptedQuantity: accepted,
	}
	require.NoError(t, gdb.Create(match).Error)
	return match
}

func qtyPtr(value string) *decimal.Decimal {
	d := decimal.RequireFromString(value)
	return &d
}

func TestRepoFindByPair(t *testing.T) {
	gdb := openTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	donation := seedDonation(t, gdb, uuid.New())
	match := seedMatch(t, gdb, donation.ID, enums.MatchStatusProposed, nil)

	found, err := repo.FindByPair(ctx, donation.ID, match.BeneficiaryOrgID)
	require.NoError(t, err)
	require.Equal(t, match.ID, found.ID)

	_, err = repo.FindByPair(ctx, donation.ID, uuid.New())
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepoSumAllocatedCountsOnlyLiveStatuses(t *testing.T) {
	gdb := openTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	donation := seedDonation(t, gdb, uuid.New())
	seedMatch(t, gdb, donation.ID, enums.MatchStatusAccepted, qtyPtr("5"))
	seedMatch(t, gdb, donation.ID, enums.MatchStatusQuoteSent, qtyPtr("3.5"))
	seedMatch(t, gdb, donation.ID, enums.MatchStatusReceived, qtyPtr("1"))
	seedMatch(t, gdb, donation.ID, enums.MatchStatusRejected, qtyPtr("100"))
	seedMatch(t, gdb, donation.ID, enums.MatchStatusProposed, nil)

	total, err := repo.SumAllocated(ctx, donation.ID, uuid.Nil)
	require.NoError(t, err)
	require.True(t, total.Equal(decimal.RequireFromString("9.5")), "total = %s", total)
}

func TestRepoSumAllocatedExcludesGivenMatch(t *testing.T) {
	gdb := openTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	donation := seedDonation(t, gdb, uuid.New())
	kept := seedMatch(t, gdb, donation.ID, enums.MatchStatusAccepted, qtyPtr("5"))
	excluded := seedMatch(t, gdb, donation.ID, enums.MatchStatusAccepted, qtyPtr("7"))

	total, err := repo.SumAllocated(ctx, donation.ID, excluded.ID)
	require.NoError(t, err)
	require.True(t, total.Equal(decimal.NewFromInt(5)), "total = %s", total)

	total, err = repo.SumAllocated(ctx, donation.ID, kept.ID)
	require.NoError(t, err)
	require.True(t, total.Equal(decimal.NewFromInt(7)), "total = %s", total)
}

func TestRepoSumAllocatedEmptyPool(t *testing.T) {
	gdb := openTestDB(t)
	repo := NewRepository(gdb)

	total, err := repo.SumAllocated(context.Background(), uuid.New(), uuid.Nil)
	require.NoError(t, err)
	require.True(t, total.IsZero())
}

func TestRepoUpdateWritesSelectedColumns(t *testing.T) {
	gdb := openTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	donation := seedDonation(t, gdb, uuid.New())
	match := seedMatch(t, gdb, donation.ID, enums.MatchStatusProposed, nil)

	now := time.Now()
	require.NoError(t, repo.Update(ctx, match.ID, map[string]any{
		"status":            enums.MatchStatusAccepted,
		"responded_at":      now,
		"accepted_quantity": decimal.NewFromInt(5),
	}))

	found, err := repo.Find(ctx, match.ID)
	require.NoError(t, err)
	require.Equal(t, enums.MatchStatusAccepted, found.Status)
	require.NotNil(t, found.RespondedAt)
	require.NotNil(t, found.AcceptedQuantity)
	require.True(t, found.AcceptedQuantity.Equal(decimal.NewFromInt(5)))
}

func TestRepoListForBeneficiaryPaginates(t *testing.T) {
	gdb := openTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	orgID := uuid.New()
	require.NoError(t, gdb.Create(&models.Organization{
		ID:             orgID,
		Type:           enums.OrgTypeBusiness,
		Name:           "Haneul Bakery",
		RegistrationNo: "123-45-67890",
	}).Error)
	donation := seedDonation(t, gdb, orgID)

	beneficiaryID := uuid.New()
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		match := &models.DonationMatch{
			ID:               uuid.New(),
			DonationID:       donation.ID,
			BeneficiaryOrgID: beneficiaryID,
			Status:           enums.MatchStatusProposed,
			ProposedAt:       base.Add(time.Duration(i) * time.Minute),
			CreatedAt:        base.Add(time.Duration(i) * time.Minute),
		}
		// one live row per pair: point extra rows at distinct donations
		if i > 0 {
			other := seedDonation(t, gdb, orgID)
			match.DonationID = other.ID
		}
		require.NoError(t, gdb.Create(match).Error)
	}

	page, err := repo.ListForBeneficiary(ctx, beneficiaryID, pagination.Params{Limit: 2}, ListFilters{})
	require.NoError(t, err)
	require.Len(t, page.Matches, 2)
	require.NotEmpty(t, page.NextCursor)
	require.Equal(t, "Haneul Bakery", page.Matches[0].BusinessOrgName)

	rest, err := repo.ListForBeneficiary(ctx, beneficiaryID, pagination.Params{Limit: 2, Cursor: page.NextCursor}, ListFilters{})
	require.NoError(t, err)
	require.Len(t, rest.Matches, 1)
	require.Empty(t, rest.NextCursor)

	seen := map[uuid.UUID]bool{}
	for _, row := range append(page.Matches, rest.Matches...) {
		require.False(t, seen[row.ID], "row %s returned twice", row.ID)
		seen[row.ID] = true
	}
}

func TestRepoListDonationsAwaitingCompletion(t *testing.T) {
	gdb := openTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	setStatus := func(id uuid.UUID, status enums.DonationStatus) {
		require.NoError(t, gdb.Model(&models.Donation{}).Where("id = ?", id).Update("status", status).Error)
	}

	stalled := seedDonation(t, gdb, uuid.New())
	setStatus(stalled.ID, enums.DonationStatusPickupScheduled)
	seedMatch(t, gdb, stalled.ID, enums.MatchStatusReceived, qtyPtr("10"))
	seedMatch(t, gdb, stalled.ID, enums.MatchStatusRejected, nil)

	pendingPickup := seedDonation(t, gdb, uuid.New())
	setStatus(pendingPickup.ID, enums.DonationStatusPickupScheduled)
	seedMatch(t, gdb, pendingPickup.ID, enums.MatchStatusReceived, qtyPtr("5"))
	seedMatch(t, gdb, pendingPickup.ID, enums.MatchStatusAccepted, qtyPtr("5"))

	closed := seedDonation(t, gdb, uuid.New())
	setStatus(closed.ID, enums.DonationStatusCompleted)
	seedMatch(t, gdb, closed.ID, enums.MatchStatusReceived, qtyPtr("10"))

	unmatched := seedDonation(t, gdb, uuid.New())
	setStatus(unmatched.ID, enums.DonationStatusPickupScheduled)

	rows, err := repo.ListDonationsAwaitingCompletion(ctx, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, stalled.ID, rows[0].ID)

	limited, err := repo.ListDonationsAwaitingCompletion(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
}
