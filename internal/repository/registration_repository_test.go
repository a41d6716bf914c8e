package repository_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/fest-registration/internal/database/dbtest"
	"github.com/iliyamo/fest-registration/internal/model"
	"github.com/iliyamo/fest-registration/internal/repository"
)

func TestTierPassFetch(t *testing.T) {
	db := dbtest.Open(t)
	repo := repository.NewTierPassRepo(db)
	ctx := context.Background()
	dbtest.SeedTierPass(t, db, dbtest.Group{
		GroupID: "GRP-100", Total: 1875,
		Members: []dbtest.Member{
			{UserID: "USER-0100-0001", Name: "Asha", Email: "asha@fest.in", Tier: "tier1"},
			{UserID: "USER-0100-0002", Name: "Ravi", Email: "Ravi@Fest.in", Tier: "tier2"},
			{UserID: "USER-0100-0003", Name: "Kiran", Email: "kiran@fest.in", Tier: "tier3"},
		},
	})
	dbtest.SeedTierPass(t, db, dbtest.Group{
		GroupID: "GRP-101", Total: 250, CreatedAt: dbtest.BaseTime.Add(time.Hour),
		Members: []dbtest.Member{{UserID: "USER-0101-0001", Name: "Ravi", Email: "ravi@fest.in", PassType: "cultural"}},
	})

	g, err := repo.FetchGroup(ctx, "GRP-100")
	require.NoError(t, err)
	assert.Equal(t, "asha@fest.in", g.ContactEmail)
	require.Len(t, g.Members, 3)
	assert.Equal(t, "USER-0100-0002", g.Members[1].UserID)
	assert.Equal(t, "tier3", g.Members[2].Tier)
	assert.Empty(t, g.Members[0].PassType)
	assert.Nil(t, g.ReviewedAt)

	_, err = repo.FetchGroup(ctx, "GRP-999")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	groups, err := repo.FetchByEmail(ctx, "ravi@fest.in")
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "GRP-101", groups[0].GroupID, "newest first")
	assert.Len(t, groups[1].Members, 3, "full member list is returned")

	none, err := repo.FetchByEmail(ctx, "nobody@fest.in")
	require.NoError(t, err)
	assert.Empty(t, none)

	g, err = repo.FetchByUserID(ctx, "USER-0101-0001")
	require.NoError(t, err)
	assert.Equal(t, "GRP-101", g.GroupID)
	_, err = repo.FetchByUserID(ctx, "USER-0000-0000")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	all, err := repo.FetchAll(ctx, repository.GroupFilter{Status: "approved"})
	require.NoError(t, err)
	assert.Empty(t, all)
	all, err = repo.FetchAll(ctx, repository.GroupFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestGuardedTransition(t *testing.T) {
	db := dbtest.Open(t)
	repo := repository.NewTierPassRepo(db)
	ctx := context.Background()
	dbtest.SeedTierPass(t, db, dbtest.Group{
		GroupID: "GRP-200", Total: 375,
		Members: []dbtest.Member{{UserID: "USER-0200-0001", Name: "Asha", Email: "asha@fest.in", Tier: "tier1"}},
	})
	at := time.Date(2026, 2, 1, 10, 30, 0, 0, time.UTC)

	err := repo.GuardedTransition(ctx, "GRP-200", model.StatusPending, model.StatusRejected,
		model.ReviewMeta{ReviewedAt: at, ReviewedBy: "admin1", RejectionReason: "duplicate payment"})
	require.NoError(t, err)

	g, err := repo.FetchGroup(ctx, "GRP-200")
	require.NoError(t, err)
	assert.Equal(t, "rejected", g.Status)
	require.NotNil(t, g.ReviewedAt)
	assert.True(t, g.ReviewedAt.Equal(at))
	assert.Equal(t, "admin1", *g.ReviewedBy)
	assert.Equal(t, "duplicate payment", *g.RejectionReason)

	err = repo.GuardedTransition(ctx, "GRP-200", model.StatusPending, model.StatusApproved,
		model.ReviewMeta{ReviewedAt: at, ReviewedBy: "admin2"})
	assert.ErrorIs(t, err, repository.ErrPreconditionFailed)

	err = repo.GuardedTransition(ctx, "GRP-404", model.StatusPending, model.StatusApproved,
		model.ReviewMeta{ReviewedAt: at, ReviewedBy: "admin2"})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	g, err = repo.FetchGroup(ctx, "GRP-200")
	require.NoError(t, err)
	assert.Equal(t, "admin1", *g.ReviewedBy)
}

func TestCreateTxRoundTrip(t *testing.T) {
	db := dbtest.Open(t)
	repo := repository.NewTierPassRepo(db)
	ctx := context.Background()
	rec := repository.GroupRecord{
		GroupID: "GRP-ABC123", ContactName: "Asha", ContactEmail: "asha@fest.in", ContactPhone: "9876543210",
		TotalAmount: 1025, PaymentTxnID: "UPI-1", CreatedAt: dbtest.BaseTime,
		Members: []repository.MemberRecord{
			{UserID: "USER-AAAA-0001", Name: "Asha", Email: "asha@fest.in", Phone: "9876543210", College: "NIT", Tier: "tier1"},
			{UserID: "USER-AAAA-0002", Name: "Ravi", Email: "ravi@fest.in", Phone: "9876543211", College: "NIT", PassType: "proshow", PassTier: "standard"},
		},
	}

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, repo.CreateTx(ctx, tx, rec))
	require.NoError(t, tx.Commit())

	g, err := repo.FetchGroup(ctx, "GRP-ABC123")
	require.NoError(t, err)
	assert.Equal(t, "pending", g.Status)
	assert.Nil(t, g.ScreenshotPath)
	require.Len(t, g.Members, 2)
	assert.Equal(t, "standard", g.Members[1].PassTier)

	ok, err := repo.GroupExists(ctx, "GRP-ABC123")
	require.NoError(t, err)
	assert.True(t, ok)

	tx, err = db.BeginTx(ctx, nil)
	require.NoError(t, err)
	err = repo.CreateTx(ctx, tx, rec)
	assert.ErrorIs(t, err, repository.ErrConflict)
	require.NoError(t, tx.Rollback())
}

func TestCreateTxGroupIDUniqueAcrossSubsystems(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	robo := dbtest.SeedEvent(t, db, "Robo Wars", 200, 4, true)
	create := func(w interface {
		CreateTx(context.Context, *sql.Tx, repository.GroupRecord) error
	}, rec repository.GroupRecord) error {
		tx, err := db.BeginTx(ctx, nil)
		require.NoError(t, err)
		if err := w.CreateTx(ctx, tx, rec); err != nil {
			require.NoError(t, tx.Rollback())
			return err
		}
		return tx.Commit()
	}
	rec := func(userID string) repository.GroupRecord {
		return repository.GroupRecord{
			GroupID: "GRP-D00D11", EventID: uint64(robo), ContactName: "Asha", ContactEmail: "asha@fest.in",
			ContactPhone: "9876543210", TotalAmount: 200, PaymentTxnID: "UPI-2", CreatedAt: dbtest.BaseTime,
			Members: []repository.MemberRecord{
				{UserID: userID, Name: "Asha", Email: "asha@fest.in", Phone: "9876543210", College: "NIT", Tier: "tier1"},
			},
		}
	}

	require.NoError(t, create(repository.NewTierPassRepo(db), rec("USER-D00D-0001")))
	err := create(repository.NewEventRegRepo(db), rec("USER-D00D-0002"))
	require.ErrorIs(t, err, repository.ErrConflict)

	ok, err := repository.NewEventRegRepo(db).GroupExists(ctx, "GRP-D00D11")
	require.NoError(t, err)
	assert.False(t, ok, "rolled back insert must leave no event group")
}

func TestEventRepo(t *testing.T) {
	db := dbtest.Open(t)
	repo := repository.NewEventRegRepo(db)
	ctx := context.Background()
	robo := dbtest.SeedEvent(t, db, "Robo Wars", 200, 4, true)
	quiz := dbtest.SeedEvent(t, db, "Quiz", 50, 2, true)
	dbtest.SeedEvent(t, db, "Archived", 10, 1, false)
	dbtest.SeedEventGroup(t, db, dbtest.Group{
		GroupID: "GRP-E1", EventID: robo, Total: 400,
		Members: []dbtest.Member{
			{UserID: "USER-E100-0001", Name: "Meera", Email: "meera@fest.in"},
			{UserID: "USER-E100-0002", Name: "Nikhil", Email: "nikhil@fest.in"},
		},
	})
	dbtest.SeedEventGroup(t, db, dbtest.Group{
		GroupID: "GRP-E2", EventID: quiz, Total: 50, Status: "approved",
		Members: []dbtest.Member{{UserID: "USER-E200-0001", Name: "Bala", Email: "bala@fest.in"}},
	})

	events, err := repo.ListEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Quiz", events[0].Name)
	assert.True(t, events[0].IsActive)

	ev, err := repo.GetEvent(ctx, uint64(robo))
	require.NoError(t, err)
	assert.Equal(t, int64(200), ev.PriceAmount)
	assert.Equal(t, 4, ev.MaxTeamSize)
	_, err = repo.GetEvent(ctx, 9999)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	g, err := repo.FetchGroup(ctx, "GRP-E1")
	require.NoError(t, err)
	assert.Equal(t, "Robo Wars", g.EventName)
	assert.Equal(t, int64(200), g.EventPrice)
	assert.Len(t, g.Members, 2)

	byEvent, err := repo.FetchAll(ctx, repository.GroupFilter{EventID: uint64(quiz)})
	require.NoError(t, err)
	require.Len(t, byEvent, 1)
	assert.Equal(t, "GRP-E2", byEvent[0].GroupID)

	byEmail, err := repo.FetchByEmail(ctx, "nikhil@fest.in")
	require.NoError(t, err)
	require.Len(t, byEmail, 1)
	assert.Equal(t, "GRP-E1", byEmail[0].GroupID)
}
