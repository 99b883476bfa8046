package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	domainCampaign "github.com/AzielCF/az-blast/domains/campaign"
	pkgError "github.com/AzielCF/az-blast/pkg/error"
)

func newTestRepo(t *testing.T) *CampaignGormRepository {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	repo := NewCampaignGormRepository(db)
	require.NoError(t, repo.Init(context.Background()))
	return repo
}

func seedCampaign(t *testing.T, repo *CampaignGormRepository, status domainCampaign.Status) domainCampaign.Campaign {
	t.Helper()

	c := domainCampaign.Campaign{
		ID:              uuid.NewString(),
		Name:            "spring promo",
		Status:          status,
		Message:         "Hi {name}",
		MessageBlocks:   []string{"Block A", "Block B"},
		MessageInterval: 5,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}
	require.NoError(t, repo.CreateCampaign(context.Background(), c))
	return c
}

func TestCampaignRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created := seedCampaign(t, repo, domainCampaign.StatusDraft)

	got, err := repo.GetCampaign(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, domainCampaign.StatusDraft, got.Status)
	assert.Equal(t, []string{"Block A", "Block B"}, got.MessageBlocks)
	assert.Equal(t, 5, got.MessageInterval)
}

func TestGetCampaignNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetCampaign(context.Background(), "missing")
	var notFound pkgError.NotFoundError
	require.True(t, errors.As(err, &notFound))
}

func TestCountersAndStatus(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	c := seedCampaign(t, repo, domainCampaign.StatusActive)

	require.NoError(t, repo.IncrementSentCount(ctx, c.ID))
	require.NoError(t, repo.IncrementSentCount(ctx, c.ID))
	require.NoError(t, repo.IncrementFailedCount(ctx, c.ID))
	require.NoError(t, repo.UpdateCampaignStatus(ctx, c.ID, domainCampaign.StatusCompleted))

	got, err := repo.GetCampaign(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.SentCount)
	assert.Equal(t, 1, got.FailedCount)
	assert.Equal(t, domainCampaign.StatusCompleted, got.Status)

	require.NoError(t, repo.ResetCounters(ctx, c.ID))
	got, err = repo.GetCampaign(ctx, c.ID)
	require.NoError(t, err)
	assert.Zero(t, got.SentCount)
	assert.Zero(t, got.FailedCount)
}

func TestContactsKeepStoredOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	c := seedCampaign(t, repo, domainCampaign.StatusDraft)

	contacts := make([]domainCampaign.Contact, 10)
	for i := range contacts {
		contacts[i] = domainCampaign.Contact{
			ID:         uuid.NewString(),
			CampaignID: c.ID,
			Position:   i,
			Name:       fmt.Sprintf("contact-%d", i),
			Phone:      fmt.Sprintf("5511%08d", i),
			Status:     domainCampaign.ContactPending,
			CreatedAt:  time.Now().UTC(),
		}
	}
	require.NoError(t, repo.CreateContacts(ctx, contacts))

	got, err := repo.ListContactsByCampaign(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got, 10)
	for i, contact := range got {
		assert.Equal(t, fmt.Sprintf("contact-%d", i), contact.Name)
	}
}

func TestContactTerminalTransitions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	c := seedCampaign(t, repo, domainCampaign.StatusActive)
	contact := domainCampaign.Contact{
		ID:           uuid.NewString(),
		CampaignID:   c.ID,
		Name:         "Ana",
		Phone:        "5511999999999",
		CustomFields: map[string]any{"plano": "Gold"},
		Status:       domainCampaign.ContactPending,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, repo.CreateContacts(ctx, []domainCampaign.Contact{contact}))

	sentAt := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.MarkContactSent(ctx, contact.ID, sentAt))

	got, err := repo.ListContactsByCampaign(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domainCampaign.ContactSent, got[0].Status)
	require.NotNil(t, got[0].SentAt)
	assert.Equal(t, "Gold", got[0].CustomFields["plano"])

	pending, err := repo.CountContactsByStatus(ctx, c.ID, domainCampaign.ContactPending)
	require.NoError(t, err)
	assert.Zero(t, pending)

	require.NoError(t, repo.MarkContactFailed(ctx, contact.ID, "number does not exist"))
	got, err = repo.ListContactsByCampaign(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domainCampaign.ContactFailed, got[0].Status)
	assert.Equal(t, "number does not exist", got[0].ErrorMessage)
}

func TestDeleteCampaignCascades(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	c := seedCampaign(t, repo, domainCampaign.StatusDraft)
	require.NoError(t, repo.CreateContacts(ctx, []domainCampaign.Contact{{
		ID:         uuid.NewString(),
		CampaignID: c.ID,
		Name:       "Ana",
		Phone:      "5511999999999",
		Status:     domainCampaign.ContactPending,
	}}))
	require.NoError(t, repo.CreateActivityLog(ctx, domainCampaign.ActivityLog{
		ID:         uuid.NewString(),
		CampaignID: c.ID,
		Type:       domainCampaign.LogCampaignStarted,
		Message:    "started",
		CreatedAt:  time.Now().UTC(),
	}))

	require.NoError(t, repo.DeleteCampaign(ctx, c.ID))

	_, err := repo.GetCampaign(ctx, c.ID)
	var notFound pkgError.NotFoundError
	require.True(t, errors.As(err, &notFound))

	contacts, err := repo.ListContactsByCampaign(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, contacts)

	logs, err := repo.ListActivityLogs(ctx, c.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestListDueScheduled(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	past := time.Now().UTC().Add(-time.Minute)
	future := time.Now().UTC().Add(time.Hour)

	due := domainCampaign.Campaign{
		ID:          uuid.NewString(),
		Name:        "due",
		Status:      domainCampaign.StatusDraft,
		Message:     "hi",
		ScheduledAt: &past,
	}
	notYet := domainCampaign.Campaign{
		ID:          uuid.NewString(),
		Name:        "later",
		Status:      domainCampaign.StatusDraft,
		Message:     "hi",
		ScheduledAt: &future,
	}
	unscheduled := domainCampaign.Campaign{
		ID:      uuid.NewString(),
		Name:    "manual",
		Status:  domainCampaign.StatusDraft,
		Message: "hi",
	}
	for _, c := range []domainCampaign.Campaign{due, notYet, unscheduled} {
		require.NoError(t, repo.CreateCampaign(ctx, c))
	}

	got, err := repo.ListDueScheduled(ctx, time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, due.ID, got[0].ID)
}
