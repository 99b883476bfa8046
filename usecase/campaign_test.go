package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AzielCF/az-blast/core/config"
	domainCampaign "github.com/AzielCF/az-blast/domains/campaign"
	pkgError "github.com/AzielCF/az-blast/pkg/error"
)

func newTestCampaignService(t *testing.T) (domainCampaign.ICampaignUsecase, *fakeRepo, *Dispatcher) {
	t.Helper()

	repo := newFakeRepo()
	gw := newFakeGateway()
	d := newTestDispatcher(repo, gw, &fakeBroadcaster{}, nil)
	t.Cleanup(d.Shutdown)

	service := NewCampaignService(repo, d, config.CampaignConfig{DefaultInterval: 5})
	return service, repo, d
}

func TestCreateCampaignDefaults(t *testing.T) {
	service, _, _ := newTestCampaignService(t)
	ctx := context.Background()

	camp, err := service.Create(ctx, domainCampaign.CreateCampaignRequest{
		Name:    "spring promo",
		Message: "Hi {name}",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, camp.ID)
	assert.Equal(t, domainCampaign.StatusDraft, camp.Status)
	assert.Equal(t, 5, camp.MessageInterval)
}

func TestCreateCampaignStartImmediately(t *testing.T) {
	service, _, _ := newTestCampaignService(t)

	camp, err := service.Create(context.Background(), domainCampaign.CreateCampaignRequest{
		Name:             "flash sale",
		Message:          "Hi {name}",
		MessageInterval:  3,
		StartImmediately: true,
	})
	require.NoError(t, err)

	assert.Equal(t, domainCampaign.StatusActive, camp.Status)
	assert.Equal(t, 3, camp.MessageInterval)
}

func TestCreateCampaignRejectsInvalid(t *testing.T) {
	service, _, _ := newTestCampaignService(t)

	_, err := service.Create(context.Background(), domainCampaign.CreateCampaignRequest{Name: "no message"})
	var validationErr pkgError.ValidationError
	require.True(t, errors.As(err, &validationErr))
}

func TestAddContactsAssignsPositions(t *testing.T) {
	service, repo, _ := newTestCampaignService(t)
	ctx := context.Background()

	camp, err := service.Create(ctx, domainCampaign.CreateCampaignRequest{
		Name:    "promo",
		Message: "Hi {name}",
	})
	require.NoError(t, err)

	first, err := service.AddContacts(ctx, camp.ID, domainCampaign.AddContactsRequest{
		Contacts: []domainCampaign.ContactRequest{
			{Name: "Ana", Phone: "5511999999999"},
			{Name: "Bruno", Phone: "5511888888888"},
		},
	})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, 0, first[0].Position)
	assert.Equal(t, 1, first[1].Position)

	second, err := service.AddContacts(ctx, camp.ID, domainCampaign.AddContactsRequest{
		Contacts: []domainCampaign.ContactRequest{
			{Name: "Carla", Phone: "5511777777777", CustomFields: map[string]any{"plano": "Gold"}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, second[0].Position)

	got, err := repo.GetCampaign(ctx, camp.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.TotalContacts)
}

func TestStartDraftCampaign(t *testing.T) {
	service, repo, dispatcher := newTestCampaignService(t)
	ctx := context.Background()

	camp, err := service.Create(ctx, domainCampaign.CreateCampaignRequest{
		Name:    "promo",
		Message: "Hi {name}",
	})
	require.NoError(t, err)

	require.NoError(t, service.Start(ctx, camp.ID))

	// Drain the launched run; with no contacts it completes immediately.
	dispatcher.Shutdown()

	got, err := repo.GetCampaign(ctx, camp.ID)
	require.NoError(t, err)
	assert.Equal(t, domainCampaign.StatusCompleted, got.Status)

	types := repo.logTypes(camp.ID)
	assert.Contains(t, types, domainCampaign.LogCampaignStarted)
	assert.Contains(t, types, domainCampaign.LogCampaignCompleted)
}

func TestLifecycleConflicts(t *testing.T) {
	service, repo, _ := newTestCampaignService(t)
	ctx := context.Background()

	camp, err := service.Create(ctx, domainCampaign.CreateCampaignRequest{
		Name:    "promo",
		Message: "Hi {name}",
	})
	require.NoError(t, err)

	var conflict pkgError.StateConflictError

	// Draft cannot be paused or stopped.
	require.True(t, errors.As(service.Pause(ctx, camp.ID), &conflict))
	require.True(t, errors.As(service.Stop(ctx, camp.ID), &conflict))

	// Completed can only be re-activated.
	require.NoError(t, repo.UpdateCampaignStatus(ctx, camp.ID, domainCampaign.StatusCompleted))
	require.True(t, errors.As(service.Pause(ctx, camp.ID), &conflict))
	require.True(t, errors.As(service.Stop(ctx, camp.ID), &conflict))
}

func TestPauseAndStopActiveCampaign(t *testing.T) {
	service, repo, _ := newTestCampaignService(t)
	ctx := context.Background()

	camp, err := service.Create(ctx, domainCampaign.CreateCampaignRequest{
		Name:             "promo",
		Message:          "Hi {name}",
		StartImmediately: true,
	})
	require.NoError(t, err)

	require.NoError(t, service.Pause(ctx, camp.ID))
	got, _ := repo.GetCampaign(ctx, camp.ID)
	assert.Equal(t, domainCampaign.StatusPaused, got.Status)

	require.NoError(t, service.Stop(ctx, camp.ID))
	got, _ = repo.GetCampaign(ctx, camp.ID)
	assert.Equal(t, domainCampaign.StatusStopped, got.Status)

	types := repo.logTypes(camp.ID)
	assert.Contains(t, types, domainCampaign.LogCampaignPaused)
	assert.Contains(t, types, domainCampaign.LogCampaignStopped)
}

func TestDeleteStopsActiveCampaign(t *testing.T) {
	service, repo, _ := newTestCampaignService(t)
	ctx := context.Background()

	camp, err := service.Create(ctx, domainCampaign.CreateCampaignRequest{
		Name:             "promo",
		Message:          "Hi {name}",
		StartImmediately: true,
	})
	require.NoError(t, err)

	require.NoError(t, service.Delete(ctx, camp.ID))

	_, err = repo.GetCampaign(ctx, camp.ID)
	assert.Error(t, err)
}

func TestSchedulerSweepStartsDueCampaigns(t *testing.T) {
	service, repo, dispatcher := newTestCampaignService(t)
	ctx := context.Background()

	past := time.Now().UTC().Add(-time.Minute)
	due := domainCampaign.Campaign{
		ID:          "due",
		Name:        "due",
		Status:      domainCampaign.StatusDraft,
		Message:     "hi",
		ScheduledAt: &past,
	}
	future := time.Now().UTC().Add(time.Hour)
	notYet := domainCampaign.Campaign{
		ID:          "later",
		Name:        "later",
		Status:      domainCampaign.StatusDraft,
		Message:     "hi",
		ScheduledAt: &future,
	}
	require.NoError(t, repo.CreateCampaign(ctx, due))
	require.NoError(t, repo.CreateCampaign(ctx, notYet))

	scheduler := NewScheduler(repo, service, "@every 1m")
	scheduler.Sweep()
	dispatcher.Shutdown()

	got, err := repo.GetCampaign(ctx, "due")
	require.NoError(t, err)
	assert.Equal(t, domainCampaign.StatusCompleted, got.Status)

	later, err := repo.GetCampaign(ctx, "later")
	require.NoError(t, err)
	assert.Equal(t, domainCampaign.StatusDraft, later.Status)
}
