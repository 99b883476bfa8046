package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/AzielCF/az-blast/core/config"
	domainCampaign "github.com/AzielCF/az-blast/domains/campaign"
	pkgError "github.com/AzielCF/az-blast/pkg/error"
	"github.com/AzielCF/az-blast/validations"
)

type serviceCampaign struct {
	repo            domainCampaign.ICampaignRepository
	dispatcher      *Dispatcher
	defaultInterval int
}

func NewCampaignService(repo domainCampaign.ICampaignRepository, dispatcher *Dispatcher, cfg config.CampaignConfig) domainCampaign.ICampaignUsecase {
	return &serviceCampaign{
		repo:            repo,
		dispatcher:      dispatcher,
		defaultInterval: cfg.DefaultInterval,
	}
}

func (service *serviceCampaign) Create(ctx context.Context, request domainCampaign.CreateCampaignRequest) (domainCampaign.Campaign, error) {
	if err := validations.ValidateCreateCampaign(ctx, request); err != nil {
		return domainCampaign.Campaign{}, err
	}

	interval := request.MessageInterval
	if interval <= 0 {
		interval = service.defaultInterval
	}

	status := domainCampaign.StatusDraft
	if request.StartImmediately {
		status = domainCampaign.StatusActive
	}

	now := time.Now().UTC()
	camp := domainCampaign.Campaign{
		ID:              uuid.NewString(),
		Name:            request.Name,
		Status:          status,
		Message:         request.Message,
		MessageBlocks:   request.MessageBlocks,
		MessageInterval: interval,
		ShowTyping:      request.ShowTyping,
		ScheduledAt:     request.ScheduledAt,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := service.repo.CreateCampaign(ctx, camp); err != nil {
		return domainCampaign.Campaign{}, err
	}

	logrus.WithFields(logrus.Fields{
		"campaign_id": camp.ID,
		"status":      camp.Status,
	}).Info("[CAMPAIGN] Campaign created")

	return camp, nil
}

func (service *serviceCampaign) List(ctx context.Context) ([]domainCampaign.Campaign, error) {
	return service.repo.ListCampaigns(ctx)
}

func (service *serviceCampaign) GetByID(ctx context.Context, id string) (domainCampaign.Campaign, error) {
	return service.repo.GetCampaign(ctx, id)
}

func (service *serviceCampaign) Delete(ctx context.Context, id string) error {
	// A running campaign is stopped first so the loop exits at its next
	// checkpoint before the rows disappear under it.
	camp, err := service.repo.GetCampaign(ctx, id)
	if err != nil {
		return err
	}
	if camp.Status == domainCampaign.StatusActive {
		if err := service.repo.UpdateCampaignStatus(ctx, id, domainCampaign.StatusStopped); err != nil {
			return err
		}
	}
	return service.repo.DeleteCampaign(ctx, id)
}

func (service *serviceCampaign) AddContacts(ctx context.Context, id string, request domainCampaign.AddContactsRequest) ([]domainCampaign.Contact, error) {
	if err := validations.ValidateAddContacts(ctx, request); err != nil {
		return nil, err
	}

	camp, err := service.repo.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}

	existing, err := service.repo.ListContactsByCampaign(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	contacts := make([]domainCampaign.Contact, len(request.Contacts))
	for i, req := range request.Contacts {
		contacts[i] = domainCampaign.Contact{
			ID:           uuid.NewString(),
			CampaignID:   id,
			Position:     len(existing) + i,
			Name:         req.Name,
			Phone:        req.Phone,
			CustomFields: req.CustomFields,
			Status:       domainCampaign.ContactPending,
			CreatedAt:    now,
		}
	}

	if err := service.repo.CreateContacts(ctx, contacts); err != nil {
		return nil, err
	}
	if err := service.repo.SetTotalContacts(ctx, id, len(existing)+len(contacts)); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"campaign_id": camp.ID,
		"added":       len(contacts),
		"total":       len(existing) + len(contacts),
	}).Info("[CAMPAIGN] Contacts added")

	return contacts, nil
}

func (service *serviceCampaign) ListContacts(ctx context.Context, id string) ([]domainCampaign.Contact, error) {
	if _, err := service.repo.GetCampaign(ctx, id); err != nil {
		return nil, err
	}
	return service.repo.ListContactsByCampaign(ctx, id)
}

func (service *serviceCampaign) ListLogs(ctx context.Context, id string, limit int) ([]domainCampaign.ActivityLog, error) {
	if _, err := service.repo.GetCampaign(ctx, id); err != nil {
		return nil, err
	}
	return service.repo.ListActivityLogs(ctx, id, limit)
}

// Start activates the campaign and launches its run. Starting a campaign
// that is already active only re-launches the run when none is active, so
// duplicate start commands are harmless.
func (service *serviceCampaign) Start(ctx context.Context, id string) error {
	camp, err := service.repo.GetCampaign(ctx, id)
	if err != nil {
		return err
	}

	if camp.Status != domainCampaign.StatusActive {
		if !domainCampaign.CanTransition(camp.Status, domainCampaign.StatusActive) {
			return pkgError.StateConflictError(
				fmt.Sprintf("cannot start campaign in status %q", camp.Status))
		}
		if err := service.repo.UpdateCampaignStatus(ctx, id, domainCampaign.StatusActive); err != nil {
			return err
		}
		service.logLifecycle(ctx, id, domainCampaign.LogCampaignStarted,
			fmt.Sprintf("campaign %q started", camp.Name))
	}

	service.dispatcher.Launch(id)
	return nil
}

func (service *serviceCampaign) Pause(ctx context.Context, id string) error {
	camp, err := service.repo.GetCampaign(ctx, id)
	if err != nil {
		return err
	}
	if !domainCampaign.CanTransition(camp.Status, domainCampaign.StatusPaused) {
		return pkgError.StateConflictError(
			fmt.Sprintf("cannot pause campaign in status %q", camp.Status))
	}
	if err := service.repo.UpdateCampaignStatus(ctx, id, domainCampaign.StatusPaused); err != nil {
		return err
	}
	service.logLifecycle(ctx, id, domainCampaign.LogCampaignPaused,
		fmt.Sprintf("campaign %q paused", camp.Name))
	return nil
}

func (service *serviceCampaign) Stop(ctx context.Context, id string) error {
	camp, err := service.repo.GetCampaign(ctx, id)
	if err != nil {
		return err
	}
	if !domainCampaign.CanTransition(camp.Status, domainCampaign.StatusStopped) {
		return pkgError.StateConflictError(
			fmt.Sprintf("cannot stop campaign in status %q", camp.Status))
	}
	if err := service.repo.UpdateCampaignStatus(ctx, id, domainCampaign.StatusStopped); err != nil {
		return err
	}
	service.logLifecycle(ctx, id, domainCampaign.LogCampaignStopped,
		fmt.Sprintf("campaign %q stopped", camp.Name))
	return nil
}

func (service *serviceCampaign) logLifecycle(ctx context.Context, campaignID, logType, message string) {
	entry := domainCampaign.ActivityLog{
		ID:         uuid.NewString(),
		CampaignID: campaignID,
		Type:       logType,
		Message:    message,
		CreatedAt:  time.Now().UTC(),
	}
	if err := service.repo.CreateActivityLog(ctx, entry); err != nil {
		logrus.WithError(err).Warn("[CAMPAIGN] Failed to append activity log")
	}
}
