package usecase

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	domainCampaign "github.com/AzielCF/az-blast/domains/campaign"
)

// SchedulerStore is the slice of the campaign repository the scheduler needs.
type SchedulerStore interface {
	ListDueScheduled(ctx context.Context, now time.Time) ([]domainCampaign.Campaign, error)
}

// CampaignStarter starts a campaign by id. Satisfied by the campaign usecase.
type CampaignStarter interface {
	Start(ctx context.Context, id string) error
}

// Scheduler periodically sweeps for draft campaigns whose scheduled_at has
// passed and starts them. Sweeps are serialized by cron's job runner, so a
// slow sweep never overlaps the next one.
type Scheduler struct {
	store   SchedulerStore
	starter CampaignStarter
	cron    *cron.Cron
	spec    string
}

func NewScheduler(store SchedulerStore, starter CampaignStarter, spec string) *Scheduler {
	return &Scheduler{
		store:   store,
		starter: starter,
		cron:    cron.New(),
		spec:    spec,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.Sweep); err != nil {
		return err
	}
	s.cron.Start()
	logrus.WithField("spec", s.spec).Info("[SCHEDULER] Scheduled-campaign sweep started")
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Sweep starts every due campaign. A failure to start one campaign is logged
// and does not block the others; it will be retried on the next sweep since
// the campaign stays draft.
func (s *Scheduler) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	due, err := s.store.ListDueScheduled(ctx, time.Now().UTC())
	if err != nil {
		logrus.WithError(err).Error("[SCHEDULER] Failed to list due campaigns")
		return
	}

	for _, camp := range due {
		if err := s.starter.Start(ctx, camp.ID); err != nil {
			logrus.WithError(err).WithField("campaign_id", camp.ID).Error("[SCHEDULER] Failed to start scheduled campaign")
			continue
		}
		logrus.WithFields(logrus.Fields{
			"campaign_id":  camp.ID,
			"scheduled_at": camp.ScheduledAt,
		}).Info("[SCHEDULER] Scheduled campaign started")
	}
}
