package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/AzielCF/az-blast/core/config"
	domainCampaign "github.com/AzielCF/az-blast/domains/campaign"
	domainEvents "github.com/AzielCF/az-blast/domains/events"
	domainGateway "github.com/AzielCF/az-blast/domains/gateway"
	pkgTemplate "github.com/AzielCF/az-blast/pkg/template"
	"github.com/AzielCF/az-blast/pkg/waitfor"
)

// IEventForwarder pushes completed-campaign events to external webhooks.
// Optional; a nil forwarder disables forwarding.
type IEventForwarder interface {
	ForwardEvent(ctx context.Context, event domainEvents.Event) error
}

// Dispatcher drives one campaign run end to end: it walks pending contacts in
// stored order, renders and sends each segment through the gateway, records
// outcomes, paces sends and emits progress events. One run per campaign, one
// contact at a time; the gateway is a single shared session and cannot
// multiplex sends.
type Dispatcher struct {
	repo        domainCampaign.ICampaignRepository
	gateway     domainGateway.IGateway
	broadcaster domainEvents.IEventBroadcaster
	forwarder   IEventForwarder

	maxRetries        int
	settleDelay       time.Duration
	reconnectAttempts int
	reconnectPoll     time.Duration

	// tick is the unit behind a campaign's messageInterval. Production
	// keeps it at one second; tests shrink it.
	tick time.Duration

	mu      sync.Mutex
	running map[string]context.CancelFunc
	wg      sync.WaitGroup
}

func NewDispatcher(
	repo domainCampaign.ICampaignRepository,
	gw domainGateway.IGateway,
	broadcaster domainEvents.IEventBroadcaster,
	forwarder IEventForwarder,
	cfg config.CampaignConfig,
) *Dispatcher {
	return &Dispatcher{
		repo:              repo,
		gateway:           gw,
		broadcaster:       broadcaster,
		forwarder:         forwarder,
		maxRetries:        cfg.MaxRetries,
		settleDelay:       cfg.SettleDelay,
		reconnectAttempts: cfg.ReconnectAttempts,
		reconnectPoll:     cfg.ReconnectPollInterval,
		tick:              time.Second,
		running:           make(map[string]context.CancelFunc),
	}
}

// Launch starts the run for a campaign in a background goroutine. Returns
// false when a run for that campaign is already active (duplicate start
// commands are a no-op).
func (d *Dispatcher) Launch(campaignID string) bool {
	d.mu.Lock()
	if _, exists := d.running[campaignID]; exists {
		d.mu.Unlock()
		logrus.WithField("campaign_id", campaignID).Debug("[DISPATCH] Run already active, ignoring launch")
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.running[campaignID] = cancel
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer func() {
			d.mu.Lock()
			delete(d.running, campaignID)
			d.mu.Unlock()
			cancel()
			d.wg.Done()
		}()
		d.Run(ctx, campaignID)
	}()
	return true
}

// IsRunning reports whether a run is active for the campaign.
func (d *Dispatcher) IsRunning(campaignID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, exists := d.running[campaignID]
	return exists
}

// ActiveRuns returns the number of campaigns currently being dispatched.
func (d *Dispatcher) ActiveRuns() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.running)
}

// Shutdown cancels every active run and waits for the goroutines to drain.
func (d *Dispatcher) Shutdown() {
	d.mu.Lock()
	for _, cancel := range d.running {
		cancel()
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// Run executes one campaign run. Pause/stop are cooperative: the loop
// re-reads campaign status before each contact and each block and exits at
// those checkpoints, leaving unprocessed contacts pending for a later resume.
func (d *Dispatcher) Run(ctx context.Context, campaignID string) {
	log := logrus.WithField("campaign_id", campaignID)

	camp, err := d.repo.GetCampaign(ctx, campaignID)
	if err != nil {
		log.WithError(err).Error("[DISPATCH] Failed to load campaign")
		return
	}
	if camp.Status != domainCampaign.StatusActive {
		// Lost the race with a pause/stop between command and launch.
		log.WithField("status", camp.Status).Debug("[DISPATCH] Campaign not active, aborting run")
		return
	}

	contacts, err := d.repo.ListContactsByCampaign(ctx, campaignID)
	if err != nil {
		log.WithError(err).Error("[DISPATCH] Failed to load contacts")
		return
	}

	pending := make([]domainCampaign.Contact, 0, len(contacts))
	for _, contact := range contacts {
		if contact.Status == domainCampaign.ContactPending {
			pending = append(pending, contact)
		}
	}

	log.WithFields(logrus.Fields{
		"pending":  len(pending),
		"total":    camp.TotalContacts,
		"interval": camp.MessageInterval,
	}).Info("[DISPATCH] Campaign run started")

	sent := camp.SentCount

	for _, contact := range pending {
		current, err := d.repo.GetCampaign(ctx, campaignID)
		if err != nil {
			log.WithError(err).Error("[DISPATCH] Failed to re-read campaign, stopping run")
			break
		}
		if current.Status != domainCampaign.StatusActive {
			log.WithField("status", current.Status).Info("[DISPATCH] Campaign no longer active, stopping run")
			break
		}

		sent = d.processContact(ctx, camp, contact, sent)

		// Unconditional pacing between contacts, success or failure.
		if err := d.wait(ctx, camp.MessageInterval); err != nil {
			log.Debug("[DISPATCH] Run cancelled during interval wait")
			break
		}
	}

	remaining, err := d.repo.CountContactsByStatus(ctx, campaignID, domainCampaign.ContactPending)
	if err != nil {
		log.WithError(err).Error("[DISPATCH] Failed to count pending contacts")
		return
	}
	if remaining > 0 {
		// Aborted early; the external pause/stop command already set the
		// status, nothing more to do here.
		log.WithField("remaining", remaining).Info("[DISPATCH] Campaign run ended with contacts pending")
		return
	}

	if err := d.repo.UpdateCampaignStatus(ctx, campaignID, domainCampaign.StatusCompleted); err != nil {
		log.WithError(err).Error("[DISPATCH] Failed to mark campaign completed")
		return
	}
	d.logActivity(ctx, campaignID, "", domainCampaign.LogCampaignCompleted,
		fmt.Sprintf("campaign %q completed", camp.Name))

	completed := domainEvents.Event{
		Type: domainEvents.TypeCampaignCompleted,
		Data: domainEvents.CampaignCompleted{CampaignID: campaignID, Name: camp.Name},
	}
	d.emit(completed)
	d.forward(completed)

	log.Info("[DISPATCH] Campaign completed")
}

// processContact handles one contact: primary message, then blocks. Returns
// the updated cumulative sent count. A panic inside contact processing marks
// that one contact failed and never aborts the run; a contact whose primary
// message was delivered is never downgraded by a later panic or block
// failure.
func (d *Dispatcher) processContact(ctx context.Context, camp domainCampaign.Campaign, contact domainCampaign.Contact, sentSoFar int) (sent int) {
	sent = sentSoFar
	delivered := false

	log := logrus.WithFields(logrus.Fields{
		"campaign_id": camp.ID,
		"contact_id":  contact.ID,
	})

	defer func() {
		if r := recover(); r != nil {
			reason := fmt.Sprintf("unexpected error: %v", r)
			log.Errorf("[DISPATCH] Recovered from panic while processing contact: %v", r)
			if !delivered {
				d.recordFailure(ctx, camp, contact, reason)
			}
		}
	}()

	fields := contact.TemplateFields()
	body := pkgTemplate.Render(camp.Message, fields)

	if err := d.sendSegment(ctx, contact.Phone, body, camp.ShowTyping); err != nil {
		sendErr := domainGateway.AsSendError(err)
		log.WithField("reason", sendErr.Reason).Warn("[DISPATCH] Primary message failed")
		d.recordFailure(ctx, camp, contact, sendErr.Reason)
		return sent
	}

	delivered = true
	now := time.Now().UTC()
	if err := d.repo.MarkContactSent(ctx, contact.ID, now); err != nil {
		log.WithError(err).Error("[DISPATCH] Failed to mark contact sent")
	}
	d.logActivity(ctx, camp.ID, contact.ID, domainCampaign.LogMessageSent,
		fmt.Sprintf("message sent to %s", contact.Phone))
	if err := d.repo.IncrementSentCount(ctx, camp.ID); err != nil {
		log.WithError(err).Error("[DISPATCH] Failed to increment sent count")
	}
	sent++

	progress := 0.0
	if camp.TotalContacts > 0 {
		progress = float64(sent) / float64(camp.TotalContacts) * 100
	}
	d.emit(domainEvents.Event{
		Type: domainEvents.TypeCampaignProgress,
		Data: domainEvents.CampaignProgress{
			CampaignID: camp.ID,
			ContactID:  contact.ID,
			Status:     string(domainCampaign.ContactSent),
			Progress:   &progress,
		},
	})

	d.sendBlocks(ctx, camp, contact, fields)
	return sent
}

// sendBlocks delivers the secondary blocks in declared order. Each block gets
// its own interval wait and active re-check; a connection-kind failure halts
// the remaining blocks, any other failure is logged and the next block still
// runs. The contact stays sent either way.
func (d *Dispatcher) sendBlocks(ctx context.Context, camp domainCampaign.Campaign, contact domainCampaign.Contact, fields map[string]any) {
	total := len(camp.MessageBlocks)
	if total == 0 {
		return
	}

	log := logrus.WithFields(logrus.Fields{
		"campaign_id": camp.ID,
		"contact_id":  contact.ID,
	})

	for index, block := range camp.MessageBlocks {
		if err := d.wait(ctx, camp.MessageInterval); err != nil {
			return
		}

		current, err := d.repo.GetCampaign(ctx, camp.ID)
		if err != nil || current.Status != domainCampaign.StatusActive {
			// Remaining blocks abort, the contact keeps its sent status.
			log.Debug("[DISPATCH] Campaign no longer active, aborting remaining blocks")
			return
		}

		body := pkgTemplate.Render(block, fields)
		if err := d.sendSegment(ctx, contact.Phone, body, camp.ShowTyping); err != nil {
			sendErr := domainGateway.AsSendError(err)
			log.WithFields(logrus.Fields{
				"block":  index,
				"reason": sendErr.Reason,
			}).Warn("[DISPATCH] Block send failed")
			d.logActivity(ctx, camp.ID, contact.ID, domainCampaign.LogBlockFailed,
				fmt.Sprintf("block %d/%d failed: %s", index+1, total, sendErr.Reason))
			if sendErr.ConnectionDown() {
				return
			}
			continue
		}

		d.logActivity(ctx, camp.ID, contact.ID, domainCampaign.LogBlockSent,
			fmt.Sprintf("block %d/%d sent to %s", index+1, total, contact.Phone))
		d.emit(domainEvents.Event{
			Type: domainEvents.TypeMessageBlockSent,
			Data: domainEvents.MessageBlockSent{
				CampaignID:  camp.ID,
				ContactID:   contact.ID,
				BlockIndex:  index,
				TotalBlocks: total,
			},
		})
	}
}

// sendSegment delivers one message segment with the bounded reset-and-retry
// policy: transient failures trigger a gateway reset and one more attempt,
// up to maxRetries resets per segment. Not-connected and permanent failures
// are returned immediately.
func (d *Dispatcher) sendSegment(ctx context.Context, address, body string, showTyping bool) error {
	retries := d.maxRetries
	for {
		if !d.gateway.IsConnected() {
			return &domainGateway.SendError{
				Kind:   domainGateway.KindNotConnected,
				Reason: "gateway is not connected",
			}
		}

		err := d.gateway.SendText(ctx, address, body, domainGateway.SendOptions{ShowTyping: showTyping})
		if err == nil {
			return nil
		}

		sendErr := domainGateway.AsSendError(err)
		if sendErr.Kind != domainGateway.KindTransient || retries <= 0 {
			return sendErr
		}
		retries--

		if resetErr := d.resetGateway(ctx); resetErr != nil {
			return resetErr
		}
	}
}

// resetGateway cycles the session: disconnect, settle, reconnect, then poll
// readiness within a fixed budget.
func (d *Dispatcher) resetGateway(ctx context.Context) error {
	logrus.Warn("[DISPATCH] Transient send failure, resetting gateway")

	d.gateway.Disconnect()

	select {
	case <-time.After(d.settleDelay):
	case <-ctx.Done():
		return &domainGateway.SendError{
			Kind:   domainGateway.KindReconnectFailed,
			Reason: ctx.Err().Error(),
		}
	}

	if err := d.gateway.Connect(); err != nil {
		logrus.WithError(err).Warn("[DISPATCH] Reconnect attempt returned error, polling for readiness anyway")
	}

	if err := waitfor.Until(ctx, d.reconnectAttempts, d.reconnectPoll, d.gateway.IsConnected); err != nil {
		return &domainGateway.SendError{
			Kind:   domainGateway.KindReconnectFailed,
			Reason: fmt.Sprintf("gateway did not reconnect within %d attempts", d.reconnectAttempts),
		}
	}

	logrus.Info("[DISPATCH] Gateway reconnected")
	return nil
}

func (d *Dispatcher) recordFailure(ctx context.Context, camp domainCampaign.Campaign, contact domainCampaign.Contact, reason string) {
	if err := d.repo.MarkContactFailed(ctx, contact.ID, reason); err != nil {
		logrus.WithError(err).Error("[DISPATCH] Failed to mark contact failed")
	}
	d.logActivity(ctx, camp.ID, contact.ID, domainCampaign.LogMessageFailed,
		fmt.Sprintf("message to %s failed: %s", contact.Phone, reason))
	if err := d.repo.IncrementFailedCount(ctx, camp.ID); err != nil {
		logrus.WithError(err).Error("[DISPATCH] Failed to increment failed count")
	}
	d.emit(domainEvents.Event{
		Type: domainEvents.TypeCampaignProgress,
		Data: domainEvents.CampaignProgress{
			CampaignID: camp.ID,
			ContactID:  contact.ID,
			Status:     string(domainCampaign.ContactFailed),
			Error:      reason,
		},
	})
}

// wait sleeps for the campaign interval (seconds scaled by tick), returning
// early only when the run context ends.
func (d *Dispatcher) wait(ctx context.Context, seconds int) error {
	if seconds <= 0 {
		return nil
	}
	select {
	case <-time.After(time.Duration(seconds) * d.tick):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) logActivity(ctx context.Context, campaignID, contactID, logType, message string) {
	entry := domainCampaign.ActivityLog{
		ID:         uuid.NewString(),
		CampaignID: campaignID,
		ContactID:  contactID,
		Type:       logType,
		Message:    message,
		CreatedAt:  time.Now().UTC(),
	}
	if err := d.repo.CreateActivityLog(ctx, entry); err != nil {
		logrus.WithError(err).Warn("[DISPATCH] Failed to append activity log")
	}
}

func (d *Dispatcher) emit(event domainEvents.Event) {
	if d.broadcaster == nil {
		return
	}
	d.broadcaster.Emit(event)
}

func (d *Dispatcher) forward(event domainEvents.Event) {
	if d.forwarder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.forwarder.ForwardEvent(ctx, event); err != nil {
		logrus.WithError(err).Warn("[DISPATCH] Webhook forward failed")
	}
}
