package campaign

import (
	"context"
	"time"
)

// ICampaignRepository is the durable campaign store. All operations are
// atomic at single-record granularity; the dispatcher relies on
// read-your-write consistency within the process, not on transactions.
type ICampaignRepository interface {
	Init(ctx context.Context) error

	CreateCampaign(ctx context.Context, c Campaign) error
	GetCampaign(ctx context.Context, id string) (Campaign, error)
	ListCampaigns(ctx context.Context) ([]Campaign, error)
	UpdateCampaignStatus(ctx context.Context, id string, status Status) error
	IncrementSentCount(ctx context.Context, id string) error
	IncrementFailedCount(ctx context.Context, id string) error
	SetTotalContacts(ctx context.Context, id string, total int) error
	ResetCounters(ctx context.Context, id string) error
	// DeleteCampaign removes the campaign together with its contacts and
	// activity log entries (contacts first, never orphaned references).
	DeleteCampaign(ctx context.Context, id string) error
	// ListDueScheduled returns draft campaigns whose scheduled_at is at or
	// before the given instant.
	ListDueScheduled(ctx context.Context, now time.Time) ([]Campaign, error)

	CreateContacts(ctx context.Context, contacts []Contact) error
	// ListContactsByCampaign returns contacts in stored (insertion) order.
	ListContactsByCampaign(ctx context.Context, campaignID string) ([]Contact, error)
	CountContactsByStatus(ctx context.Context, campaignID string, status ContactStatus) (int64, error)
	MarkContactSent(ctx context.Context, contactID string, sentAt time.Time) error
	MarkContactFailed(ctx context.Context, contactID, reason string) error

	CreateActivityLog(ctx context.Context, entry ActivityLog) error
	ListActivityLogs(ctx context.Context, campaignID string, limit int) ([]ActivityLog, error)
}
