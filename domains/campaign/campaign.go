package campaign

import (
	"context"
	"time"
)

// Status is the campaign lifecycle state. Only the dispatcher moves a
// campaign to StatusCompleted; every other transition comes from an external
// command (start/pause/stop) or campaign creation.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusStopped   Status = "stopped"
	StatusCompleted Status = "completed"
)

// CanTransition reports whether moving from one status to another is a legal
// lifecycle step. Completed and stopped are terminal for a run; a stopped or
// completed campaign may be re-activated, which starts a fresh run over the
// contacts still pending.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusDraft:
		return to == StatusActive
	case StatusActive:
		return to == StatusPaused || to == StatusStopped || to == StatusCompleted
	case StatusPaused:
		return to == StatusActive || to == StatusStopped
	case StatusStopped, StatusCompleted:
		return to == StatusActive
	}
	return false
}

// ContactStatus tracks a single recipient. Contacts are never individually
// paused; pausing is a campaign-level property.
type ContactStatus string

const (
	ContactPending ContactStatus = "pending"
	ContactSent    ContactStatus = "sent"
	ContactFailed  ContactStatus = "failed"
)

type Campaign struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Status          Status     `json:"status"`
	Message         string     `json:"message"`
	MessageBlocks   []string   `json:"message_blocks"`
	MessageInterval int        `json:"message_interval"`
	ShowTyping      bool       `json:"show_typing"`
	TotalContacts   int        `json:"total_contacts"`
	SentCount       int        `json:"sent_count"`
	FailedCount     int        `json:"failed_count"`
	ScheduledAt     *time.Time `json:"scheduled_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type Contact struct {
	ID         string `json:"id"`
	CampaignID string `json:"campaign_id"`
	// Position is the stored order within the campaign; the dispatcher
	// processes pending contacts in ascending position.
	Position     int            `json:"position"`
	Name         string         `json:"name"`
	Phone        string         `json:"phone"`
	CustomFields map[string]any `json:"custom_fields,omitempty"`
	Status       ContactStatus  `json:"status"`
	SentAt       *time.Time     `json:"sent_at,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// TemplateFields flattens the contact into the renderer's field map. The
// legacy dashboard authored templates in Portuguese, so `nome` and `telefone`
// are kept as aliases of name and phone. Custom fields are merged last and
// may shadow the built-ins.
func (c Contact) TemplateFields() map[string]any {
	fields := map[string]any{
		"name":     c.Name,
		"phone":    c.Phone,
		"nome":     c.Name,
		"telefone": c.Phone,
	}
	for key, value := range c.CustomFields {
		fields[key] = value
	}
	return fields
}

// Activity log entry types written by the dispatcher and lifecycle commands.
const (
	LogMessageSent       = "message_sent"
	LogMessageFailed     = "message_failed"
	LogBlockSent         = "block_sent"
	LogBlockFailed       = "block_failed"
	LogCampaignStarted   = "campaign_started"
	LogCampaignPaused    = "campaign_paused"
	LogCampaignStopped   = "campaign_stopped"
	LogCampaignCompleted = "campaign_completed"
)

// ActivityLog is the append-only audit trail. The dispatcher only writes it,
// never reads it back.
type ActivityLog struct {
	ID         string    `json:"id"`
	CampaignID string    `json:"campaign_id"`
	ContactID  string    `json:"contact_id,omitempty"`
	Type       string    `json:"type"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}

type CreateCampaignRequest struct {
	Name             string     `json:"name"`
	Message          string     `json:"message"`
	MessageBlocks    []string   `json:"message_blocks"`
	MessageInterval  int        `json:"message_interval"`
	ShowTyping       bool       `json:"show_typing"`
	StartImmediately bool       `json:"start_immediately"`
	ScheduledAt      *time.Time `json:"scheduled_at"`
}

type ContactRequest struct {
	Name         string         `json:"name"`
	Phone        string         `json:"phone"`
	CustomFields map[string]any `json:"custom_fields"`
}

type AddContactsRequest struct {
	Contacts []ContactRequest `json:"contacts"`
}

type ICampaignUsecase interface {
	Create(ctx context.Context, request CreateCampaignRequest) (Campaign, error)
	List(ctx context.Context) ([]Campaign, error)
	GetByID(ctx context.Context, id string) (Campaign, error)
	Delete(ctx context.Context, id string) error
	AddContacts(ctx context.Context, id string, request AddContactsRequest) ([]Contact, error)
	ListContacts(ctx context.Context, id string) ([]Contact, error)
	ListLogs(ctx context.Context, id string, limit int) ([]ActivityLog, error)
	Start(ctx context.Context, id string) error
	Pause(ctx context.Context, id string) error
	Stop(ctx context.Context, id string) error
}
