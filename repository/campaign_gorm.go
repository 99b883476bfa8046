package repository

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"

	domainCampaign "github.com/AzielCF/az-blast/domains/campaign"
	pkgError "github.com/AzielCF/az-blast/pkg/error"
)

// Persistence models are kept separate from the domain structs so the domain
// stays free of GORM tags.

type campaignModel struct {
	ID              string `gorm:"primaryKey"`
	Name            string `gorm:"not null"`
	Status          string `gorm:"not null;index"`
	Message         string
	MessageBlocks   string `gorm:"column:message_blocks"` // JSON array
	MessageInterval int    `gorm:"not null;default:5"`
	ShowTyping      bool   `gorm:"not null;default:false"`
	TotalContacts   int    `gorm:"not null;default:0"`
	SentCount       int    `gorm:"not null;default:0"`
	FailedCount     int    `gorm:"not null;default:0"`
	ScheduledAt     *time.Time
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

func (campaignModel) TableName() string {
	return "campaigns"
}

type contactModel struct {
	ID           string `gorm:"primaryKey"`
	CampaignID   string `gorm:"not null;index"`
	Position     int    `gorm:"not null;default:0"`
	Name         string `gorm:"not null"`
	Phone        string `gorm:"not null"`
	CustomFields string `gorm:"column:custom_fields"` // JSON object
	Status       string `gorm:"not null;index"`
	SentAt       *time.Time
	ErrorMessage string
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

func (contactModel) TableName() string {
	return "contacts"
}

type activityLogModel struct {
	ID         string `gorm:"primaryKey"`
	CampaignID string `gorm:"not null;index"`
	ContactID  string
	Type       string    `gorm:"not null"`
	Message    string
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (activityLogModel) TableName() string {
	return "activity_logs"
}

// CampaignGormRepository implements ICampaignRepository on GORM.
type CampaignGormRepository struct {
	db *gorm.DB
}

func NewCampaignGormRepository(db *gorm.DB) *CampaignGormRepository {
	return &CampaignGormRepository{db: db}
}

func (r *CampaignGormRepository) Init(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&campaignModel{}, &contactModel{}, &activityLogModel{})
}

func (r *CampaignGormRepository) CreateCampaign(ctx context.Context, c domainCampaign.Campaign) error {
	model := toCampaignModel(c)
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *CampaignGormRepository) GetCampaign(ctx context.Context, id string) (domainCampaign.Campaign, error) {
	var model campaignModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domainCampaign.Campaign{}, pkgError.NotFoundError("campaign not found")
		}
		return domainCampaign.Campaign{}, err
	}
	return fromCampaignModel(model), nil
}

func (r *CampaignGormRepository) ListCampaigns(ctx context.Context) ([]domainCampaign.Campaign, error) {
	var models []campaignModel
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&models).Error
	if err != nil {
		return nil, err
	}

	result := make([]domainCampaign.Campaign, len(models))
	for i, m := range models {
		result[i] = fromCampaignModel(m)
	}
	return result, nil
}

func (r *CampaignGormRepository) UpdateCampaignStatus(ctx context.Context, id string, status domainCampaign.Status) error {
	res := r.db.WithContext(ctx).Model(&campaignModel{}).Where("id = ?", id).
		Update("status", string(status))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgError.NotFoundError("campaign not found")
	}
	return nil
}

func (r *CampaignGormRepository) IncrementSentCount(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&campaignModel{}).Where("id = ?", id).
		Update("sent_count", gorm.Expr("sent_count + 1")).Error
}

func (r *CampaignGormRepository) IncrementFailedCount(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&campaignModel{}).Where("id = ?", id).
		Update("failed_count", gorm.Expr("failed_count + 1")).Error
}

func (r *CampaignGormRepository) SetTotalContacts(ctx context.Context, id string, total int) error {
	return r.db.WithContext(ctx).Model(&campaignModel{}).Where("id = ?", id).
		Update("total_contacts", total).Error
}

func (r *CampaignGormRepository) ResetCounters(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&campaignModel{}).Where("id = ?", id).
		Updates(map[string]any{"sent_count": 0, "failed_count": 0}).Error
}

// DeleteCampaign removes contacts and logs before the campaign row so no
// contact ever references a deleted campaign.
func (r *CampaignGormRepository) DeleteCampaign(ctx context.Context, id string) error {
	db := r.db.WithContext(ctx)
	if err := db.Delete(&contactModel{}, "campaign_id = ?", id).Error; err != nil {
		return err
	}
	if err := db.Delete(&activityLogModel{}, "campaign_id = ?", id).Error; err != nil {
		return err
	}
	res := db.Delete(&campaignModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgError.NotFoundError("campaign not found")
	}
	return nil
}

func (r *CampaignGormRepository) ListDueScheduled(ctx context.Context, now time.Time) ([]domainCampaign.Campaign, error) {
	var models []campaignModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_at IS NOT NULL AND scheduled_at <= ?", string(domainCampaign.StatusDraft), now).
		Order("scheduled_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	result := make([]domainCampaign.Campaign, len(models))
	for i, m := range models {
		result[i] = fromCampaignModel(m)
	}
	return result, nil
}

func (r *CampaignGormRepository) CreateContacts(ctx context.Context, contacts []domainCampaign.Contact) error {
	if len(contacts) == 0 {
		return nil
	}
	models := make([]contactModel, len(contacts))
	for i, c := range contacts {
		models[i] = toContactModel(c)
	}
	return r.db.WithContext(ctx).Create(&models).Error
}

func (r *CampaignGormRepository) ListContactsByCampaign(ctx context.Context, campaignID string) ([]domainCampaign.Contact, error) {
	var models []contactModel
	err := r.db.WithContext(ctx).Where("campaign_id = ?", campaignID).
		Order("position ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	result := make([]domainCampaign.Contact, len(models))
	for i, m := range models {
		result[i] = fromContactModel(m)
	}
	return result, nil
}

func (r *CampaignGormRepository) CountContactsByStatus(ctx context.Context, campaignID string, status domainCampaign.ContactStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&contactModel{}).
		Where("campaign_id = ? AND status = ?", campaignID, string(status)).
		Count(&count).Error
	return count, err
}

func (r *CampaignGormRepository) MarkContactSent(ctx context.Context, contactID string, sentAt time.Time) error {
	return r.db.WithContext(ctx).Model(&contactModel{}).Where("id = ?", contactID).
		Updates(map[string]any{
			"status":        string(domainCampaign.ContactSent),
			"sent_at":       sentAt,
			"error_message": "",
		}).Error
}

func (r *CampaignGormRepository) MarkContactFailed(ctx context.Context, contactID, reason string) error {
	return r.db.WithContext(ctx).Model(&contactModel{}).Where("id = ?", contactID).
		Updates(map[string]any{
			"status":        string(domainCampaign.ContactFailed),
			"error_message": reason,
		}).Error
}

func (r *CampaignGormRepository) CreateActivityLog(ctx context.Context, entry domainCampaign.ActivityLog) error {
	model := activityLogModel{
		ID:         entry.ID,
		CampaignID: entry.CampaignID,
		ContactID:  entry.ContactID,
		Type:       entry.Type,
		Message:    entry.Message,
		CreatedAt:  entry.CreatedAt,
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *CampaignGormRepository) ListActivityLogs(ctx context.Context, campaignID string, limit int) ([]domainCampaign.ActivityLog, error) {
	if limit <= 0 {
		limit = 100
	}
	var models []activityLogModel
	err := r.db.WithContext(ctx).Where("campaign_id = ?", campaignID).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	result := make([]domainCampaign.ActivityLog, len(models))
	for i, m := range models {
		result[i] = domainCampaign.ActivityLog{
			ID:         m.ID,
			CampaignID: m.CampaignID,
			ContactID:  m.ContactID,
			Type:       m.Type,
			Message:    m.Message,
			CreatedAt:  m.CreatedAt,
		}
	}
	return result, nil
}

// Mappers. JSON columns fall back to empty values on corrupt data instead of
// failing a whole read.

func toCampaignModel(c domainCampaign.Campaign) campaignModel {
	blocks := "[]"
	if len(c.MessageBlocks) > 0 {
		if encoded, err := json.Marshal(c.MessageBlocks); err == nil {
			blocks = string(encoded)
		}
	}
	return campaignModel{
		ID:              c.ID,
		Name:            c.Name,
		Status:          string(c.Status),
		Message:         c.Message,
		MessageBlocks:   blocks,
		MessageInterval: c.MessageInterval,
		ShowTyping:      c.ShowTyping,
		TotalContacts:   c.TotalContacts,
		SentCount:       c.SentCount,
		FailedCount:     c.FailedCount,
		ScheduledAt:     c.ScheduledAt,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func fromCampaignModel(m campaignModel) domainCampaign.Campaign {
	var blocks []string
	if m.MessageBlocks != "" {
		_ = json.Unmarshal([]byte(m.MessageBlocks), &blocks)
	}
	return domainCampaign.Campaign{
		ID:              m.ID,
		Name:            m.Name,
		Status:          domainCampaign.Status(m.Status),
		Message:         m.Message,
		MessageBlocks:   blocks,
		MessageInterval: m.MessageInterval,
		ShowTyping:      m.ShowTyping,
		TotalContacts:   m.TotalContacts,
		SentCount:       m.SentCount,
		FailedCount:     m.FailedCount,
		ScheduledAt:     m.ScheduledAt,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func toContactModel(c domainCampaign.Contact) contactModel {
	fields := ""
	if len(c.CustomFields) > 0 {
		if encoded, err := json.Marshal(c.CustomFields); err == nil {
			fields = string(encoded)
		}
	}
	return contactModel{
		ID:           c.ID,
		CampaignID:   c.CampaignID,
		Position:     c.Position,
		Name:         c.Name,
		Phone:        c.Phone,
		CustomFields: fields,
		Status:       string(c.Status),
		SentAt:       c.SentAt,
		ErrorMessage: c.ErrorMessage,
		CreatedAt:    c.CreatedAt,
	}
}

func fromContactModel(m contactModel) domainCampaign.Contact {
	var fields map[string]any
	if m.CustomFields != "" {
		_ = json.Unmarshal([]byte(m.CustomFields), &fields)
	}
	return domainCampaign.Contact{
		ID:           m.ID,
		CampaignID:   m.CampaignID,
		Position:     m.Position,
		Name:         m.Name,
		Phone:        m.Phone,
		CustomFields: fields,
		Status:       domainCampaign.ContactStatus(m.Status),
		SentAt:       m.SentAt,
		ErrorMessage: m.ErrorMessage,
		CreatedAt:    m.CreatedAt,
	}
}
