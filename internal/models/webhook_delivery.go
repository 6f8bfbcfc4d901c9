package models

import "time"

// WebhookDelivery records each provider callback we have accepted, keyed by
// the provider-assigned delivery id. The unique index is what makes
// at-least-once delivery safe: a replayed delivery id fails the insert and is
// acknowledged without being reapplied.
type WebhookDelivery struct {
	ID          uint      `json:"id" gorm:"primarykey"`
	Provider    string    `json:"provider" gorm:"size:32;not null;uniqueIndex:ux_webhook_deliveries_provider_delivery,priority:1"`
	DeliveryID  string    `json:"delivery_id" gorm:"size:128;not null;uniqueIndex:ux_webhook_deliveries_provider_delivery,priority:2"`
	RecordingID string    `json:"recording_id" gorm:"size:36;index"`
	Outcome     string    `json:"outcome" gorm:"size:16"` // success or failure
	CreatedAt   time.Time `json:"created_at"`
}

// TableName specifies the table name for WebhookDelivery
func (WebhookDelivery) TableName() string {
	return "webhook_deliveries"
}
