package webhooks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openscribe/consult-api/internal/models"
	"gorm.io/gorm"
)

// ErrDuplicateDelivery means this provider delivery id was already claimed
var ErrDuplicateDelivery = errors.New("webhook delivery already processed")

// Repository persists webhook delivery claims. Claiming is an insert against
// a unique (provider, delivery_id) index, so exactly one request per delivery
// id gets to apply side effects.
type Repository interface {
	// ClaimDelivery records the delivery; ErrDuplicateDelivery on replay
	ClaimDelivery(ctx context.Context, delivery *models.WebhookDelivery) error

	// ReleaseDelivery removes a claim whose side effects could not be applied,
	// letting the provider's retry try again
	ReleaseDelivery(ctx context.Context, provider, deliveryID string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new webhook delivery repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ClaimDelivery(ctx context.Context, delivery *models.WebhookDelivery) error {
	if err := r.db.WithContext(ctx).Create(delivery).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicateDelivery
		}
		return fmt.Errorf("claiming webhook delivery: %w", err)
	}
	return nil
}

func (r *repository) ReleaseDelivery(ctx context.Context, provider, deliveryID string) error {
	err := r.db.WithContext(ctx).
		Where("provider = ? AND delivery_id = ?", provider, deliveryID).
		Delete(&models.WebhookDelivery{}).Error
	if err != nil {
		return fmt.Errorf("releasing webhook delivery: %w", err)
	}
	return nil
}
