package collection

import (
	"time"

	"github.com/google/uuid"

	"mindspend/internal/backend/store"
	dErrors "mindspend/pkg/domain-errors"
)

// Purchase is a logged purchase with its behavioral trigger tags.
type Purchase struct {
	ID          string    `json:"id,omitempty"`
	UserID      string    `json:"user_id,omitempty"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Amount      float64   `json:"amount"`
	TriggerTags []string  `json:"trigger_tags,omitempty"`
	PurchasedAt time.Time `json:"purchased_at"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// PurchaseSpec describes Purchase to the generic machinery. Purchases
// carry no image field, so enrichment is disabled.
func PurchaseSpec() Spec[Purchase] {
	return Spec[Purchase]{
		Name:      "purchases",
		Validate:  validatePurchase,
		ServerID:  func(p Purchase) string { return p.ID },
		CreatedAt: func(p Purchase) time.Time { return p.CreatedAt },
	}
}

func validatePurchase(draft Purchase) error {
	if draft.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "purchase name is required")
	}
	if draft.Category == "" {
		return dErrors.New(dErrors.CodeValidation, "purchase category is required")
	}
	if draft.Amount <= 0 {
		return dErrors.New(dErrors.CodeValidation, "purchase amount must be positive")
	}
	return nil
}

// NewPurchases builds the optimistic collection over the purchases
// table for one user.
func NewPurchases(client *store.Client, userID uuid.UUID, opts ...Option[Purchase]) *Collection[Purchase] {
	table := NewRemoteTable(client, "purchases", userID, func(p Purchase, id uuid.UUID) Purchase {
		p.UserID = id.String()
		return p
	}, "")
	return New(table, PurchaseSpec(), opts...)
}
