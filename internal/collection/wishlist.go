package collection

import (
	"time"

	"github.com/google/uuid"

	"mindspend/internal/backend/store"
	dErrors "mindspend/pkg/domain-errors"
)

// WantItem is a wishlist entry: something the user is tempted to buy
// but is sitting with instead.
type WantItem struct {
	ID          string    `json:"id,omitempty"`
	UserID      string    `json:"user_id,omitempty"`
	ProductName string    `json:"product_name"`
	Category    string    `json:"category"`
	ProductURL  string    `json:"product_url,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	Price       float64   `json:"price,omitempty"`
	TriggerTags []string  `json:"trigger_tags,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// categoryImages maps item categories to their stock illustration.
var categoryImages = map[string]string{
	"home":    "/images/categories/home.svg",
	"tech":    "/images/categories/tech.svg",
	"fashion": "/images/categories/fashion.svg",
	"hobby":   "/images/categories/hobby.svg",
	"beauty":  "/images/categories/beauty.svg",
}

const genericCategoryImage = "/images/categories/generic.svg"

// DefaultImageForCategory returns the stock image used when no
// preview could be derived from the product URL.
func DefaultImageForCategory(category string) string {
	if img, ok := categoryImages[category]; ok {
		return img
	}
	return genericCategoryImage
}

// WantItemSpec describes WantItem to the generic machinery.
func WantItemSpec() Spec[WantItem] {
	return Spec[WantItem]{
		Name:      "want_items",
		Validate:  validateWantItem,
		ServerID:  func(w WantItem) string { return w.ID },
		CreatedAt: func(w WantItem) time.Time { return w.CreatedAt },
		EnrichURL: func(w WantItem) string { return w.ProductURL },
		WithImage: func(w WantItem, imageURL string) WantItem {
			w.ImageURL = imageURL
			return w
		},
		DefaultImage: func(w WantItem) string {
			if w.ImageURL != "" {
				return w.ImageURL
			}
			return DefaultImageForCategory(w.Category)
		},
	}
}

func validateWantItem(draft WantItem) error {
	if draft.ProductName == "" {
		return dErrors.New(dErrors.CodeValidation, "product name is required")
	}
	if draft.Category == "" {
		return dErrors.New(dErrors.CodeValidation, "category is required")
	}
	return nil
}

// NewWishlist builds the optimistic collection over the want_items
// table for one user.
func NewWishlist(client *store.Client, userID uuid.UUID, opts ...Option[WantItem]) *Collection[WantItem] {
	table := NewRemoteTable(client, "want_items", userID, func(w WantItem, id uuid.UUID) WantItem {
		w.UserID = id.String()
		return w
	}, "image_url")
	return New(table, WantItemSpec(), opts...)
}
