package profile

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the extended account record kept in the relational
// store's profiles table. The backend provisions it asynchronously
// after signup, so a signed-in user can briefly have no profile row.
type Profile struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Age       int       `json:"age,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Patch carries profile fields to update. Nil fields are left
// untouched.
type Patch struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Age       *int    `json:"age,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}
