package domain

import (
	"time"

	"github.com/google/uuid"
)

// CartSlots is the number of per-product quantity slots allocated to every
// user at signup. Slot i holds the cart quantity for product ID i.
const CartSlots = 300

// User represents a registered customer. PasswordHash is the bcrypt hash of
// the signup password; the clear password is never stored or returned.
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         string    `json:"role" db:"role"`
	CartData     []int     `json:"cartData" db:"cart_data"`
	CreatedAt    time.Time `json:"date" db:"created_at"`
}

// NewCartData returns a zeroed quantity slot array.
func NewCartData() []int {
	return make([]int, CartSlots)
}

// RefreshToken represents a revocable refresh token issued at login.
type RefreshToken struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Token     string    `json:"token" db:"token"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	Revoked   bool      `json:"revoked" db:"revoked"`
}
