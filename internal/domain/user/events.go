package user

import "time"

const (
	EventUserCreated = "UserCreated"
)

// UserCreated is emitted when a new user is registered
type UserCreated struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CartID    string    `json:"cart_id"`
	CreatedAt time.Time `json:"created_at"`
}
