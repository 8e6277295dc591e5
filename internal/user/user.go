package user

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrEmailTaken     = errors.New("email already registered")
	ErrBadCredentials = errors.New("invalid email or password")
)

// User is an account holder. Immutable after creation apart from the
// profile-update path.
type User struct {
	ID        uuid.UUID
	Email     string
	Name      string
	CreatedAt time.Time
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether s passes the account email-format check.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// DisplayName returns the user's name, falling back to the email local
// part when the name is empty.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}

	if at := strings.Index(u.Email, "@"); at > 0 {
		return u.Email[:at]
	}

	return u.Email
}
