package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
)

var ErrBadCredentials = errors.New("bad credentials")

// User is one static login entry. The association runs on a handful of fixed
// accounts, so users live in configuration rather than the database.
type User struct {
	Email    string
	Password string
	Role     Role
}

// ParseUsers parses a comma-separated list of email:password:role entries.
func ParseUsers(raw string) ([]User, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var users []User

	for _, entry := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(entry), ":", 3)
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("malformed user entry %q", entry)
		}

		role := Role(parts[2])
		switch role {
		case RoleAdmin, RoleSecretary, RoleUser, RoleDemo:
		default:
			return nil, fmt.Errorf("unknown role %q for user %q", parts[2], parts[0])
		}

		users = append(users, User{Email: parts[0], Password: parts[1], Role: role})
	}

	return users, nil
}

// Authenticate finds the user with a matching email and password.
func Authenticate(users []User, email, password string) (*User, error) {
	for i := range users {
		u := &users[i]
		if !strings.EqualFold(u.Email, email) {
			continue
		}

		if subtle.ConstantTimeCompare([]byte(u.Password), []byte(password)) == 1 {
			return u, nil
		}

		break
	}

	return nil, ErrBadCredentials
}
