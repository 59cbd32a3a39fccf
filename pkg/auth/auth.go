// Package auth implements the Auth component (C6): user management with
// bcrypt password digests and a fixed set of named permissions, with an
// optional bypass_security mode for single-operator deployments.
package auth

import (
	"fmt"

	"github.com/ChayaSt/QCFractal/pkg/metrics"
	"github.com/ChayaSt/QCFractal/pkg/storage"
	"github.com/ChayaSt/QCFractal/pkg/types"
	"golang.org/x/crypto/bcrypt"
)

// Auth wraps a Store with authentication operations. When BypassSecurity is
// set, Verify always succeeds without consulting the store, matching the
// original socket's bypass_security escape hatch for local/dev deployments.
type Auth struct {
	store          storage.Store
	bypassSecurity bool
}

// New builds an Auth over the given Store.
func New(store storage.Store, bypassSecurity bool) *Auth {
	return &Auth{store: store, bypassSecurity: bypassSecurity}
}

// AddUser hashes password with bcrypt and persists a new User with the given
// permissions. Admin implies every other permission.
func (a *Auth) AddUser(username, password string, permissions []types.Permission) error {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("auth: hash password: %w", err)
	}

	perms := make(map[types.Permission]bool, len(permissions))
	for _, p := range permissions {
		perms[p] = true
	}

	return a.store.AddUser(&types.User{
		Username:       username,
		PasswordDigest: digest,
		Permissions:    perms,
	})
}

// Verify checks a username/password pair and, if it matches, that the user
// holds the required permission (admin satisfies any requirement).
func (a *Auth) Verify(username, password string, required types.Permission) (bool, error) {
	if a.bypassSecurity {
		metrics.AuthAttemptsTotal.WithLabelValues("bypassed").Inc()
		return true, nil
	}

	user, err := a.store.GetUserByUsername(username)
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("no_such_user").Inc()
		return false, nil
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordDigest, []byte(password)); err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("bad_password").Inc()
		return false, nil
	}

	if !user.Permissions[required] && !user.Permissions[types.PermissionAdmin] {
		metrics.AuthAttemptsTotal.WithLabelValues("insufficient_permission").Inc()
		return false, nil
	}

	metrics.AuthAttemptsTotal.WithLabelValues("granted").Inc()
	return true, nil
}

// RemoveUser deletes a user by username. It is idempotent: removing an
// already-absent user is not an error.
func (a *Auth) RemoveUser(username string) error {
	return a.store.DeleteUser(username)
}
