package auth

import (
	"context"
	"fmt"

	domainerrors "mindspend/pkg/domain-errors"

	"mindspend/internal/backend/provider"
	"mindspend/internal/email"
)

//go:generate mockgen -source=operations.go -destination=mocks/operations_mock.go -package=mocks

// Provider is the identity-provider surface the coordinator drives.
// *provider.Client satisfies it.
type Provider interface {
	SignIn(ctx context.Context, address, password string) (*provider.Session, error)
	SignUp(ctx context.Context, address, password string, metadata map[string]string) (*provider.Session, error)
	SignOut(ctx context.Context) error
	RequestPasswordReset(ctx context.Context, address string) error
	UpdatePassword(ctx context.Context, newPassword string) error
}

// Mailer dispatches transactional mail without blocking the caller.
// *email.Dispatcher satisfies it.
type Mailer interface {
	SendAsync(kind email.Kind, to string)
}

// WithProvider wires the identity provider used by the credential
// operations. Coordinators built without one still reconcile; the
// operations return an internal error.
func WithProvider(p Provider) Option {
	return func(c *Coordinator) {
		c.provider = p
	}
}

// WithMailer wires transactional email dispatch.
func WithMailer(m Mailer) Option {
	return func(c *Coordinator) {
		c.mailer = m
	}
}

// SignIn authenticates with email and password. The resulting
// SIGNED_IN event drives reconciliation; callers observe the outcome
// through Subscribe rather than a return value.
func (c *Coordinator) SignIn(ctx context.Context, address, password string) error {
	if err := c.requireProvider(); err != nil {
		return err
	}
	if !email.IsValidAddress(address) {
		return domainerrors.New(domainerrors.CodeValidation, fmt.Sprintf("invalid email address %q", address))
	}
	if _, err := c.provider.SignIn(ctx, address, password); err != nil {
		return err
	}
	c.clearDepartureFlags()
	return nil
}

// SignUp registers a new account. First and last name travel as
// provider metadata so the backend can provision the profile row; a
// verification email is dispatched on success.
func (c *Coordinator) SignUp(ctx context.Context, address, password, firstName, lastName string) error {
	if err := c.requireProvider(); err != nil {
		return err
	}
	if !email.IsValidAddress(address) {
		return domainerrors.New(domainerrors.CodeValidation, fmt.Sprintf("invalid email address %q", address))
	}
	if len(password) < 6 {
		return domainerrors.New(domainerrors.CodeValidation, "password must be at least 6 characters")
	}
	if firstName == "" {
		firstName = email.DeriveNameFromAddress(address)
	}
	metadata := map[string]string{
		"first_name": firstName,
		"last_name":  lastName,
	}
	if _, err := c.provider.SignUp(ctx, address, password, metadata); err != nil {
		return err
	}
	c.clearDepartureFlags()
	if c.mailer != nil {
		c.mailer.SendAsync(email.KindVerification, address)
	}
	return nil
}

// SignOut persists the explicit-departure flag before calling the
// provider, so a crash between the two still leaves the next launch
// signed out.
func (c *Coordinator) SignOut(ctx context.Context) error {
	if err := c.requireProvider(); err != nil {
		return err
	}
	if err := c.flags.SetUserSignedOut(true); err != nil {
		c.logger.Warn("signed-out flag not persisted", "error", err)
	}
	return c.provider.SignOut(ctx)
}

// RequestPasswordReset starts the recovery flow for the given address.
func (c *Coordinator) RequestPasswordReset(ctx context.Context, address string) error {
	if err := c.requireProvider(); err != nil {
		return err
	}
	if !email.IsValidAddress(address) {
		return domainerrors.New(domainerrors.CodeValidation, fmt.Sprintf("invalid email address %q", address))
	}
	if err := c.provider.RequestPasswordReset(ctx, address); err != nil {
		return err
	}
	if c.mailer != nil {
		c.mailer.SendAsync(email.KindPasswordReset, address)
	}
	return nil
}

// UpdatePassword sets a new password for the authenticated user.
func (c *Coordinator) UpdatePassword(ctx context.Context, newPassword string) error {
	if err := c.requireProvider(); err != nil {
		return err
	}
	if len(newPassword) < 6 {
		return domainerrors.New(domainerrors.CodeValidation, "password must be at least 6 characters")
	}
	return c.provider.UpdatePassword(ctx, newPassword)
}

// DeleteAccount marks the account deleted locally, dispatches the
// confirmation email, and signs out. The persisted flag guarantees a
// lingering token can never resurrect the account on a later launch.
func (c *Coordinator) DeleteAccount(ctx context.Context) error {
	if err := c.requireProvider(); err != nil {
		return err
	}
	state := c.CurrentState()
	if state.User == nil {
		return domainerrors.New(domainerrors.CodeUnauthorized, "no authenticated user")
	}
	if err := c.flags.SetAccountDeleted(true); err != nil {
		c.logger.Warn("account-deleted flag not persisted", "error", err)
	}
	if c.mailer != nil {
		c.mailer.SendAsync(email.KindDeletionConfirmation, state.User.Email)
	}
	return c.provider.SignOut(ctx)
}

func (c *Coordinator) requireProvider() error {
	if c.provider == nil {
		return domainerrors.New(domainerrors.CodeInternal, "no identity provider configured")
	}
	return nil
}

// clearDepartureFlags resets the flags that keep a launch signed out.
// A successful authentication supersedes both.
func (c *Coordinator) clearDepartureFlags() {
	if err := c.flags.SetUserSignedOut(false); err != nil {
		c.logger.Warn("signed-out flag not cleared", "error", err)
	}
	if err := c.flags.SetAccountDeleted(false); err != nil {
		c.logger.Warn("account-deleted flag not cleared", "error", err)
	}
}
