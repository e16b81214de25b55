// Package adminapi exposes the forensics harness to operators over HTTP.
package adminapi

import (
	"context"
	"errors"

	"github.com/danielpatrickdp/quest-forensics/internal/forensics"
)

// #region roles
// Role is the operator role carried by a bearer token.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEngineer Role = "engineer"
)

// Principal is an authenticated caller.
type Principal struct {
	Subject string
	Role    Role
}

// CanRunForensics reports whether p may start a harness run.
func (p Principal) CanRunForensics() bool {
	return p.Role == RoleAdmin || p.Role == RoleEngineer
}

// #endregion roles

// #region collaborators
// Authenticator resolves the caller of a request from its bearer token.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (Principal, error)
}

// Runner executes forensics runs.
type Runner interface {
	Run(ctx context.Context, req forensics.Request) (*forensics.Run, error)
}

// #endregion collaborators

// #region errors
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

// #endregion errors
