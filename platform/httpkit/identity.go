// Package httpkit provides HTTP utilities including identity abstraction.
package httpkit

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Identity represents the authenticated user's identity.
// This interface abstracts identity extraction from the web framework,
// allowing handlers to access user information without depending on Gin.
type Identity interface {
	// UserID returns the authenticated user's ID.
	UserID() uuid.UUID
	// Roles returns the user's assigned roles.
	Roles() []string
	// HasRole checks if the user has a specific role.
	HasRole(role string) bool
	// IsAuthenticated returns true if the user is authenticated.
	IsAuthenticated() bool
}

type identity struct {
	userID        uuid.UUID
	roles         []string
	authenticated bool
}

func (i *identity) UserID() uuid.UUID { return i.userID }

func (i *identity) Roles() []string { return i.roles }

func (i *identity) HasRole(role string) bool {
	for _, r := range i.roles {
		if r == role {
			return true
		}
	}
	return false
}

func (i *identity) IsAuthenticated() bool { return i.authenticated }

// IdentityFrom extracts the authenticated identity from the gin context.
// Returns an unauthenticated identity when auth middleware did not run.
func IdentityFrom(c *gin.Context) Identity {
	id := &identity{}

	rawUserID, ok := c.Get(ContextUserIDKey)
	if !ok {
		return id
	}
	userID, ok := rawUserID.(uuid.UUID)
	if !ok {
		return id
	}

	id.userID = userID
	id.authenticated = true

	if rawRoles, ok := c.Get(ContextRolesKey); ok {
		if roles, ok := rawRoles.([]string); ok {
			id.roles = roles
		}
	}

	return id
}
