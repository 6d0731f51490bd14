// Package security provides the identity and permission contracts consumed
// by the query pipeline: who is asking, and may they see a node.
package security

import (
	"slices"
	"sync"

	"github.com/2lenet/sulu/internal/model"
)

// Standard node permissions.
const (
	PermissionView   = "view"
	PermissionEdit   = "edit"
	PermissionDelete = "delete"
)

// Identity is an authenticated principal.
type Identity interface {
	Identifier() string
	Roles() []string
}

// User is the default Identity implementation.
type User struct {
	Username  string   `json:"username"`
	RoleNames []string `json:"roles"`
}

// Identifier and Roles are safe on a nil *User, which has no name and no roles.
func (u *User) Identifier() string {
	if u == nil {
		return ""
	}
	return u.Username
}

func (u *User) Roles() []string {
	if u == nil {
		return nil
	}
	return u.RoleNames
}

// Token is an authentication token. Its principal may be anything the
// authentication layer put there, e.g. an anonymous marker string.
type Token interface {
	Principal() any
}

// PrincipalToken is a Token wrapping a principal value.
type PrincipalToken struct {
	Value any
}

func (t PrincipalToken) Principal() any { return t.Value }

// TokenStorage holds the token of the current session, if any.
type TokenStorage interface {
	Token() Token
}

// MemoryTokenStorage is a TokenStorage guarded by a mutex.
type MemoryTokenStorage struct {
	mu    sync.RWMutex
	token Token
}

// NewMemoryTokenStorage creates a storage holding token (which may be nil).
func NewMemoryTokenStorage(token Token) *MemoryTokenStorage {
	return &MemoryTokenStorage{token: token}
}

// SetToken replaces the stored token.
func (s *MemoryTokenStorage) SetToken(token Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// Token returns the stored token, or nil.
func (s *MemoryTokenStorage) Token() Token {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// CurrentIdentity resolves the authenticated identity held by storage.
// It returns nil when storage is nil or holds no token, and when the
// principal is not an Identity or is a nil *User. Absence is not an error.
func CurrentIdentity(storage TokenStorage) Identity {
	if storage == nil {
		return nil
	}
	token := storage.Token()
	if token == nil {
		return nil
	}
	identity, ok := token.Principal().(Identity)
	if !ok {
		return nil
	}
	if u, isUser := identity.(*User); isUser && u == nil {
		return nil
	}
	return identity
}

// PermissionChecker decides whether identity holds permission on node.
type PermissionChecker interface {
	IsGranted(identity Identity, node *model.Node, permission string) bool
}

// ACLChecker evaluates the role entries stored on each node.
//
// An empty permission or a node without entries is always granted. A
// restricted node requires an identity having a role whose entry lists the
// permission; anonymous callers are denied.
type ACLChecker struct{}

// IsGranted implements PermissionChecker.
func (ACLChecker) IsGranted(identity Identity, node *model.Node, permission string) bool {
	if permission == "" || !node.Restricted() {
		return true
	}
	if identity == nil {
		return false
	}
	for _, role := range identity.Roles() {
		if slices.Contains(node.Permissions[role], permission) {
			return true
		}
	}
	return false
}
