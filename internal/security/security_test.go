package security

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/2lenet/sulu/internal/model"
)

func TestCurrentIdentity(t *testing.T) {
	alice := &User{Username: "alice", RoleNames: []string{"editor"}}

	tests := []struct {
		name    string
		storage TokenStorage
		want    Identity
	}{
		{"no storage", nil, nil},
		{"no token", NewMemoryTokenStorage(nil), nil},
		{"anonymous principal", NewMemoryTokenStorage(PrincipalToken{Value: "anon."}), nil},
		{"nil user principal", NewMemoryTokenStorage(PrincipalToken{Value: (*User)(nil)}), nil},
		{"authenticated", NewMemoryTokenStorage(PrincipalToken{Value: alice}), alice},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := CurrentIdentity(tc.storage)
			if tc.want == nil {
				// assert.Nil would accept an interface holding a nil pointer.
				assert.True(t, got == nil, "got %#v", got)
				return
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMemoryTokenStorage(t *testing.T) {
	s := NewMemoryTokenStorage(nil)
	assert.Nil(t, s.Token())

	s.SetToken(PrincipalToken{Value: &User{Username: "bob"}})
	assert.Equal(t, "bob", CurrentIdentity(s).Identifier())
}

func TestACLChecker(t *testing.T) {
	open := &model.Node{Path: "/cms/io/contents/open"}
	restricted := &model.Node{
		Path:        "/cms/io/contents/secret",
		Permissions: map[string][]string{"editor": {PermissionView, PermissionEdit}},
	}
	editor := &User{Username: "alice", RoleNames: []string{"editor"}}
	guest := &User{Username: "guest", RoleNames: []string{"guest"}}

	var checker ACLChecker
	assert.True(t, checker.IsGranted(nil, restricted, ""))
	assert.True(t, checker.IsGranted(nil, open, PermissionView))
	assert.False(t, checker.IsGranted(nil, restricted, PermissionView))
	assert.True(t, checker.IsGranted(editor, restricted, PermissionView))
	assert.False(t, checker.IsGranted(editor, restricted, PermissionDelete))
	assert.False(t, checker.IsGranted(guest, restricted, PermissionView))

	var nobody *User
	assert.Empty(t, nobody.Identifier())
	assert.False(t, checker.IsGranted(nobody, restricted, PermissionView))
	assert.True(t, checker.IsGranted(nobody, open, PermissionView))
}
