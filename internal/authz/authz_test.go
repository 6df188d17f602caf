package authz_test

import (
	"chatcord-backend/internal/authz"
	"chatcord-backend/internal/models"
	"testing"
)

var roles = []models.MemberRole{models.RoleGuest, models.RoleModerator, models.RoleAdmin}

var actions = []authz.Action{
	authz.SendMessage,
	authz.EditOwnMessage,
	authz.DeleteOwnMessage,
	authz.DeleteAnyMessage,
	authz.ManageChannel,
	authz.ManageMemberRole,
	authz.ManageServer,
}

func TestOwnContentActions(t *testing.T) {
	for _, role := range roles {
		for _, action := range []authz.Action{authz.SendMessage, authz.EditOwnMessage, authz.DeleteOwnMessage} {
			if !authz.Allowed(role, false, action, models.RoleGuest) {
				t.Errorf("role %s should be allowed action %d on own content", role, action)
			}
		}
	}
}

func TestModerationActions(t *testing.T) {
	tests := []struct {
		role    models.MemberRole
		allowed bool
	}{
		{models.RoleGuest, false},
		{models.RoleModerator, true},
		{models.RoleAdmin, true},
	}

	for _, tc := range tests {
		for _, action := range []authz.Action{authz.DeleteAnyMessage, authz.ManageChannel} {
			got := authz.Allowed(tc.role, false, action, models.RoleGuest)
			if got != tc.allowed {
				t.Errorf("role %s action %d: got %t, want %t", tc.role, action, got, tc.allowed)
			}
		}
	}
}

func TestManageMemberRole(t *testing.T) {
	tests := []struct {
		name    string
		actor   models.MemberRole
		isOwner bool
		target  models.MemberRole
		allowed bool
	}{
		{"guest cannot manage roles", models.RoleGuest, false, models.RoleGuest, false},
		{"moderator cannot manage roles", models.RoleModerator, false, models.RoleGuest, false},
		{"admin manages guest", models.RoleAdmin, false, models.RoleGuest, true},
		{"admin manages moderator", models.RoleAdmin, false, models.RoleModerator, true},
		{"admin cannot manage another admin", models.RoleAdmin, false, models.RoleAdmin, false},
		{"owner manages admin", models.RoleAdmin, true, models.RoleAdmin, true},
		{"owner with guest role still manages", models.RoleGuest, true, models.RoleAdmin, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := authz.Allowed(tc.actor, tc.isOwner, authz.ManageMemberRole, tc.target)
			if got != tc.allowed {
				t.Errorf("got %t, want %t", got, tc.allowed)
			}
		})
	}
}

func TestManageServerIsOwnerOnly(t *testing.T) {
	for _, role := range roles {
		if authz.Allowed(role, false, authz.ManageServer, models.RoleGuest) {
			t.Errorf("role %s must not manage the server without ownership", role)
		}
		if !authz.Allowed(role, true, authz.ManageServer, models.RoleGuest) {
			t.Errorf("owner with role %s must manage the server", role)
		}
	}
}

// Whatever a role may do, every higher role may do as well. Ownership is the
// only privilege outside the hierarchy.
func TestRoleMonotonicity(t *testing.T) {
	for _, action := range actions {
		for i, lower := range roles {
			for _, higher := range roles[i+1:] {
				for _, target := range roles {
					if authz.Allowed(lower, false, action, target) && !authz.Allowed(higher, false, action, target) {
						t.Errorf("action %d allowed for %s but denied for higher role %s (target %s)", action, lower, higher, target)
					}
				}
			}
		}
	}
}

func TestUnknownRoleDeniedEverything(t *testing.T) {
	for _, action := range actions {
		if authz.Allowed(models.MemberRole("SUPERUSER"), false, action, models.RoleGuest) {
			t.Errorf("unknown role must be denied action %d", action)
		}
	}
}
