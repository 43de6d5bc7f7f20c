package rbac

import (
	"reflect"
	"testing"

	"github.com/aims-admin/backend/internal/models"
	"github.com/google/uuid"
)

func perm(name string, active bool) models.Permission {
	return models.Permission{ID: uuid.New(), Name: name, IsActive: active}
}

func direct(p models.Permission, granted bool) models.UserPermissionRow {
	return models.UserPermissionRow{
		UserPermission: models.UserPermission{PermissionID: p.ID, Granted: granted},
		Permission:     p,
	}
}

func names(eps []models.EffectivePermission) []string {
	out := make([]string, 0, len(eps))
	for _, ep := range eps {
		out = append(out, ep.Name)
	}
	return out
}

func TestMergeEffective(t *testing.T) {
	read := perm("roles.read", true)
	update := perm("roles.update", true)
	audit := perm("audit.read", true)
	legacy := perm("legacy.export", false)

	tests := []struct {
		name            string
		roleLayer       []models.Permission
		direct          []models.UserPermissionRow
		includeInactive bool
		want            []string
	}{
		{"empty", nil, nil, false, []string{}},
		{"role only", []models.Permission{read, update}, nil, false, []string{"roles.read", "roles.update"}},
		{"duplicate role grants collapse", []models.Permission{read, read, update, read}, nil, false, []string{"roles.read", "roles.update"}},
		{"direct deny revokes role grant", []models.Permission{read, update}, []models.UserPermissionRow{direct(update, false)}, false, []string{"roles.read"}},
		{"direct grant adds", []models.Permission{read}, []models.UserPermissionRow{direct(audit, true)}, false, []string{"audit.read", "roles.read"}},
		{"direct deny without role grant is a no-op", []models.Permission{read}, []models.UserPermissionRow{direct(audit, false)}, false, []string{"roles.read"}},
		{"inactive filtered", []models.Permission{read, legacy}, nil, false, []string{"roles.read"}},
		{"inactive included on request", []models.Permission{read, legacy}, nil, true, []string{"legacy.export", "roles.read"}},
		{"direct deny wins even with include inactive", []models.Permission{legacy}, []models.UserPermissionRow{direct(legacy, false)}, true, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := names(MergeEffective(tt.roleLayer, tt.direct, tt.includeInactive))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMergeEffective_Source(t *testing.T) {
	read := perm("roles.read", true)
	got := MergeEffective([]models.Permission{read}, []models.UserPermissionRow{direct(read, true)}, false)
	if len(got) != 1 {
		t.Fatalf("got %d entries, want 1", len(got))
	}
	if got[0].Source != models.PermissionSourceDirect {
		t.Errorf("source = %q, want direct", got[0].Source)
	}

	got = MergeEffective([]models.Permission{read}, nil, false)
	if got[0].Source != models.PermissionSourceRole {
		t.Errorf("source = %q, want role", got[0].Source)
	}
}

func TestMatches(t *testing.T) {
	p := models.Permission{Name: "users.update", Module: "users", Action: "update"}
	if !Matches(p, "users", "update") {
		t.Error("module/action should match")
	}
	if Matches(p, "users", "read") {
		t.Error("different action should not match")
	}

	byName := models.Permission{Name: "reports.export"}
	if !Matches(byName, "reports", "export") {
		t.Error("canonical name should match")
	}
}

func TestBuiltinPermissionNames(t *testing.T) {
	seen := map[string]bool{}
	for _, p := range BuiltinPermissions {
		if p.Name != PermissionName(p.Module, p.Action) {
			t.Errorf("%s does not follow module.action", p.Name)
		}
		if seen[p.Name] {
			t.Errorf("duplicate builtin %s", p.Name)
		}
		seen[p.Name] = true
	}
}
