package authorize

import (
	"testing"

	"github.com/google/uuid"
)

func TestDomainBuilders(t *testing.T) {
	id := uuid.NewString()

	if got, want := ClinicDomain(id), Domain("clinic:"+id); got != want {
		t.Errorf("ClinicDomain(%s) = %q, want %q", id, got, want)
	}
	if got, want := UserDomain(id), Domain("user:"+id); got != want {
		t.Errorf("UserDomain(%s) = %q, want %q", id, got, want)
	}
	if !IsValidDomain(ClinicDomain(id)) || !IsValidDomain(UserDomain(id)) {
		t.Error("built domains must validate")
	}
}

func TestIsValidDomain(t *testing.T) {
	valid := []Domain{
		DomainSys,
		WildcardDomain,
		ClinicDomain(uuid.NewString()),
		UserDomain(uuid.NewString()),
	}
	for _, d := range valid {
		if !IsValidDomain(d) {
			t.Errorf("IsValidDomain(%q) = false, want true", d)
		}
	}

	invalid := []Domain{
		"",
		"clinic",
		"clinic:",
		"clinic:not-a-uuid",
		"user:",
		"hospital:" + Domain(uuid.NewString()),
	}
	for _, d := range invalid {
		if IsValidDomain(d) {
			t.Errorf("IsValidDomain(%q) = true, want false", d)
		}
	}
}

// The role tables feed dashboards and membership sync; a role missing
// from one of them surfaces here instead of in production.
func TestRoleTablesAreComplete(t *testing.T) {
	for role := range KnownRoles {
		if RoleDisplayNamesFR[role] == "" {
			t.Errorf("role %q has no French display name", role)
		}
	}
	for memberRole, role := range ClinicMemberRoleToRBACRole {
		if _, ok := KnownRoles[role]; !ok {
			t.Errorf("member role %q maps to unknown role %q", memberRole, role)
		}
		if _, ok := clinicRoles[role]; !ok {
			t.Errorf("member role %q maps outside the clinic role set", memberRole)
		}
	}
	for role := range clinicRoles {
		if _, ok := KnownRoles[role]; !ok {
			t.Errorf("clinic role %q missing from KnownRoles", role)
		}
	}
}
