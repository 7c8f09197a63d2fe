package authorize

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestSeedDefaultPolicies(t *testing.T) {
	auth := newTestAuthorization(t, false)
	ctx := context.Background()

	if err := SeedDefaultPolicies(ctx, auth); err != nil {
		t.Fatalf("seed: %v", err)
	}
	// Running twice must be a no-op, not an error.
	if err := SeedDefaultPolicies(ctx, auth); err != nil {
		t.Fatalf("re-seed: %v", err)
	}

	// Spot-check the seeded rules through a real role assignment.
	clinicID := uuid.NewString()
	clinic := ClinicDomain(clinicID)

	clinicianID := uuid.NewString()
	if err := AssignClinicRole(ctx, auth, clinicianID, clinicID, RoleClinicClinician); err != nil {
		t.Fatalf("assign clinician: %v", err)
	}

	checks := []struct {
		obj  Resource
		act  Action
		want bool
	}{
		{ResourceClient, ActionRead, true},
		{ResourceClient, ActionDelete, false},
		{ResourceAppointment, ActionCreate, true},
		{ResourceClinicMember, ActionUpdate, false},
		{ResourceExternalPayer, ActionRead, true},
		{ResourceExternalPayer, ActionUpdate, false},
	}
	for _, c := range checks {
		got, err := auth.Enforce(ctx, GroupSubject(clinicianID), clinic, c.obj, c.act)
		if err != nil {
			t.Fatalf("enforce %s/%s: %v", c.obj, c.act, err)
		}
		if got != c.want {
			t.Errorf("clinician %s on %s = %v, want %v", c.act, c.obj, got, c.want)
		}
	}
}

func TestAssignClinicRoleRejectsNonClinicRoles(t *testing.T) {
	auth := newTestAuthorization(t, false)
	ctx := context.Background()

	for _, role := range []Role{RoleSysAdmin, RoleUserSelf, Role("role:clinic:wizard")} {
		if err := AssignClinicRole(ctx, auth, uuid.NewString(), uuid.NewString(), role); !errors.Is(err, ErrInvalidArgs) {
			t.Errorf("AssignClinicRole(%s) error = %v, want ErrInvalidArgs", role, err)
		}
	}
}

func TestAssignUserSelfRole(t *testing.T) {
	auth := newTestAuthorization(t, false)
	ctx := context.Background()

	userID := uuid.NewString()
	if err := AssignUserSelfRole(ctx, auth, userID); err != nil {
		t.Fatalf("assign self role: %v", err)
	}

	roles, err := auth.GetRolesForUserInDomain(ctx, GroupSubject(userID), UserDomain(userID))
	if err != nil {
		t.Fatalf("get roles: %v", err)
	}
	if len(roles) != 1 || roles[0] != RoleUserSelf {
		t.Fatalf("roles = %v, want [%s]", roles, RoleUserSelf)
	}
}

func TestSystemRoleLifecycle(t *testing.T) {
	auth := newTestAuthorization(t, false)
	ctx := context.Background()

	operatorID := uuid.NewString()
	if err := AssignSystemRole(ctx, auth, operatorID, RoleSysSupport); err != nil {
		t.Fatalf("assign system role: %v", err)
	}
	roles, err := auth.GetRolesForUserInDomain(ctx, GroupSubject(operatorID), DomainSys)
	if err != nil || len(roles) != 1 || roles[0] != RoleSysSupport {
		t.Fatalf("roles = %v, %v; want [%s]", roles, err, RoleSysSupport)
	}

	if err := RemoveSystemRole(ctx, auth, operatorID, RoleSysSupport); err != nil {
		t.Fatalf("remove system role: %v", err)
	}
	if roles, _ := auth.GetRolesForUserInDomain(ctx, GroupSubject(operatorID), DomainSys); len(roles) != 0 {
		t.Fatalf("roles after removal = %v, want none", roles)
	}

	if err := AssignSystemRole(ctx, auth, operatorID, RoleClinicOwner); !errors.Is(err, ErrInvalidArgs) {
		t.Errorf("clinic role as system role error = %v, want ErrInvalidArgs", err)
	}
}
