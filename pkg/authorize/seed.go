package authorize

import (
	"context"
	"fmt"
	"log/slog"
)

// Baseline policy tables. Clinic and user rows use the wildcard domain
// because the role itself is granted per domain; the matcher then binds
// the rule to whichever clinic or user domain the subject holds the
// role in.
var (
	defaultSysPolicies = []PermissionPolicy{
		// SuperAdmin: god mode
		{RoleSysSuperAdmin, DomainSys, WildcardResource, WildcardAction, EffectAllow},

		// SysAdmin: manage platform accounts and tenants, but not RBAC
		{RoleSysAdmin, DomainSys, ResourceUser, ActionManage, EffectAllow},
		{RoleSysAdmin, DomainSys, ResourceClinic, ActionManage, EffectAllow},
		{RoleSysAdmin, DomainSys, ResourceClinicMember, ActionManage, EffectAllow},
		{RoleSysAdmin, DomainSys, ResourceAudit, ActionRead, EffectAllow},

		// SysSupport: read-only for troubleshooting
		{RoleSysSupport, DomainSys, ResourceUser, ActionRead, EffectAllow},
		{RoleSysSupport, DomainSys, ResourceClinic, ActionRead, EffectAllow},
		{RoleSysSupport, DomainSys, ResourceConsultationRequest, ActionRead, EffectAllow},
	}

	defaultClinicPolicies = []PermissionPolicy{
		// Owner: full control within the clinic
		{RoleClinicOwner, WildcardDomain, ResourceClinic, ActionManage, EffectAllow},
		{RoleClinicOwner, WildcardDomain, ResourceClinicMember, ActionManage, EffectAllow},
		{RoleClinicOwner, WildcardDomain, ResourceClient, ActionManage, EffectAllow},
		{RoleClinicOwner, WildcardDomain, ResourceClientRelation, ActionManage, EffectAllow},
		{RoleClinicOwner, WildcardDomain, ResourceClientFile, ActionManage, EffectAllow},
		{RoleClinicOwner, WildcardDomain, ResourceExternalPayer, ActionManage, EffectAllow},
		{RoleClinicOwner, WildcardDomain, ResourceConsultationRequest, ActionManage, EffectAllow},
		{RoleClinicOwner, WildcardDomain, ResourceTimeSlot, ActionManage, EffectAllow},
		{RoleClinicOwner, WildcardDomain, ResourceAppointment, ActionManage, EffectAllow},
		{RoleClinicOwner, WildcardDomain, ResourceDocumentTemplate, ActionManage, EffectAllow},
		{RoleClinicOwner, WildcardDomain, ResourceDocument, ActionManage, EffectAllow},
		{RoleClinicOwner, WildcardDomain, ResourceNotification, ActionManage, EffectAllow},
		{RoleClinicOwner, WildcardDomain, ResourceRBAC, ActionGrant, EffectAllow},
		{RoleClinicOwner, WildcardDomain, ResourceRBAC, ActionRevoke, EffectAllow},

		// Admin: manage clinic content but not membership or RBAC
		{RoleClinicAdmin, WildcardDomain, ResourceClinic, ActionUpdate, EffectAllow},
		{RoleClinicAdmin, WildcardDomain, ResourceClinicMember, ActionRead, EffectAllow},
		{RoleClinicAdmin, WildcardDomain, ResourceClient, ActionManage, EffectAllow},
		{RoleClinicAdmin, WildcardDomain, ResourceClientRelation, ActionManage, EffectAllow},
		{RoleClinicAdmin, WildcardDomain, ResourceClientFile, ActionManage, EffectAllow},
		{RoleClinicAdmin, WildcardDomain, ResourceExternalPayer, ActionManage, EffectAllow},
		{RoleClinicAdmin, WildcardDomain, ResourceConsultationRequest, ActionManage, EffectAllow},
		{RoleClinicAdmin, WildcardDomain, ResourceTimeSlot, ActionManage, EffectAllow},
		{RoleClinicAdmin, WildcardDomain, ResourceAppointment, ActionManage, EffectAllow},
		{RoleClinicAdmin, WildcardDomain, ResourceDocumentTemplate, ActionManage, EffectAllow},
		{RoleClinicAdmin, WildcardDomain, ResourceDocument, ActionManage, EffectAllow},
		{RoleClinicAdmin, WildcardDomain, ResourceNotification, ActionRead, EffectAllow},

		// Clinician: works with their caseload
		{RoleClinicClinician, WildcardDomain, ResourceClient, ActionRead, EffectAllow},
		{RoleClinicClinician, WildcardDomain, ResourceClient, ActionUpdate, EffectAllow},
		{RoleClinicClinician, WildcardDomain, ResourceClientRelation, ActionCreate, EffectAllow},
		{RoleClinicClinician, WildcardDomain, ResourceClientRelation, ActionRead, EffectAllow},
		{RoleClinicClinician, WildcardDomain, ResourceClientRelation, ActionDelete, EffectAllow},
		{RoleClinicClinician, WildcardDomain, ResourceClientFile, ActionCreate, EffectAllow},
		{RoleClinicClinician, WildcardDomain, ResourceClientFile, ActionRead, EffectAllow},
		{RoleClinicClinician, WildcardDomain, ResourceExternalPayer, ActionRead, EffectAllow},
		{RoleClinicClinician, WildcardDomain, ResourceConsultationRequest, ActionRead, EffectAllow},
		{RoleClinicClinician, WildcardDomain, ResourceConsultationRequest, ActionUpdate, EffectAllow},
		{RoleClinicClinician, WildcardDomain, ResourceTimeSlot, ActionManage, EffectAllow},
		{RoleClinicClinician, WildcardDomain, ResourceAppointment, ActionManage, EffectAllow},
		{RoleClinicClinician, WildcardDomain, ResourceDocument, ActionCreate, EffectAllow},
		{RoleClinicClinician, WildcardDomain, ResourceDocument, ActionRead, EffectAllow},
		{RoleClinicClinician, WildcardDomain, ResourceNotification, ActionRead, EffectAllow},

		// Assistant: front-desk work, no payer management
		{RoleClinicAssistant, WildcardDomain, ResourceClient, ActionCreate, EffectAllow},
		{RoleClinicAssistant, WildcardDomain, ResourceClient, ActionRead, EffectAllow},
		{RoleClinicAssistant, WildcardDomain, ResourceClient, ActionUpdate, EffectAllow},
		{RoleClinicAssistant, WildcardDomain, ResourceClientRelation, ActionCreate, EffectAllow},
		{RoleClinicAssistant, WildcardDomain, ResourceClientRelation, ActionRead, EffectAllow},
		{RoleClinicAssistant, WildcardDomain, ResourceConsultationRequest, ActionManage, EffectAllow},
		{RoleClinicAssistant, WildcardDomain, ResourceTimeSlot, ActionRead, EffectAllow},
		{RoleClinicAssistant, WildcardDomain, ResourceAppointment, ActionCreate, EffectAllow},
		{RoleClinicAssistant, WildcardDomain, ResourceAppointment, ActionRead, EffectAllow},
		{RoleClinicAssistant, WildcardDomain, ResourceAppointment, ActionUpdate, EffectAllow},
		{RoleClinicAssistant, WildcardDomain, ResourceNotification, ActionRead, EffectAllow},

		// Billing: payers and claims, read-only on the rest
		{RoleClinicBilling, WildcardDomain, ResourceExternalPayer, ActionManage, EffectAllow},
		{RoleClinicBilling, WildcardDomain, ResourceExternalPayer, ActionExport, EffectAllow},
		{RoleClinicBilling, WildcardDomain, ResourceClient, ActionRead, EffectAllow},
		{RoleClinicBilling, WildcardDomain, ResourceAppointment, ActionRead, EffectAllow},
		{RoleClinicBilling, WildcardDomain, ResourceDocument, ActionRead, EffectAllow},
	}

	defaultUserPolicies = []PermissionPolicy{
		// UserSelf: full control over own resources
		{RoleUserSelf, WildcardDomain, ResourceUser, ActionManage, EffectAllow},
		{RoleUserSelf, WildcardDomain, ResourceAuthSession, ActionManage, EffectAllow},
		{RoleUserSelf, WildcardDomain, ResourceOTP, ActionManage, EffectAllow},
		{RoleUserSelf, WildcardDomain, ResourceNotification, ActionRead, EffectAllow},
		{RoleUserSelf, WildcardDomain, ResourceNotification, ActionUpdate, EffectAllow},
	}
)

// SeedDefaultPolicies writes the baseline tables into the policy store.
// Seeding is idempotent; AddPermission reports false for rows that
// already exist.
func SeedDefaultPolicies(ctx context.Context, auth IAuthorization) error {
	var added int
	for _, table := range [][]PermissionPolicy{defaultSysPolicies, defaultClinicPolicies, defaultUserPolicies} {
		for _, p := range table {
			ok, err := auth.AddPermission(ctx, p.Subject, p.Domain, p.Object, p.Action, p.Effect)
			if err != nil {
				return fmt.Errorf("seed policy %s/%s/%s/%s: %w", p.Subject, p.Domain, p.Object, p.Action, err)
			}
			if ok {
				added++
			}
		}
	}
	slog.InfoContext(ctx, "seeded default authorization policies", "added", added)
	return nil
}

// AssignUserSelfRole grants a user control of their private domain.
// Called once at registration.
func AssignUserSelfRole(ctx context.Context, auth IAuthorization, userID string) error {
	_, err := auth.AddRoleForUserInDomain(ctx, GroupSubject(userID), RoleUserSelf, UserDomain(userID))
	return err
}

// AssignClinicOwnerRole grants the owner role for one clinic. Called
// when the clinic is created.
func AssignClinicOwnerRole(ctx context.Context, auth IAuthorization, userID, clinicID string) error {
	_, err := auth.AddRoleForUserInDomain(ctx, GroupSubject(userID), RoleClinicOwner, ClinicDomain(clinicID))
	return err
}

// AssignClinicRole grants role inside one clinic. Roles outside the
// clinic set are rejected.
func AssignClinicRole(ctx context.Context, auth IAuthorization, userID, clinicID string, role Role) error {
	if _, ok := clinicRoles[role]; !ok {
		return fmt.Errorf("%w: %q is not a clinic role", ErrInvalidArgs, role)
	}
	_, err := auth.AddRoleForUserInDomain(ctx, GroupSubject(userID), role, ClinicDomain(clinicID))
	return err
}

// RemoveClinicRole revokes role inside one clinic.
func RemoveClinicRole(ctx context.Context, auth IAuthorization, userID, clinicID string, role Role) error {
	_, err := auth.RemoveRoleForUserInDomain(ctx, GroupSubject(userID), role, ClinicDomain(clinicID))
	return err
}

// GetClinicRoles lists the roles a user holds in one clinic.
func GetClinicRoles(ctx context.Context, auth IAuthorization, userID, clinicID string) ([]Role, error) {
	return auth.GetRolesForUserInDomain(ctx, GroupSubject(userID), ClinicDomain(clinicID))
}

// AssignSystemRole grants a platform role in the sys domain. The
// migrate command uses it to bootstrap the first superadmin.
func AssignSystemRole(ctx context.Context, auth IAuthorization, userID string, role Role) error {
	switch role {
	case RoleSysSuperAdmin, RoleSysAdmin, RoleSysSupport:
	default:
		return fmt.Errorf("%w: %q is not a system role", ErrInvalidArgs, role)
	}
	_, err := auth.AddRoleForUserInDomain(ctx, GroupSubject(userID), role, DomainSys)
	return err
}

// RemoveSystemRole revokes a platform role in the sys domain.
func RemoveSystemRole(ctx context.Context, auth IAuthorization, userID string, role Role) error {
	_, err := auth.RemoveRoleForUserInDomain(ctx, GroupSubject(userID), role, DomainSys)
	return err
}
