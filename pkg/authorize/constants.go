package authorize

import (
	"strings"

	"github.com/google/uuid"
)

// The typed vocabulary below is the full set of strings allowed into the
// policy store. Enforcement rejects anything outside it, so a typo in a
// call site fails loudly instead of silently denying.

type (
	Action   string
	Resource string
	Role     string
	Domain   string
)

func set[T comparable](vs ...T) map[T]struct{} {
	m := make(map[T]struct{}, len(vs))
	for _, v := range vs {
		m[v] = struct{}{}
	}
	return m
}

// ---- Actions ----

const (
	WildcardAction Action = "*"

	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionList   Action = "list"

	// ActionManage covers every other action on a resource.
	ActionManage Action = "manage"

	ActionArchive Action = "archive"
	ActionAssign  Action = "assign"
	ActionExport  Action = "export"

	ActionGrant  Action = "grant"
	ActionRevoke Action = "revoke"
)

var KnownActions = set(
	ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionList,
	ActionManage,
	ActionArchive, ActionAssign, ActionExport,
	ActionGrant, ActionRevoke,
)

// ---- Resources ----

const (
	WildcardResource Resource = "*"

	// Identity / auth
	ResourceUser        Resource = "user"
	ResourceAuthSession Resource = "auth_session"
	ResourceOTP         Resource = "otp"

	// Clinic (tenant management)
	ResourceClinic       Resource = "clinic"
	ResourceClinicMember Resource = "clinic_member"

	// Client records
	ResourceClient         Resource = "client"
	ResourceClientRelation Resource = "client_relation"
	ResourceClientFile     Resource = "client_file"

	// Coverage / billing
	ResourceExternalPayer Resource = "external_payer"

	// Intake
	ResourceConsultationRequest Resource = "consultation_request"

	// Scheduling
	ResourceTimeSlot    Resource = "time_slot"
	ResourceAppointment Resource = "appointment"

	// Documents
	ResourceDocumentTemplate Resource = "document_template"
	ResourceDocument         Resource = "document"

	// Communication
	ResourceNotification Resource = "notification"

	// Platform administration
	ResourceAudit  Resource = "audit"
	ResourceRBAC   Resource = "rbac"
	ResourceSystem Resource = "system"
)

var KnownResources = set(
	ResourceUser, ResourceAuthSession, ResourceOTP,
	ResourceClinic, ResourceClinicMember,
	ResourceClient, ResourceClientRelation, ResourceClientFile,
	ResourceExternalPayer,
	ResourceConsultationRequest,
	ResourceTimeSlot, ResourceAppointment,
	ResourceDocumentTemplate, ResourceDocument,
	ResourceNotification,
	ResourceAudit, ResourceRBAC, ResourceSystem,
)

// ---- Roles ----

const (
	WildcardRole Role = "*"

	// Platform roles (domain = sys)
	RoleSysSuperAdmin Role = "role:sys:superadmin"
	RoleSysAdmin      Role = "role:sys:admin"
	RoleSysSupport    Role = "role:sys:support"

	// Clinic roles (domain = clinic:<uuid>)
	RoleClinicOwner     Role = "role:clinic:owner"
	RoleClinicAdmin     Role = "role:clinic:admin"
	RoleClinicClinician Role = "role:clinic:clinician"
	RoleClinicAssistant Role = "role:clinic:assistant"
	RoleClinicBilling   Role = "role:clinic:billing"

	// Private user scope (domain = user:<uuid>)
	RoleUserSelf Role = "role:user:self"
)

var KnownRoles = set(
	RoleSysSuperAdmin, RoleSysAdmin, RoleSysSupport,
	RoleClinicOwner, RoleClinicAdmin, RoleClinicClinician,
	RoleClinicAssistant, RoleClinicBilling,
	RoleUserSelf,
)

// clinicRoles are the roles assignable inside a clinic domain.
var clinicRoles = set(
	RoleClinicOwner, RoleClinicAdmin, RoleClinicClinician,
	RoleClinicAssistant, RoleClinicBilling,
)

// RoleDisplayNamesFR carries the French labels shown in clinic
// dashboards.
var RoleDisplayNamesFR = map[Role]string{
	RoleSysSuperAdmin:   "super-administrateur",
	RoleSysAdmin:        "administrateur de la plateforme",
	RoleSysSupport:      "soutien technique",
	RoleClinicOwner:     "propriétaire de la clinique",
	RoleClinicAdmin:     "administrateur",
	RoleClinicClinician: "clinicien",
	RoleClinicAssistant: "adjoint administratif",
	RoleClinicBilling:   "facturation",
	RoleUserSelf:        "utilisateur",
}

// Clinic member role strings as stored in clinic_members.role.
const (
	ClinicMemberRoleOwner     = "owner"
	ClinicMemberRoleAdmin     = "admin"
	ClinicMemberRoleClinician = "clinician"
	ClinicMemberRoleAssistant = "assistant"
	ClinicMemberRoleBilling   = "billing"
)

// ClinicMemberRoleToRBACRole maps DB role values to policy roles.
var ClinicMemberRoleToRBACRole = map[string]Role{
	ClinicMemberRoleOwner:     RoleClinicOwner,
	ClinicMemberRoleAdmin:     RoleClinicAdmin,
	ClinicMemberRoleClinician: RoleClinicClinician,
	ClinicMemberRoleAssistant: RoleClinicAssistant,
	ClinicMemberRoleBilling:   RoleClinicBilling,
}

// ---- Domains ----

const (
	DomainSys      Domain = "sys"
	WildcardDomain Domain = "*"
)

const (
	domainPrefixClinic = "clinic:"
	domainPrefixUser   = "user:"
)

// ClinicDomain scopes policies to one clinic tenant.
func ClinicDomain(clinicID string) Domain {
	return Domain(domainPrefixClinic + clinicID)
}

// UserDomain scopes policies to one user's private resources.
func UserDomain(userID string) Domain {
	return Domain(domainPrefixUser + userID)
}

// IsValidDomain accepts sys, the wildcard, and prefixed tenant domains
// carrying a well-formed UUID.
func IsValidDomain(d Domain) bool {
	switch d {
	case DomainSys, WildcardDomain:
		return true
	}
	s := string(d)
	for _, prefix := range []string{domainPrefixClinic, domainPrefixUser} {
		if id, ok := strings.CutPrefix(s, prefix); ok {
			return uuid.Validate(id) == nil
		}
	}
	return false
}

// ---- Casbin tuple helpers ----

// PolicyEffect is the eft column of a p row.
type PolicyEffect string

const (
	EffectAllow PolicyEffect = "allow"
	EffectDeny  PolicyEffect = "deny"
)

// GroupSubject is the g.sub column: a concrete principal, normally a
// user id.
type GroupSubject string

// PermissionPolicy mirrors one p row: p, sub(role), dom, obj, act, eft.
type PermissionPolicy struct {
	Subject Role
	Domain  Domain
	Object  Resource
	Action  Action
	Effect  PolicyEffect // allow or deny
}
