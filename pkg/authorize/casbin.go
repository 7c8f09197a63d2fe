package authorize

import (
	"cmp"
	"context"
	"errors"
	"fmt"

	casbin "github.com/casbin/casbin/v2"
)

var (
	// ErrForbidden means the request evaluated to deny.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidArgs flags values outside the typed vocabulary.
	ErrInvalidArgs = errors.New("invalid authorization arguments")
)

// IAuthorization is the only surface services and middleware depend on.
type IAuthorization interface {
	// Enforce answers: may subject perform action on object inside domain?
	Enforce(ctx context.Context, subject GroupSubject, domain Domain, object Resource, action Action) (bool, error)

	// MustEnforce returns ErrForbidden instead of a bool, for call sites
	// that just want to bail.
	MustEnforce(ctx context.Context, subject GroupSubject, domain Domain, object Resource, action Action) error

	// Grouping rules, stored as (g, subject, role, domain).
	AddRoleForUserInDomain(ctx context.Context, subject GroupSubject, role Role, domain Domain) (bool, error)
	RemoveRoleForUserInDomain(ctx context.Context, subject GroupSubject, role Role, domain Domain) (bool, error)
	GetRolesForUserInDomain(ctx context.Context, subject GroupSubject, domain Domain) ([]Role, error)

	// Policy rules, stored as (p, role, domain, object, action, eft).
	AddPermission(ctx context.Context, role Role, domain Domain, object Resource, action Action, effect PolicyEffect) (bool, error)
	RemovePermission(ctx context.Context, role Role, domain Domain, object Resource, action Action, effect PolicyEffect) (bool, error)

	Raw() *casbin.DistributedEnforcer
}

// Authorization is a thin typed wrapper around the Casbin enforcer. The
// typed Resource/Action/Role arguments keep arbitrary strings out of the
// policy store.
type Authorization struct {
	enforcer       *casbin.DistributedEnforcer
	superAdminRole Role
}

// NewAuthorization wraps an already-configured enforcer. With
// superadminBypass, holders of the sys superadmin role skip enforcement
// entirely.
func NewAuthorization(e *casbin.DistributedEnforcer, superadminBypass bool) (IAuthorization, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: enforcer is nil", ErrInvalidArgs)
	}
	if err := e.LoadPolicy(); err != nil {
		return nil, err
	}

	a := &Authorization{enforcer: e}
	if superadminBypass {
		a.superAdminRole = RoleSysSuperAdmin
	}
	return a, nil
}

func (a *Authorization) Raw() *casbin.DistributedEnforcer { return a.enforcer }

func checkSubject(s GroupSubject) error {
	if s == "" {
		return fmt.Errorf("%w: subject is empty", ErrInvalidArgs)
	}
	return nil
}

func checkDomain(d Domain) error {
	if d == "" || !IsValidDomain(d) {
		return fmt.Errorf("%w: invalid domain: %q", ErrInvalidArgs, d)
	}
	return nil
}

// checkRole also admits the wildcard, which seeding uses.
func checkRole(r Role) error {
	if r == "" {
		return fmt.Errorf("%w: role is empty", ErrInvalidArgs)
	}
	if _, ok := KnownRoles[r]; !ok && r != WildcardRole {
		return fmt.Errorf("%w: unknown role: %q", ErrInvalidArgs, r)
	}
	return nil
}

func checkObjectAction(object Resource, action Action) error {
	if object == "" {
		return fmt.Errorf("%w: object is empty", ErrInvalidArgs)
	}
	if action == "" {
		return fmt.Errorf("%w: action is empty", ErrInvalidArgs)
	}
	if _, ok := KnownResources[object]; !ok && object != WildcardResource {
		return fmt.Errorf("%w: unknown resource: %q", ErrInvalidArgs, object)
	}
	if _, ok := KnownActions[action]; !ok && action != WildcardAction {
		return fmt.Errorf("%w: unknown action: %q", ErrInvalidArgs, action)
	}
	return nil
}

func (a *Authorization) Enforce(ctx context.Context, subject GroupSubject, domain Domain, object Resource, action Action) (bool, error) {
	_ = ctx // reserved for tracing/logging later

	if err := cmp.Or(checkSubject(subject), checkDomain(domain), checkObjectAction(object, action)); err != nil {
		return false, err
	}

	if a.superAdminRole != "" &&
		a.enforcer.HasGroupingPolicy(string(subject), string(a.superAdminRole), string(DomainSys)) {
		return true, nil
	}

	allowed, matched, err := a.enforcer.EnforceEx(string(subject), string(domain), string(object), string(action))
	if err != nil {
		return false, err
	}
	if allowed || action == ActionManage {
		return allowed, nil
	}
	if len(matched) > 0 {
		// An explicit deny rule fired. The manage fallback must not
		// override it.
		return false, nil
	}

	// Nothing matched the exact action; a manage grant on the resource
	// covers every action on it.
	return a.enforcer.Enforce(string(subject), string(domain), string(object), string(ActionManage))
}

func (a *Authorization) MustEnforce(ctx context.Context, subject GroupSubject, domain Domain, object Resource, action Action) error {
	switch ok, err := a.Enforce(ctx, subject, domain, object, action); {
	case err != nil:
		return err
	case !ok:
		return ErrForbidden
	}
	return nil
}

// ---- Role grouping (g rules) ----

func (a *Authorization) AddRoleForUserInDomain(ctx context.Context, subject GroupSubject, role Role, domain Domain) (bool, error) {
	_ = ctx
	if err := cmp.Or(checkSubject(subject), checkRole(role), checkDomain(domain)); err != nil {
		return false, err
	}
	return a.enforcer.AddGroupingPolicy(string(subject), string(role), string(domain))
}

func (a *Authorization) RemoveRoleForUserInDomain(ctx context.Context, subject GroupSubject, role Role, domain Domain) (bool, error) {
	_ = ctx
	// Unknown roles are fine here; a renamed role must still be removable.
	if role == "" {
		return false, fmt.Errorf("%w: role is empty", ErrInvalidArgs)
	}
	if err := cmp.Or(checkSubject(subject), checkDomain(domain)); err != nil {
		return false, err
	}
	return a.enforcer.RemoveGroupingPolicy(string(subject), string(role), string(domain))
}

func (a *Authorization) GetRolesForUserInDomain(ctx context.Context, subject GroupSubject, domain Domain) ([]Role, error) {
	_ = ctx
	if err := cmp.Or(checkSubject(subject), checkDomain(domain)); err != nil {
		return nil, err
	}

	raw := a.enforcer.GetRolesForUserInDomain(string(subject), string(domain))
	roles := make([]Role, len(raw))
	for i, r := range raw {
		roles[i] = Role(r)
	}
	return roles, nil
}

// ---- Permission rules (p) ----

func (a *Authorization) AddPermission(ctx context.Context, role Role, domain Domain, object Resource, action Action, effect PolicyEffect) (bool, error) {
	_ = ctx
	if err := cmp.Or(checkRole(role), checkDomain(domain), checkObjectAction(object, action)); err != nil {
		return false, err
	}
	if effect != EffectAllow && effect != EffectDeny {
		return false, fmt.Errorf("%w: invalid effect: %q", ErrInvalidArgs, effect)
	}

	return a.enforcer.AddPolicy(string(role), string(domain), string(object), string(action), string(effect))
}

func (a *Authorization) RemovePermission(ctx context.Context, role Role, domain Domain, object Resource, action Action, effect PolicyEffect) (bool, error) {
	_ = ctx
	if role == "" || object == "" || action == "" || effect == "" {
		return false, fmt.Errorf("%w: empty permission fields", ErrInvalidArgs)
	}
	if err := checkDomain(domain); err != nil {
		return false, err
	}
	return a.enforcer.RemovePolicy(string(role), string(domain), string(object), string(action), string(effect))
}
