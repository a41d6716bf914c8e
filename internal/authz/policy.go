// Package authz decides who may review registrations.  Every admin route
// consults the same Policy, so the rule lives in one place.
package authz

import (
    "strings"

    "github.com/iliyamo/fest-registration/internal/model"
)

// Principal is the authenticated caller as seen by the policy.  Role must
// come from the stored account, never from a client-supplied claim.
type Principal struct {
    UserID string
    Email  string
    Role   string
}

// Policy reports whether a principal may act as a reviewer.
type Policy interface {
    CanReview(p Principal) bool
}

// RolePolicy grants review rights to a fixed set of account roles.  Roles
// are compared case-insensitively.
type RolePolicy struct {
    roles map[string]struct{}
}

// NewRolePolicy builds the policy.  With no roles it admits ADMIN only.
func NewRolePolicy(roles ...string) *RolePolicy {
    if len(roles) == 0 {
        roles = []string{model.RoleAdmin}
    }
    set := make(map[string]struct{}, len(roles))
    for _, r := range roles {
        r = strings.ToUpper(strings.TrimSpace(r))
        if r != "" {
            set[r] = struct{}{}
        }
    }
    return &RolePolicy{roles: set}
}

// CanReview implements Policy.
func (p *RolePolicy) CanReview(pr Principal) bool {
    if pr.UserID == "" {
        return false
    }
    _, ok := p.roles[strings.ToUpper(strings.TrimSpace(pr.Role))]
    return ok
}
