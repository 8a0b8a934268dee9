package auth

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/askdb/askdb/internal/rbac"
)

// Identity is what the authentication layer hands the pipeline: who the
// caller is, their role, and their permitted resources. The pipeline trusts
// this as already authenticated.
type Identity struct {
	PrincipalID string
	Role        rbac.Role
	Resources   []string
}

func (i Identity) Principal() rbac.Principal {
	return rbac.Principal{ID: i.PrincipalID, Role: i.Role, Resources: i.Resources}
}

type APIKeyValidator interface {
	Validate(ctx context.Context, apiKey string) (Identity, bool)
}

type StaticAPIKeyValidator struct {
	keys map[string]Identity
}

// NewStaticAPIKeyValidator parses a comma-separated spec of
// key:principal:role:res1|res2 entries. Admin entries may leave the
// resource list empty since admin implies the full catalog.
func NewStaticAPIKeyValidator(spec string) (*StaticAPIKeyValidator, error) {
	validator := &StaticAPIKeyValidator{keys: map[string]Identity{}}
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return validator, nil
	}

	for _, entry := range strings.Split(spec, ",") {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) != 4 {
			return nil, fmt.Errorf("invalid static key entry %q: expected key:principal:role:res1|res2", entry)
		}
		key := strings.TrimSpace(parts[0])
		principal := strings.TrimSpace(parts[1])
		if key == "" || principal == "" {
			return nil, fmt.Errorf("invalid static key entry %q: empty key/principal", entry)
		}

		role := rbac.Role(strings.TrimSpace(parts[2]))
		if role != rbac.RoleStandard && role != rbac.RoleAdmin {
			return nil, fmt.Errorf("invalid static key entry %q: unknown role %q", entry, role)
		}

		resources := make([]string, 0)
		for _, resource := range strings.Split(strings.TrimSpace(parts[3]), "|") {
			resource = strings.ToLower(strings.TrimSpace(resource))
			if resource == "" {
				continue
			}
			resources = append(resources, resource)
		}
		if role == rbac.RoleStandard && len(resources) == 0 {
			return nil, fmt.Errorf("invalid static key entry %q: standard role requires at least one resource", entry)
		}
		sort.Strings(resources)

		validator.keys[key] = Identity{PrincipalID: principal, Role: role, Resources: resources}
	}

	return validator, nil
}

func (v *StaticAPIKeyValidator) Validate(_ context.Context, apiKey string) (Identity, bool) {
	identity, ok := v.keys[apiKey]
	return identity, ok
}
