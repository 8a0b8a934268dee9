package rbac

import (
	"fmt"
	"sort"
	"strings"
)

type Role string

const (
	RoleStandard Role = "standard"
	RoleAdmin    Role = "admin"
)

// Principal is the authenticated actor issuing a request. It is supplied by
// the authentication layer and immutable for the duration of one request.
type Principal struct {
	ID        string
	Role      Role
	Resources []string
}

// Scope is the resolved set of resources one request may touch. It is built
// once at request entry and never mutated afterwards.
type Scope struct {
	members map[string]struct{}
	names   []string
}

func (s Scope) Allows(resource string) bool {
	_, ok := s.members[strings.ToLower(strings.TrimSpace(resource))]
	return ok
}

func (s Scope) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

func (s Scope) IsEmpty() bool {
	return len(s.members) == 0
}

func newScope(names []string) Scope {
	members := make(map[string]struct{}, len(names))
	ordered := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, seen := members[name]; seen {
			continue
		}
		members[name] = struct{}{}
		ordered = append(ordered, name)
	}
	sort.Strings(ordered)
	return Scope{members: members, names: ordered}
}

// Violation reports an out-of-scope resource reference, with the enforcement
// layer (1 pre-check, 3 post-check, 4 lexical) that caught it. It carries the
// resource for audit logging; user-facing messages stay categorical.
type Violation struct {
	Layer    int
	Resource string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("scope violation at layer %d: resource %q not permitted", v.Layer, v.Resource)
}
