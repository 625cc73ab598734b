package auth

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

// RBACModel matches the role against the route template with keyMatch2 and
// the method against a regex, e.g. "(GET|POST)"
const RBACModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && keyMatch2(r.obj, p.obj) && regexMatch(r.act, p.act)
`

// DefaultPolicies are seeded on migrate and on first start
var DefaultPolicies = [][]string{
	{"role_user", "/me", "GET"},
	{"role_user", "/donations/create-order", "POST"},
	{"role_user", "/donations/capture-order", "POST"},
	{"role_user", "/donations/my-donations", "GET"},
	{"role_user", "/donations/verify/:order_id", "GET"},
	{"role_user", "/donations/:id", "GET"},
	{"role_admin", "/*", "(GET|POST|PUT|DELETE)"},
}

// CasbinService owns the enforcer backed by the casbin_rule table
type CasbinService struct{ E *casbin.Enforcer }

// NewCasbinService loads the RBAC model and the stored policies
func NewCasbinService(db *gorm.DB) (*CasbinService, error) {
	adp, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin adapter: %w", err)
	}
	m, err := model.NewModelFromString(RBACModel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse casbin model: %w", err)
	}
	e, err := casbin.NewEnforcer(m, adp)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}
	if err := e.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("failed to load casbin policy: %w", err)
	}
	return &CasbinService{E: e}, nil
}

// SeedDefaults adds any missing default policy and returns how many were added
func (s *CasbinService) SeedDefaults() (int, error) {
	added := 0
	for _, p := range DefaultPolicies {
		ok, err := s.E.AddPolicy(p[0], p[1], p[2])
		if err != nil {
			return added, fmt.Errorf("failed to seed policy %v: %w", p, err)
		}
		if ok {
			added++
		}
	}
	return added, nil
}
