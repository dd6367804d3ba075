package core

import "strings"

// Capability is a single resource/action grant carried by a token.
type Capability struct {
	Resource    string         `json:"resource"`
	Actions     []string       `json:"actions"`
	Constraints map[string]any `json:"constraints,omitempty"`
}

// Allows reports whether the grant covers the given action.
func (c Capability) Allows(action string) bool {
	for _, a := range c.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// CapabilityToken is a consumed credential naming a tenant, a subject and a
// set of resource/action grants. Tokens are issued elsewhere; FlowMesh only
// verifies and reads them.
type CapabilityToken struct {
	Subject      string       `json:"sub"`
	TenantID     string       `json:"tenant_id"`
	Capabilities []Capability `json:"capabilities"`
}

// Allows reports whether any grant matches the resource exactly and includes
// the action.
func (t *CapabilityToken) Allows(resource, action string) bool {
	for _, c := range t.Capabilities {
		if c.Resource == resource && c.Allows(action) {
			return true
		}
	}
	return false
}

// Covers reports whether at least one grant's resource is a prefix of the
// required "resource.action" capability string. Used when validating an
// agent's declared capability requirements at workflow creation.
func (t *CapabilityToken) Covers(required string) bool {
	for _, c := range t.Capabilities {
		if strings.HasPrefix(required, c.Resource) {
			return true
		}
	}
	return false
}
