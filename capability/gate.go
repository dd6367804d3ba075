package capability

import (
	"fmt"

	"github.com/flowmesh/flowmesh/core"
	"github.com/flowmesh/flowmesh/logging"
)

// Gate authenticates raw capability tokens and checks their grants before
// any orchestrator mutation. All failures surface as *core.AuthorizationError
// so callers can distinguish "not authorized" from "not found".
type Gate struct {
	codec  *Codec
	logger logging.Logger
}

// GateOptions configure optional Gate collaborators.
type GateOptions struct {
	Logger logging.Logger
}

// NewGate creates a Gate around the given token codec.
func NewGate(codec *Codec, optFns ...func(o *GateOptions)) *Gate {
	opts := GateOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Gate{codec: codec, logger: opts.Logger}
}

// Authenticate decodes and verifies a raw token string.
func (g *Gate) Authenticate(raw string) (*core.CapabilityToken, error) {
	token, err := g.codec.Decode(raw)
	if err != nil {
		g.logger.Warn("token authentication failed", "error", err.Error())
		return nil, err
	}
	return token, nil
}

// Verify checks that the token carries a grant matching the resource exactly
// and including the action.
func (g *Gate) Verify(token *core.CapabilityToken, resource, action string) error {
	if token.Allows(resource, action) {
		return nil
	}
	return &core.AuthorizationError{
		Subject:  token.Subject,
		TenantID: token.TenantID,
		Resource: resource,
		Action:   action,
		Reason:   "no matching capability grant",
	}
}

// VerifyTenant enforces tenant isolation: the token's tenant must match the
// tenant owning the target resource.
func (g *Gate) VerifyTenant(token *core.CapabilityToken, tenantID string) error {
	if token.TenantID == tenantID {
		return nil
	}
	return &core.AuthorizationError{
		Subject:  token.Subject,
		TenantID: token.TenantID,
		Reason:   fmt.Sprintf("token tenant %q does not own the resource", token.TenantID),
	}
}

// VerifyAgentRequirements checks that every capability an agent definition
// declares is covered by at least one grant whose resource prefix matches.
func (g *Gate) VerifyAgentRequirements(token *core.CapabilityToken, agents []core.AgentDefinition) error {
	for _, def := range agents {
		for _, required := range def.CapabilitiesRequired {
			if !token.Covers(required) {
				return &core.AuthorizationError{
					Subject:  token.Subject,
					TenantID: token.TenantID,
					Resource: required,
					Reason:   fmt.Sprintf("agent %q requires capability %q", def.AgentID, required),
				}
			}
		}
	}
	return nil
}
