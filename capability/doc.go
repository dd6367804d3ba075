// Package capability verifies capability tokens and enforces resource/action
// grants plus tenant isolation. Tokens are issued elsewhere; this package
// only decodes, verifies and reads them. The wire format is a compact
// HS256-signed JWT carrying the token payload
// {sub, tenant_id, capabilities: [{resource, actions, constraints}]}.
package capability
