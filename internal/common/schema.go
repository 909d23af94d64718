package common

import (
	"strings"

	"github.com/google/uuid"
)

// SchemaPrefix namespaces every tenant schema so tenant schemas are
// distinguishable from public and from PostgreSQL's own schemas.
const SchemaPrefix = "tenant_"

// SchemaNameFor derives the schema name for a tenant from its subdomain.
// The mapping is pure and deterministic: the same inputs always produce the
// same name, so any process can recompute it without a registry lookup.
//
// The subdomain is lowercased, '-' and '.' become '_', other characters
// outside [a-z0-9_] are dropped. A subdomain that sanitizes to nothing falls
// back to the tenant id's hex form so the name stays unique. The output is a
// valid unquoted PostgreSQL identifier, which keeps interpolated schema names
// injection-safe.
func SchemaNameFor(subdomain string, tenantID uuid.UUID) string {
	var b strings.Builder
	for _, r := range strings.ToLower(subdomain) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == '-' || r == '.':
			b.WriteByte('_')
		}
	}

	sanitized := b.String()
	if sanitized == "" {
		if tenantID != uuid.Nil {
			sanitized = strings.ReplaceAll(tenantID.String(), "-", "")
		} else {
			sanitized = "default"
		}
	}
	return SchemaPrefix + sanitized
}
