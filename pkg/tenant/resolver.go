package tenant

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/vendata-inc/vendata-engine/pkg/apperrors"
)

const (
	// IdentityHeader carries the opaque tenant identity.
	IdentityHeader = "X-Tenant-ID"
	// DescriptorHeader carries the connection descriptor payload, either as
	// plain JSON or base64-encoded JSON.
	DescriptorHeader = "X-Tenant-Connection"

	defaultPort   = 5432
	defaultSchema = "public"
)

// Resolver parses tenant identity and connection descriptors from request
// headers. It performs no I/O; a nil descriptor with nil error means the
// request is not tenant-scoped and the default connection applies.
type Resolver struct{}

// NewResolver creates a Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve extracts a tenant Descriptor from request headers.
//
// Returns (nil, nil) when no tenant headers are present. Returns a non-nil
// error wrapping apperrors.ErrTenantDescriptor when the payload is present
// but unusable; callers must log it and fall back to the default connection
// rather than aborting the request.
func (r *Resolver) Resolve(headers http.Header) (*Descriptor, error) {
	identity := strings.TrimSpace(headers.Get(IdentityHeader))
	payload := strings.TrimSpace(headers.Get(DescriptorHeader))

	if identity == "" && payload == "" {
		return nil, nil
	}
	if identity == "" {
		return nil, fmt.Errorf("%w: %s header present without %s", apperrors.ErrTenantDescriptor, DescriptorHeader, IdentityHeader)
	}
	if payload == "" {
		return nil, fmt.Errorf("%w: %s header present without %s", apperrors.ErrTenantDescriptor, IdentityHeader, DescriptorHeader)
	}

	raw := []byte(payload)
	if !strings.HasPrefix(payload, "{") {
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: payload is neither JSON nor base64: %v", apperrors.ErrTenantDescriptor, err)
		}
		raw = decoded
	}

	var desc Descriptor
	if err := json.Unmarshal(raw, &desc); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrTenantDescriptor, err)
	}

	desc.TenantID = identity
	if desc.Port == 0 {
		desc.Port = defaultPort
	}
	if desc.Schema == "" {
		desc.Schema = defaultSchema
	}

	if desc.Host == "" || desc.Database == "" || desc.User == "" {
		return nil, fmt.Errorf("%w: host, database and user are required", apperrors.ErrTenantDescriptor)
	}

	return &desc, nil
}
