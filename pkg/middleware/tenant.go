package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/vendata-inc/vendata-engine/pkg/datasource"
	"github.com/vendata-inc/vendata-engine/pkg/logging"
	"github.com/vendata-inc/vendata-engine/pkg/tenant"
)

// TenantConnection returns middleware that resolves the tenant connection
// headers and binds the routed handle to the request context for the
// duration of the request. Requests without tenant headers, and requests
// whose descriptor cannot be resolved or routed, pass through unbound and
// fall back to the service's default connection downstream.
func TenantConnection(resolver *tenant.Resolver, binder *datasource.Binder, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			desc, err := resolver.Resolve(r.Header)
			if err != nil {
				logger.Warn("tenant descriptor rejected",
					zap.String("path", r.URL.Path),
					zap.String("error", logging.SanitizeError(err)),
				)
				next.ServeHTTP(w, r)
				return
			}
			if desc == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx, release, err := binder.Bind(r.Context(), desc)
			if err != nil {
				logger.Warn("tenant connection unavailable",
					zap.String("tenantID", desc.TenantID),
					zap.String("error", logging.SanitizeError(err)),
				)
				next.ServeHTTP(w, r)
				return
			}
			defer release()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
