package squeeze

import (
	"net/http"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// DefaultPrincipalKey is the router locals key the guard stores the
// Principal under.
const DefaultPrincipalKey = "principal"

// GuardConfig configures the route guard middleware.
type GuardConfig struct {
	Resolver *CredentialResolver
	Decoder  *ClaimsDecoder

	// MinimumRole a principal needs to pass. Zero value denies everyone, so
	// unauthenticated routes simply skip the guard.
	MinimumRole RoleLevel

	// OrganizationID, when set, additionally requires tenant membership.
	OrganizationID string

	// Optional lets requests without a credential pass through without a
	// principal; decode and authorization failures still reject.
	Optional bool

	// ContextKey for router locals; DefaultPrincipalKey when empty.
	ContextKey string

	ErrorHandler func(router.Context, error) error
	Logger       Logger
}

// RouteGuard returns middleware running the full authentication chain:
// resolve credential, decode claims, authorize the derived principal, then
// expose it on both the router locals and the standard context.
func RouteGuard(cfg GuardConfig) router.MiddlewareFunc {
	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultPrincipalKey
	}
	if cfg.Logger == nil {
		cfg.Logger = defLogger{}
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = MakeJSONErrorHandler(cfg.Logger)
	}

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			cred, found := cfg.Resolver.ResolveFromContext(ctx)
			if !found {
				if cfg.Optional {
					return next(ctx)
				}
				return cfg.ErrorHandler(ctx, ErrMissingToken)
			}

			claims, err := cfg.Decoder.Decode(cred)
			if err != nil {
				cfg.Logger.Info("credential rejected",
					"source", cred.Source.String(),
					"error", err.Error(),
				)
				return cfg.ErrorHandler(ctx, err)
			}

			principal := claims.Principal()

			if err := Authorize(principal, Requirement{
				MinimumRole:    cfg.MinimumRole,
				OrganizationID: cfg.OrganizationID,
			}); err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			ctx.Locals(cfg.ContextKey, principal)
			ctx.SetContext(WithPrincipal(ctx.Context(), principal))

			return next(ctx)
		}
	}
}

// MakeJSONErrorHandler maps the error taxonomy onto JSON responses: auth
// failures are 401, authz failures 403, validation 400, operational errors
// 503, anything else 500.
func MakeJSONErrorHandler(logger Logger) func(router.Context, error) error {
	if logger == nil {
		logger = defLogger{}
	}
	return func(ctx router.Context, err error) error {
		var richErr *errors.Error
		if !errors.As(err, &richErr) {
			richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
				WithCode(errors.CodeInternal)
		}

		status := http.StatusInternalServerError
		switch richErr.Category {
		case errors.CategoryAuth:
			status = http.StatusUnauthorized
		case errors.CategoryAuthz:
			status = http.StatusForbidden
		case errors.CategoryValidation, errors.CategoryBadInput:
			status = http.StatusBadRequest
		case errors.CategoryOperation:
			status = http.StatusServiceUnavailable
		}

		logger.Info("request rejected",
			"status", status,
			"error", richErr.Message,
			"text_code", richErr.TextCode,
			"details", print.MaybePrettyJSON(richErr.Metadata),
		)

		return ctx.JSON(status, map[string]any{
			"error":     richErr.Message,
			"text_code": richErr.TextCode,
		})
	}
}
