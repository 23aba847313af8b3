package squeeze

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-router"
)

// WrappedTokenPrefix marks the base64 session envelope encoding Supabase
// helpers write into the Authorization header and auth cookies.
const WrappedTokenPrefix = "base64-"

const bearerScheme = "Bearer"

// CredentialSource is a closed set of transport locations a credential can
// come from. Decoding switches exhaustively on it.
type CredentialSource int

const (
	// SourceHeaderWrapped is an Authorization value carrying the wrapped-token marker.
	SourceHeaderWrapped CredentialSource = iota + 1
	// SourceHeaderBearer is a standard "Authorization: Bearer <token>" value.
	SourceHeaderBearer
	// SourceHeaderRaw is an Authorization value with no scheme.
	SourceHeaderRaw
	// SourceCookie is a recognized auth cookie.
	SourceCookie
)

func (s CredentialSource) String() string {
	switch s {
	case SourceHeaderWrapped:
		return "header-wrapped"
	case SourceHeaderBearer:
		return "header-bearer"
	case SourceHeaderRaw:
		return "header-raw"
	case SourceCookie:
		return "cookie"
	default:
		return "unknown"
	}
}

// Credential is a raw token plus where it was found. It lives for the
// duration of one request and is discarded after decoding.
type Credential struct {
	Raw        string
	Source     CredentialSource
	CookieName string
}

// CookieLookup returns the value of a named cookie, or "" when absent.
type CookieLookup func(name string) string

// CredentialResolver locates a raw credential among the transport locations
// in fixed priority order: wrapped-marker header, Bearer header, raw header,
// then recognized cookies. It performs pure lookups and never decodes.
type CredentialResolver struct {
	cookieNames []string
}

// NewCredentialResolver builds a resolver recognizing the standard Supabase
// cookie names plus the project-scoped "sb-{ref}-auth-token" cookie when a
// project ref is configured.
func NewCredentialResolver(projectRef string, extraCookies ...string) *CredentialResolver {
	names := []string{"sb-access-token", "supabase-access-token"}
	if projectRef != "" {
		names = append(names, fmt.Sprintf("sb-%s-auth-token", projectRef))
	}
	names = append(names, extraCookies...)
	return &CredentialResolver{cookieNames: names}
}

// Resolve returns the first credential present. The second return is false
// when no credential was found; that is not an error, callers decide whether
// authentication is mandatory for the route.
func (r *CredentialResolver) Resolve(authorization string, cookies CookieLookup) (Credential, bool) {
	header := strings.TrimSpace(authorization)

	if strings.HasPrefix(header, WrappedTokenPrefix) {
		return Credential{Raw: header, Source: SourceHeaderWrapped}, true
	}

	l := len(bearerScheme)
	if len(header) > l+1 && strings.EqualFold(header[:l], bearerScheme) && header[l] == ' ' {
		token := strings.TrimSpace(header[l:])
		if token != "" {
			if strings.HasPrefix(token, WrappedTokenPrefix) {
				return Credential{Raw: token, Source: SourceHeaderWrapped}, true
			}
			return Credential{Raw: token, Source: SourceHeaderBearer}, true
		}
	}

	if header != "" && !strings.EqualFold(header, bearerScheme) {
		return Credential{Raw: header, Source: SourceHeaderRaw}, true
	}

	if cookies != nil {
		for _, name := range r.cookieNames {
			if val := cookies(name); val != "" {
				return Credential{Raw: val, Source: SourceCookie, CookieName: name}, true
			}
		}
	}

	return Credential{}, false
}

// ResolveFromContext adapts Resolve to a router request context.
func (r *CredentialResolver) ResolveFromContext(ctx router.Context) (Credential, bool) {
	return r.Resolve(ctx.GetString(router.HeaderAuthorization, ""), func(name string) string {
		return ctx.Cookies(name)
	})
}

// CookieNames exposes the recognized cookie set, mainly for logging at startup.
func (r *CredentialResolver) CookieNames() []string {
	out := make([]string, len(r.cookieNames))
	copy(out, r.cookieNames)
	return out
}
