package squeeze

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the structured claim set decoded from a credential. Supabase
// custom-auth hooks put authorization data in app_metadata and profile data
// in user_metadata; both are optional and degrade to defaults.
type Claims struct {
	jwt.RegisteredClaims
	Email        string         `json:"email,omitempty"`
	AppMetadata  map[string]any `json:"app_metadata,omitempty"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
}

// SubjectID returns the token subject.
func (c *Claims) SubjectID() string {
	return c.RegisteredClaims.Subject
}

// Role returns the role from app_metadata, defaulting to RoleUser so a
// well-formed-but-incomplete token still yields a minimal-privilege principal.
func (c *Claims) Role() RoleLevel {
	if role, ok := ParseRole(c.appMetaString("role")); ok {
		return role
	}
	return RoleUser
}

// OrganizationID returns the tenant id from app_metadata, or "".
func (c *Claims) OrganizationID() string {
	return c.appMetaString("organization_id")
}

// ProfileID returns the profile id from app_metadata, falling back to the
// token subject when absent.
func (c *Claims) ProfileID() string {
	if id := c.appMetaString("profile_id"); id != "" {
		return id
	}
	return c.SubjectID()
}

// FirstName returns the given name from user_metadata; "name" is the
// fallback key some identity providers use.
func (c *Claims) FirstName() string {
	if v := c.userMetaString("first_name"); v != "" {
		return v
	}
	return c.userMetaString("name")
}

// LastName returns the family name from user_metadata.
func (c *Claims) LastName() string {
	return c.userMetaString("last_name")
}

// EmailAddress prefers the top-level email claim, falling back to
// user_metadata for providers that only populate the nested object.
func (c *Claims) EmailAddress() string {
	if c.Email != "" {
		return c.Email
	}
	return c.userMetaString("email")
}

// ProfileImage returns the avatar URL, checking the keys providers actually
// populate in order of preference.
func (c *Claims) ProfileImage() string {
	for _, key := range []string{"profile_image", "avatar_url", "picture"} {
		if v := c.userMetaString(key); v != "" {
			return v
		}
	}
	return ""
}

// Expires returns the expiration time, zero when the token has none.
func (c *Claims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// Principal derives the authorized identity used by the rest of the request.
func (c *Claims) Principal() Principal {
	return Principal{
		SubjectID:      c.SubjectID(),
		Role:           c.Role(),
		OrganizationID: c.OrganizationID(),
	}
}

func (c *Claims) appMetaString(key string) string {
	return metaString(c.AppMetadata, key)
}

func (c *Claims) userMetaString(key string) string {
	return metaString(c.UserMetadata, key)
}

func metaString(meta map[string]any, key string) string {
	if meta == nil {
		return ""
	}
	if v, ok := meta[key].(string); ok {
		return v
	}
	return ""
}

// Principal is the authenticated identity plus resolved role and tenant,
// owned exclusively by the request's lifetime.
type Principal struct {
	SubjectID      string    `json:"subject_id"`
	Role           RoleLevel `json:"role"`
	OrganizationID string    `json:"organization_id,omitempty"`
}

// IsAtLeast checks the principal's role against a minimum level.
func (p Principal) IsAtLeast(minRole RoleLevel) bool {
	return p.Role.IsAtLeast(minRole)
}
