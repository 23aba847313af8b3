package squeeze_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	squeeze "github.com/rungchan2/squeeze-backend"
)

func TestClaimsMetadataAccessors(t *testing.T) {
	claims := &squeeze.Claims{
		Email: "top@example.com",
		AppMetadata: map[string]any{
			"role":            "admin",
			"organization_id": "org-9",
			"profile_id":      "profile-1",
		},
		UserMetadata: map[string]any{
			"first_name": "Ada",
			"last_name":  "Lovelace",
			"avatar_url": "https://example.com/a.png",
		},
	}

	assert.Equal(t, squeeze.RoleAdmin, claims.Role())
	assert.Equal(t, "org-9", claims.OrganizationID())
	assert.Equal(t, "profile-1", claims.ProfileID())
	assert.Equal(t, "Ada", claims.FirstName())
	assert.Equal(t, "Lovelace", claims.LastName())
	assert.Equal(t, "https://example.com/a.png", claims.ProfileImage())
	assert.Equal(t, "top@example.com", claims.EmailAddress())
}

func TestClaimsDefaults(t *testing.T) {
	claims := &squeeze.Claims{}

	assert.Equal(t, squeeze.RoleUser, claims.Role())
	assert.Equal(t, "", claims.OrganizationID())
	assert.Equal(t, "", claims.FirstName())
	assert.Equal(t, "", claims.EmailAddress())
	assert.True(t, claims.Expires().IsZero())
}

func TestClaimsRejectsNonStringMetadata(t *testing.T) {
	claims := &squeeze.Claims{
		AppMetadata: map[string]any{"role": 42, "organization_id": true},
	}

	assert.Equal(t, squeeze.RoleUser, claims.Role())
	assert.Equal(t, "", claims.OrganizationID())
}

func TestClaimsProfileImageFallbackOrder(t *testing.T) {
	claims := &squeeze.Claims{
		UserMetadata: map[string]any{
			"profile_image": "primary",
			"avatar_url":    "secondary",
			"picture":       "tertiary",
		},
	}
	assert.Equal(t, "primary", claims.ProfileImage())

	delete(claims.UserMetadata, "profile_image")
	assert.Equal(t, "secondary", claims.ProfileImage())

	delete(claims.UserMetadata, "avatar_url")
	assert.Equal(t, "tertiary", claims.ProfileImage())
}
