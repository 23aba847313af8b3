package squeeze

import "github.com/goliatone/go-errors"

// Requirement describes what a route demands of a principal: a minimum role
// level, and optionally membership in a specific organization.
type Requirement struct {
	MinimumRole    RoleLevel
	OrganizationID string
}

// Authorize evaluates a principal against a requirement. It is stateless and
// never consults storage. Failures are distinct so callers can map them to
// the right responses.
func Authorize(principal Principal, req Requirement) error {
	if !principal.IsAtLeast(req.MinimumRole) {
		return errors.New(ErrInsufficientRole.Message, errors.CategoryAuthz).
			WithTextCode(ErrInsufficientRole.TextCode).
			WithCode(errors.CodeForbidden).
			WithMetadata(map[string]any{
				"subject_id":    principal.SubjectID,
				"role":          string(principal.Role),
				"required_role": string(req.MinimumRole),
			})
	}

	if req.OrganizationID != "" && principal.OrganizationID != req.OrganizationID {
		return errors.New(ErrOrgMismatch.Message, errors.CategoryAuthz).
			WithTextCode(ErrOrgMismatch.TextCode).
			WithCode(errors.CodeForbidden).
			WithMetadata(map[string]any{
				"subject_id":   principal.SubjectID,
				"required_org": req.OrganizationID,
			})
	}

	return nil
}
