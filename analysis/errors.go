package analysis

import "github.com/goliatone/go-errors"

var (
	// ErrBadScopeParameter flags an analysis request whose scope or tuning
	// parameters fail validation.
	ErrBadScopeParameter = errors.New("invalid analysis scope parameters", errors.CategoryValidation).
		WithTextCode("BAD_SCOPE_PARAMETER")
)

func badScope(err error, meta map[string]any) error {
	return errors.Wrap(err, errors.CategoryValidation, ErrBadScopeParameter.Message).
		WithTextCode(ErrBadScopeParameter.TextCode).
		WithMetadata(meta)
}
