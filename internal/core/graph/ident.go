package graph

import (
	dErrors "stategraph/pkg/domain-errors"
)

// ValidateIdentifier rejects schema- or caller-supplied names that are not
// plain identifiers. Names reaching the store as labels, property names or
// attribute names must pass through here first; values are always bound as
// parameters, never interpolated.
func ValidateIdentifier(name string) error {
	if name == "" {
		return dErrors.New(dErrors.CodeValidation, "identifier must not be empty")
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9':
			if i == 0 {
				return dErrors.Newf(dErrors.CodeValidation, "identifier %q must not start with a digit", name)
			}
		default:
			return dErrors.Newf(dErrors.CodeValidation, "identifier %q contains invalid character %q", name, r)
		}
	}
	return nil
}
