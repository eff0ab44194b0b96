// internal/workers/tenant/create-location/validation.go
package createlocation

import (
	"fmt"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Location codes prefix order numbers, so they stay short and alphanumeric.
var codePattern = regexp.MustCompile(`^[A-Z0-9]{1,8}$`)

func validateInput(input *Input, maxTables int) error {
	if input == nil {
		return fmt.Errorf("%w: input cannot be nil", ErrValidationFailed)
	}
	input.Name = strings.TrimSpace(input.Name)
	input.Code = strings.ToUpper(strings.TrimSpace(input.Code))

	err := validation.ValidateStruct(input,
		validation.Field(&input.ActingUserID, validation.Required),
		validation.Field(&input.FranchiseID, validation.Required),
		validation.Field(&input.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&input.Code, validation.Match(codePattern)),
		validation.Field(&input.TableCount, validation.Min(0), validation.Max(maxTables)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	return nil
}
