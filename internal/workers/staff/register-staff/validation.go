// internal/workers/staff/register-staff/validation.go
package registerstaff

import (
	"fmt"
	"strings"

	"pos-workers/internal/models"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// normalize trims the input and fills the default role.
func normalize(input *Input) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.DisplayName = strings.TrimSpace(input.DisplayName)
	input.Phone = strings.TrimSpace(input.Phone)
	if input.Role == "" {
		input.Role = models.RoleStaff
	}
}

func validateInput(input *Input) error {
	if input == nil {
		return fmt.Errorf("%w: input cannot be nil", ErrValidationFailed)
	}
	normalize(input)

	err := validation.ValidateStruct(input,
		validation.Field(&input.Email, validation.Required, validation.Length(3, 254), is.EmailFormat),
		validation.Field(&input.DisplayName, validation.Required, validation.Length(1, 120)),
		validation.Field(&input.Phone, validation.Length(0, 32)),
		validation.Field(&input.FranchiseID, validation.Required),
		validation.Field(&input.RequestedLocationID, validation.Required),
		validation.Field(&input.Role, validation.In(models.RoleStaff, models.RoleManager).
			Error("self-registration is limited to staff and manager")),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	return nil
}
