// internal/workers/staff/approve-user/validation.go
package approveuser

import (
	"fmt"

	"pos-workers/internal/models"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// validateInput runs before any database access. An explicit staff or manager
// role needs a location here; with no role the handler checks the user's own
// role once it is loaded, still before any write.
func validateInput(input *Input) error {
	if input == nil {
		return fmt.Errorf("%w: input cannot be nil", ErrValidationFailed)
	}

	err := validation.ValidateStruct(input,
		validation.Field(&input.UserID, validation.Required),
		validation.Field(&input.ApproverID, validation.Required),
		validation.Field(&input.Role, validation.In(models.RoleAdmin, models.RoleOwner, models.RoleManager, models.RoleStaff)),
		validation.Field(&input.LocationID, validation.When(input.Role != "" && !input.Role.TenantWide(),
			validation.Required.Error("a location must be selected when approving staff or managers"))),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	return nil
}
