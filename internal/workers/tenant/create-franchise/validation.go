// internal/workers/tenant/create-franchise/validation.go
package createfranchise

import (
	"fmt"
	"strings"

	"pos-workers/internal/models"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

func validateInput(input *Input) error {
	if input == nil {
		return fmt.Errorf("%w: input cannot be nil", ErrValidationFailed)
	}
	input.Name = strings.TrimSpace(input.Name)
	input.ContactEmail = strings.ToLower(strings.TrimSpace(input.ContactEmail))
	if input.Plan == "" {
		input.Plan = models.PlanBasic
	}

	err := validation.ValidateStruct(input,
		validation.Field(&input.ActingUserID, validation.Required),
		validation.Field(&input.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&input.ContactEmail, is.EmailFormat),
		validation.Field(&input.Plan, validation.In(models.PlanBasic, models.PlanPremium, models.PlanEnterprise)),
		validation.Field(&input.CommissionRate, validation.Min(0.0), validation.Max(100.0)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	return nil
}
