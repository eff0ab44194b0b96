// internal/workers/order/create-order/validation.go
package createorder

import "fmt"

func validateInput(input *Input) error {
	if input == nil {
		return fmt.Errorf("%w: input cannot be nil", ErrValidationFailed)
	}
	if input.LocationID == "" {
		return fmt.Errorf("%w: locationId is required", ErrValidationFailed)
	}
	if input.ActingUserID == "" {
		return fmt.Errorf("%w: actingUserId is required", ErrValidationFailed)
	}
	if len(input.Items) == 0 {
		return fmt.Errorf("%w: at least one item is required", ErrValidationFailed)
	}
	for i, it := range input.Items {
		if it.Name == "" {
			return fmt.Errorf("%w: items[%d].name is required", ErrValidationFailed, i)
		}
		if it.Quantity < 1 {
			return fmt.Errorf("%w: items[%d].quantity must be at least 1", ErrValidationFailed, i)
		}
		if it.UnitPrice < 0 {
			return fmt.Errorf("%w: items[%d].unitPrice must not be negative", ErrValidationFailed, i)
		}
	}
	return nil
}
