package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/listini-pricing/pkg/errors"
)

// ErrInvalidInput marks caller contract violations such as negative costs or percentages.
var ErrInvalidInput = errors.New("invalid pricing input")

func invalidInput(format string, args ...any) error {
	return pkgerrors.Wrap(pkgerrors.CodeValidation, ErrInvalidInput, fmt.Sprintf(format, args...))
}

func requireNonNegative(name string, value decimal.Decimal) error {
	if value.IsNegative() {
		return invalidInput("%s must not be negative, got %s", name, value.String())
	}
	return nil
}

// IsInvalidInput reports whether err is a caller contract violation raised by this package.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
