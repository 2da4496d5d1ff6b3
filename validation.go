package counter

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	domainErrors "github.com/reglet-dev/native-counter/domain/errors"
)

// validate caches struct metadata; share one instance.
var validate = validator.New()

func validateConfig(cfg config) error {
	if err := validate.Var(cfg.maxBulkValues, "min=1"); err != nil {
		return &domainErrors.ConfigError{Field: "max_bulk_values", Err: err}
	}
	return nil
}

// checkBulk rejects inputs the native ByMany entry points cannot take. The
// engines read the first element unconditionally, so empty input never
// reaches them.
func checkBulk(op string, values []uint32, limit int) error {
	if len(values) == 0 {
		return &domainErrors.InvalidArgumentError{Operation: op, Argument: "values", Reason: "must not be empty"}
	}
	if err := validate.Var(values, fmt.Sprintf("max=%d", limit)); err != nil {
		return &domainErrors.InvalidArgumentError{
			Operation: op,
			Argument:  "values",
			Reason:    fmt.Sprintf("length %d exceeds limit %d", len(values), limit),
		}
	}
	return nil
}
