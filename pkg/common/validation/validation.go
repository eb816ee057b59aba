package validation

import (
	"reflect"
	"time"

	mberrors "github.com/vnykmshr/metricbus/pkg/common/errors"
)

// ValidatePositive rejects value <= 0.
func ValidatePositive(module, field string, value int) error {
	if value > 0 {
		return nil
	}
	return mberrors.NewValidationError(module, field, value, "must be positive").
		WithHint("value must be greater than 0")
}

// ValidateNonNegativeDuration rejects negative durations. Zero usually means
// "disabled" or "use the default" to the caller.
func ValidateNonNegativeDuration(module, field string, value time.Duration) error {
	if value >= 0 {
		return nil
	}
	return mberrors.NewValidationError(module, field, value, "cannot be negative").
		WithHint("use 0 to disable or a positive duration")
}

// ValidateNotNil rejects nil, including typed nil pointers, maps, slices,
// channels and funcs stored in an interface.
func ValidateNotNil(module, field string, value interface{}) error {
	if !isNil(value) {
		return nil
	}
	return mberrors.NewValidationError(module, field, nil, "cannot be nil").
		WithHint("provide a valid " + field)
}

func ValidateNotEmpty(module, field string, value string) error {
	if value != "" {
		return nil
	}
	return mberrors.NewValidationError(module, field, value, "cannot be empty").
		WithHint("provide a non-empty " + field)
}

func isNil(value interface{}) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return v.IsNil()
	}
	return false
}
