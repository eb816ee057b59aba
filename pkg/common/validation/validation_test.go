package validation

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/vnykmshr/metricbus/pkg/common/errors"
)

func TestChecks(t *testing.T) {
	var nilWriter *bytes.Buffer
	var nilMap map[string]int
	var nilFunc func()

	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{"positive capacity", ValidatePositive("pool", "capacity", 64), false},
		{"zero capacity", ValidatePositive("pool", "capacity", 0), true},
		{"negative capacity", ValidatePositive("pool", "capacity", -3), true},

		{"zero period", ValidateNonNegativeDuration("periodic", "period", 0), false},
		{"positive period", ValidateNonNegativeDuration("periodic", "period", time.Second), false},
		{"negative period", ValidateNonNegativeDuration("periodic", "period", -time.Nanosecond), true},

		{"writer", ValidateNotNil("console", "out", io.Discard), false},
		{"untyped nil", ValidateNotNil("console", "out", nil), true},
		{"typed nil pointer", ValidateNotNil("console", "out", nilWriter), true},
		{"nil map", ValidateNotNil("test", "m", nilMap), true},
		{"nil func", ValidateNotNil("test", "f", nilFunc), true},
		{"zero int is not nil", ValidateNotNil("test", "n", 0), false},

		{"name", ValidateNotEmpty("bus", "name", "cpu"), false},
		{"empty name", ValidateNotEmpty("bus", "name", ""), true},
		{"whitespace name", ValidateNotEmpty("bus", "name", " "), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.wantErr {
				if tt.err != nil {
					t.Fatalf("unexpected error: %v", tt.err)
				}
				return
			}
			if tt.err == nil {
				t.Fatal("expected an error")
			}
			if !errors.IsValidationError(tt.err) {
				t.Errorf("expected *ValidationError, got %T", tt.err)
			}
		})
	}
}

func TestErrorNamesModuleAndField(t *testing.T) {
	err := ValidatePositive("pool", "capacity", 0)
	for _, want := range []string{"pool", "capacity", "must be positive"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}

	err = ValidateNotNil("sinks", "meter", nil)
	if !strings.Contains(err.Error(), "provide a valid meter") {
		t.Errorf("error %q is missing the hint", err)
	}
}
