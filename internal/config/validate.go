package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrUnknownAlgorithm is returned when AlgName is not one of Algorithms.
	ErrUnknownAlgorithm = errors.New("unknown inversion algorithm")
	// ErrUnknownKey is returned by Set for a key the configuration does not have.
	ErrUnknownKey = errors.New("unknown configuration key")
	// ErrInvalid wraps every other validation or parse failure.
	ErrInvalid = errors.New("invalid configuration")
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		// Report legacy key names in error messages.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks ranges, cross-field ordering and the algorithm name.
// All violations are reported together.
func (c *AnalysisConfig) Validate() error {
	err := structValidator().Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		if fe.StructField() == "AlgName" {
			errs = append(errs, fmt.Errorf("%w: %q (want one of %v)", ErrUnknownAlgorithm, c.AlgName, Algorithms))
			continue
		}
		errs = append(errs, fmt.Errorf("%w: %s must satisfy %s", ErrInvalid, fieldPath(fe), describe(fe)))
	}
	return errors.Join(errs...)
}

// fieldPath drops the leading struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gtfield", "gtefield":
		return fmt.Sprintf("%s %s (got %v)", fe.Tag(), fe.Param(), fe.Value())
	default:
		if fe.Param() == "" {
			return fmt.Sprintf("%s (got %v)", fe.Tag(), fe.Value())
		}
		return fmt.Sprintf("%s=%s (got %v)", fe.Tag(), fe.Param(), fe.Value())
	}
}
