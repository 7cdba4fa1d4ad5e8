package plugin

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/agentic-research/loom/api"
)

// validate is shared by every plugin config. Field names in errors come
// from the json tag, matching the keys blueprint authors actually write.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeConfig lowers the loose config map into a plugin's typed config
// struct and validates it. The returned field errors are empty when the
// config is usable.
func decodeConfig(cfg map[string]any, out any) []api.FieldError {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return []api.FieldError{{Field: "config", Message: err.Error()}}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return []api.FieldError{{Field: "config", Message: err.Error()}}
	}
	if err := validate.Struct(out); err != nil {
		fieldErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return []api.FieldError{{Field: "config", Message: err.Error()}}
		}
		errs := make([]api.FieldError, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			errs = append(errs, api.FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
		}
		return errs
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "alphanum":
		return "must contain only letters and digits"
	case "url":
		return "must be a valid URL"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// validateConfig is the shared Validate implementation: decode into a
// fresh copy of the zero config and report per-field problems.
func validateConfig(cfg map[string]any, zero func() any) api.ValidationResult {
	if errs := decodeConfig(cfg, zero()); len(errs) > 0 {
		return api.Invalid(errs...)
	}
	return api.Valid()
}
