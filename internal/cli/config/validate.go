package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/leapstack-labs/leapphon/pkg/core"
)

// configValidate checks struct tags. Field names in errors are koanf keys.
var configValidate *validator.Validate

func init() {
	configValidate = validator.New(validator.WithRequiredStructEnabled())
	configValidate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("koanf"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = configValidate.RegisterValidation("featurevalue", validateFeatureValue)
}

// validateFeatureValue accepts the ternary feature values.
func validateFeatureValue(fl validator.FieldLevel) bool {
	switch core.FeatureValue(fl.Field().String()) {
	case core.Plus, core.Minus, core.Zero:
		return true
	}
	return false
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	err := configValidate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// describe renders one validation failure using the config key path.
func describe(fe validator.FieldError) string {
	// Namespace is "Config.export.host"; drop the struct name.
	key := fe.Namespace()
	if i := strings.IndexByte(key, '.'); i >= 0 {
		key = key[i+1:]
	}

	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", key)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", key, fe.Param(), fe.Value())
	case "min":
		return fmt.Sprintf("%s must be at least %s", key, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", key, fe.Param())
	case "excluded_without":
		return fmt.Sprintf("%s requires %s", key, strings.ToLower(fe.Param()))
	case "featurevalue":
		return fmt.Sprintf("%s must be one of [+ - 0], got %q", key, fe.Value())
	default:
		return fmt.Sprintf("%s failed %s", key, fe.Tag())
	}
}
