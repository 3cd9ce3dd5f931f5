package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks cfg's `validate:"..."` struct tags and reports every
// failing field, not just the first.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		messages := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			messages = append(messages, fmt.Sprintf("%s: failed %q validation", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("%v", messages)
	}
	return nil
}
