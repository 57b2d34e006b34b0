package model

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Settings are the process-wide presentation settings. They are read-only
// once a session has started.
type Settings struct {
	Debug      bool       `mapstructure:"debug"`
	Preload    bool       `mapstructure:"preload"` // accepted for compatibility; not used by the navigator
	Primary    string     `mapstructure:"primary" validate:"required"`
	Transition Transition `mapstructure:"transition" validate:"transition"`
	SwipePath  string     `mapstructure:"swipe-path" validate:"required"`
	LockNav    bool       `mapstructure:"lock-nav"`
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		Primary:    DefaultPrimary,
		Transition: DefaultTransition,
		SwipePath:  DefaultSwipePath,
		LockNav:    DefaultLockNav,
	}
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator with the custom "transition" rule registered.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("transition", func(fl validator.FieldLevel) bool {
			_, err := ParseTransition(fl.Field().String())
			return err == nil
		})
	})
	return validate
}

// Validate checks the settings and normalizes the transition spelling.
func (s *Settings) Validate() error {
	if err := Validator().Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	t, _ := ParseTransition(string(s.Transition))
	s.Transition = t
	return nil
}
