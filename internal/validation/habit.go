// Package validation sanitizes and checks user input before it reaches the habit engine
// or the database.
package validation

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/3grands/habitflow/internal/constants"
	apperrors "github.com/3grands/habitflow/internal/errors"
	"github.com/3grands/habitflow/internal/models"
	"github.com/3grands/habitflow/internal/utils"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := RegisterTags(v); err != nil {
		panic(err)
	}
	return v
}

// RegisterTags adds the habit tags (not_empty, category, frequency, hhmm) to v. The API
// registers them on gin's binding engine so `binding` struct tags can use them.
func RegisterTags(v *validator.Validate) error {
	tags := map[string]validator.Func{
		"not_empty": func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		},
		"category": func(fl validator.FieldLevel) bool {
			return constants.IsValidCategory(constants.Category(fl.Field().String()))
		},
		"frequency": func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			return s == "" || constants.IsValidFrequency(constants.Frequency(s))
		},
		"hhmm": func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			return s == "" || utils.ValidateTimeFormat(s)
		},
	}
	for tag, fn := range tags {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("failed to register %s validation: %w", tag, err)
		}
	}
	return nil
}

// Validator returns the shared validator with the habit tags registered.
func Validator() *validator.Validate {
	return validate
}

// Struct validates v and converts tag failures into a single validation error.
func Struct(v interface{}) error {
	return FieldErrors(validate.Struct(v))
}

// FieldErrors converts a validator failure into a single validation error. Other
// error becomes a validation error carrying its message.
func FieldErrors(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !apperrors.As(err, &fieldErrs) {
		return apperrors.Validation("%v", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s: %s", strings.ToLower(fe.Field()), FormatFieldError(fe)))
	}
	return apperrors.Validation("%s", strings.Join(msgs, "; "))
}

// FormatFieldError renders a validator failure as a short message.
func FormatFieldError(err validator.FieldError) string {
	switch err.Tag() {
	case "required", "not_empty":
		return "this field is required"
	case "min", "gte":
		return "value is too small"
	case "max", "lte":
		return "value is too large"
	case "category":
		return "unknown category"
	case "frequency":
		return "frequency must be daily or weekly"
	case "hhmm":
		return "time must be HH:MM"
	case "datetime":
		return "date must be YYYY-MM-DD"
	default:
		return "invalid value"
	}
}

// NormalizeNewHabit sanitizes the text fields of a new habit, fills defaults, and
// checks every field.
func NormalizeNewHabit(in models.NewHabit) (models.NewHabit, error) {
	in.Name = SanitizeText(in.Name, constants.MaxNameLength)
	in.Unit = SanitizeText(in.Unit, constants.MaxUnitLength)
	if in.Frequency == "" {
		in.Frequency = constants.FrequencyDaily
	}
	if in.Goal == 0 {
		in.Goal = constants.DefaultGoal
	}
	if in.Unit == "" {
		in.Unit = constants.DefaultUnit
	}
	if in.ReminderTime != nil && strings.TrimSpace(*in.ReminderTime) == "" {
		in.ReminderTime = nil
	}

	if in.Name == "" {
		return in, apperrors.Validation("name is required")
	}
	if !constants.IsValidCategory(in.Category) {
		return in, apperrors.Validation("unknown category %q", in.Category)
	}
	if !constants.IsValidFrequency(in.Frequency) {
		return in, apperrors.Validation("frequency must be daily or weekly")
	}
	if in.Goal < 1 {
		return in, apperrors.Validation("goal must be at least 1")
	}
	if in.ReminderTime != nil && !utils.ValidateTimeFormat(*in.ReminderTime) {
		return in, apperrors.Validation("reminder time must be HH:MM")
	}
	return in, nil
}

// UpdatableFields is the allowlist of habit attributes a partial update may set.
var UpdatableFields = map[string]bool{
	"name":         true,
	"category":     true,
	"frequency":    true,
	"goal":         true,
	"unit":         true,
	"streak":       true,
	"reminderTime": true,
	"isActive":     true,
}

// BuildHabitUpdate turns a raw JSON object into a typed update. Keys outside the
// allowlist are ignored; an update that sets nothing is rejected.
func BuildHabitUpdate(fields map[string]json.RawMessage) (models.HabitUpdate, error) {
	var u models.HabitUpdate

	keys := make([]string, 0, len(fields))
	for k := range fields {
		if UpdatableFields[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		raw := fields[k]
		var err error
		switch k {
		case "name":
			var name string
			if err = json.Unmarshal(raw, &name); err == nil {
				name = SanitizeText(name, constants.MaxNameLength)
				if name == "" {
					return u, apperrors.Validation("name is required")
				}
				u.Name = &name
			}
		case "category":
			var c constants.Category
			if err = json.Unmarshal(raw, &c); err == nil {
				if !constants.IsValidCategory(c) {
					return u, apperrors.Validation("unknown category %q", c)
				}
				u.Category = &c
			}
		case "frequency":
			var f constants.Frequency
			if err = json.Unmarshal(raw, &f); err == nil {
				if !constants.IsValidFrequency(f) {
					return u, apperrors.Validation("frequency must be daily or weekly")
				}
				u.Frequency = &f
			}
		case "goal":
			var g int
			if err = json.Unmarshal(raw, &g); err == nil {
				if g < 1 {
					return u, apperrors.Validation("goal must be at least 1")
				}
				u.Goal = &g
			}
		case "unit":
			var unit string
			if err = json.Unmarshal(raw, &unit); err == nil {
				unit = SanitizeText(unit, constants.MaxUnitLength)
				if unit == "" {
					unit = constants.DefaultUnit
				}
				u.Unit = &unit
			}
		case "streak":
			var s int
			if err = json.Unmarshal(raw, &s); err == nil {
				if s < 0 {
					return u, apperrors.Validation("streak cannot be negative")
				}
				u.Streak = &s
			}
		case "reminderTime":
			var rt *string
			if err = json.Unmarshal(raw, &rt); err == nil {
				empty := ""
				if rt == nil {
					rt = &empty
				}
				if *rt != "" && !utils.ValidateTimeFormat(*rt) {
					return u, apperrors.Validation("reminder time must be HH:MM")
				}
				u.ReminderTime = rt
			}
		case "isActive":
			var active bool
			if err = json.Unmarshal(raw, &active); err == nil {
				u.IsActive = &active
			}
		}
		if err != nil {
			return u, apperrors.Validation("invalid value for %s", k)
		}
	}

	if u.IsEmpty() {
		return u, apperrors.Validation("no valid fields to update")
	}
	return u, nil
}

// ValidateMood checks a mood value and sanitizes its note.
func ValidateMood(mood int, note string) (string, error) {
	if mood < 1 || mood > 5 {
		return "", apperrors.Validation("mood must be between 1 and 5")
	}
	return SanitizeText(note, constants.MaxMoodNoteChars), nil
}
