// Package validation maps raw user input onto normalized book and bookshelf
// records, reporting problems per field.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/drallgood/bookshelf/internal/models"
)

// FieldErrors maps a field name (as used on the wire) to a user facing message
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+fe[k])
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func (fe FieldErrors) add(field, msg string) {
	if _, exists := fe[field]; !exists {
		fe[field] = msg
	}
}

func (fe FieldErrors) err() error {
	if len(fe) == 0 {
		return nil
	}
	return fe
}

// AsFieldErrors extracts FieldErrors from err
func AsFieldErrors(err error) (FieldErrors, bool) {
	var fe FieldErrors
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func instance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		mustRegister(v, "genre", func(fl validator.FieldLevel) bool {
			return models.Genre(fl.Field().String()).Valid()
		})
		mustRegister(v, "language", func(fl validator.FieldLevel) bool {
			return models.Language(fl.Field().String()).Valid()
		})
		mustRegister(v, "status", func(fl validator.FieldLevel) bool {
			return models.Status(fl.Field().String()).Valid()
		})
		validate = v
	})
	return validate
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// check runs the struct validator and converts its result into FieldErrors
func check(s interface{}, fe FieldErrors) {
	err := instance().Struct(s)
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fe.add("_", err.Error())
		return
	}
	for _, ve := range verrs {
		fe.add(ve.Field(), message(ve))
	}
}

func message(fe validator.FieldError) string {
	numeric := false
	switch fe.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Float32, reflect.Float64:
		numeric = true
	}

	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if numeric {
			return "must be at least " + fe.Param()
		}
		return "must be at least " + fe.Param() + " characters"
	case "max":
		if numeric {
			return "must be at most " + fe.Param()
		}
		return "must be at most " + fe.Param() + " characters"
	case "url":
		return "must be a valid URL"
	case "isbn13":
		return "must be a valid ISBN-13"
	case "datetime":
		return "must be a date (YYYY-MM-DD)"
	case "genre":
		return "must be one of " + joinGenres()
	case "language":
		return "must be one of " + joinLanguages()
	case "status":
		return "must be one of " + joinStatuses()
	}
	return "is invalid"
}

func joinGenres() string {
	return joinEnum(models.Genres)
}

func joinLanguages() string {
	return joinEnum(models.Languages)
}

func joinStatuses() string {
	return joinEnum(models.Statuses)
}

func joinEnum[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}

// ValidateInput validates an already typed book, e.g. one read from an import file
func ValidateInput(input models.BookInput) error {
	fe := FieldErrors{}
	check(input, fe)
	checkDates(input.StartedAt, input.FinishedAt, fe)
	return fe.err()
}

// ValidatePatch validates a partial update
func ValidatePatch(patch models.BookPatch) error {
	fe := FieldErrors{}
	if patch.Empty() {
		fe.add("_", "nothing to update")
		return fe
	}
	check(patch, fe)
	checkDates(patch.StartedAt, patch.FinishedAt, fe)
	return fe.err()
}

// ValidateBookshelf validates a bookshelf create or rename payload
func ValidateBookshelf(input models.BookshelfInput) error {
	fe := FieldErrors{}
	check(input, fe)
	return fe.err()
}

func checkDates(started, finished *models.Date, fe FieldErrors) {
	if started != nil && finished != nil && finished.Before(started.Time) {
		fe.add("finishedAt", "must not be before the start date")
	}
}
