package dataset

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/chazu/nodescope/pkg/cache"
	"github.com/chazu/nodescope/pkg/kernel"
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = validate.RegisterValidation("shape", validateShape)
	_ = validate.RegisterValidation("style", validateStyle)
}

func validateShape(fl validator.FieldLevel) bool {
	_, err := kernel.ParseShapeKind(fl.Field().String())
	return err == nil
}

func validateStyle(fl validator.FieldLevel) bool {
	_, err := cache.ParseStyle(fl.Field().String())
	return err == nil
}

// validateRecord checks a decoded record's tags and flattens the failures
// into one error.
func validateRecord(rec any) error {
	err := validate.Struct(rec)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fmt.Sprintf("%s failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value())
	}
	return errors.New(strings.Join(msgs, "; "))
}
