package validate

import (
	"errors"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/example/ec-checkout/internal/domain"
)

var validate *validator.Validate

var translator ut.Translator

func init() {
	validate = validator.New()

	translator, _ = ut.New(en.New(), en.New()).GetTranslator("en")
	en_translations.RegisterDefaultTranslations(validate, translator)

	validate.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
		return domain.ValidID(fl.Field().String())
	})
}

// Check validates val's struct tags and returns the first failure as an
// InvalidArgument domain error.
func Check(val any) error {
	if err := validate.Struct(val); err != nil {
		var verrors validator.ValidationErrors
		if !errors.As(err, &verrors) {
			return err
		}

		if len(verrors) < 1 {
			return nil
		}

		msg := verrors[0].Translate(translator)
		if verrors[0].Tag() == "objectid" {
			msg = verrors[0].Field() + " is not a valid id"
		}
		return domain.InvalidArgument(msg)
	}

	return nil
}
