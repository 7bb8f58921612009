// Package validate performs client-side form validation so malformed input
// never reaches the network layer.
package validate

import (
	"errors"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	v     *govalidator.Validate
	trans ut.Translator
)

func init() {
	v = govalidator.New()

	// Use the JSON tag for field names in messages.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, trans)
}

// Struct validates dst by its `validate` tags. On failure it returns a map
// of field name to a human-readable message.
func Struct(dst interface{}) map[string]string {
	err := v.Struct(dst)
	if err == nil {
		return nil
	}

	fields := make(map[string]string)
	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields[fe.Field()] = fe.Translate(trans)
		}
		return fields
	}
	fields["detail"] = err.Error()
	return fields
}

// Describe flattens a field error map into one user-facing line per field,
// in a stable order.
func Describe(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(fields[k])
	}
	return b.String()
}
