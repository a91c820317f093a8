package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/geocoder89/fintrack/internal/domain/transaction"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	invalidBodyMessage = "Cuerpo de solicitud inválido"
	allFieldsRequired  = "Todos los campos son requeridos"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := v.RegisterValidation("trimmed_min", trimmedMin); err != nil {
			panic(err)
		}
	}
}

// trimmedMin is min=N counted in runes after trimming surrounding spaces.
func trimmedMin(fl validator.FieldLevel) bool {
	n, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return utf8.RuneCountInString(strings.TrimSpace(fl.Field().String())) >= n
}

// fieldMessages are the sentences shown to users, keyed by "<json field>.<rule>".
var fieldMessages = map[string]string{
	"type.required":       allFieldsRequired,
	"amount.required":     allFieldsRequired,
	"concept.required":    allFieldsRequired,
	"date.required":       allFieldsRequired,
	"type.oneof":          "Tipo debe ser INCOME o EXPENSE",
	"amount.gt":           "El monto debe ser mayor a 0",
	"concept.trimmed_min": "El concepto debe tener al menos 3 caracteres",
	"name.required":       "El nombre debe tener al menos 2 caracteres",
	"name.trimmed_min":    "El nombre debe tener al menos 2 caracteres",
	"email.required":      "El email debe ser válido",
	"email.contains":      "El email debe ser válido",
	"role.oneof":          "El rol debe ser USER o ADMIN",
}

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

// BindJSON binds and validates the body, answering 400 with per-field details
// on failure. The flat error is the first field's user-facing sentence.
func BindJSON(ctx *gin.Context, out interface{}) bool {
	err := ctx.ShouldBindJSON(out)

	if err != nil {
		message, details := parseBindError(err, out)
		RespondBadRequest(ctx, message, details)

		return false
	}

	return true
}

func parseBindError(err error, out interface{}) (string, gin.H) {
	rootType := baseStructType(out)

	// validator errors (struct bind tags)

	var validatorError validator.ValidationErrors

	if errors.As(err, &validatorError) {
		message := invalidBodyMessage
		fields := make([]FieldError, 0, len(validatorError))

		for i, fieldError := range validatorError {
			field := jsonFieldName(rootType, fieldError.StructField())
			rule := fieldError.Tag()
			param := fieldError.Param()

			msg, known := validationMessage(field, rule, param)
			if i == 0 && known {
				message = msg
			}

			fields = append(fields, FieldError{
				Field:   field,
				Rule:    rule,
				Param:   param,
				Message: msg,
			})
		}
		return message, gin.H{"fields": fields}
	}

	if errors.Is(err, transaction.ErrInvalidAmount) {
		return "Monto inválido", gin.H{"fields": []FieldError{{
			Field:   "amount",
			Rule:    "amount",
			Message: fmt.Sprintf("debe ser un número positivo de hasta %s", transaction.MaxAmount),
		}}}
	}

	// in the event of bad json

	var syntaxError *json.SyntaxError

	if errors.As(err, &syntaxError) {
		return invalidBodyMessage, gin.H{"json": "invalid_json_syntax"}
	}

	// in the event of a type mismatch; Field is already the JSON key path

	var unmatchedTypeError *json.UnmarshalTypeError

	if errors.As(err, &unmatchedTypeError) {
		field := strings.TrimSpace(unmatchedTypeError.Field)

		return invalidBodyMessage, gin.H{
			"json":  "invalid_json_type",
			"field": field,
			"fields": []FieldError{
				{
					Field:   field,
					Rule:    "type",
					Message: fmt.Sprintf("debe ser de tipo %s", unmatchedTypeError.Type.String()),
				},
			},
		}
	}

	// final fallback if the error could not be deciphered
	return invalidBodyMessage, gin.H{"reason": err.Error()}
}

func baseStructType(v interface{}) reflect.Type {
	t := reflect.TypeOf(v)

	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t != nil && t.Kind() == reflect.Struct {
		return t
	}

	return nil
}

// jsonFieldName maps a Go field of the bound struct to its json (or form) key.
// Request bodies here are flat.
func jsonFieldName(rootType reflect.Type, structField string) string {
	if rootType == nil {
		return structField
	}

	sf, ok := rootType.FieldByName(structField)
	if !ok {
		return structField
	}

	for _, key := range []string{"json", "form"} {
		name, _, _ := strings.Cut(sf.Tag.Get(key), ",")
		if name != "" && name != "-" {
			return name
		}
	}

	return sf.Name
}

// validationMessage reports whether the sentence is a domain one or the
// generic fallback.
func validationMessage(field, rule, param string) (string, bool) {
	if msg, ok := fieldMessages[field+"."+rule]; ok {
		return msg, true
	}

	switch rule {
	case "required":
		return "es requerido", false
	case "email":
		return "debe ser un email válido", false
	case "min", "trimmed_min":
		return "debe tener al menos " + param, false
	case "max":
		return "debe tener como máximo " + param, false
	case "oneof":
		return "debe ser uno de " + strings.ReplaceAll(param, " ", ", "), false
	default:
		if param != "" {
			return fmt.Sprintf("no cumple la validación %s (%s)", rule, param), false
		}
		return "no cumple la validación " + rule, false
	}
}
