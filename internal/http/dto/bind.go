package dto

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
)

var (
	validate = validator.New(validator.WithRequiredStructEnabled())
	slugRe   = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)
)

func init() {
	_ = validate.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugRe.MatchString(strings.ToLower(strings.TrimSpace(fl.Field().String())))
	})
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "query"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
}

// BindError is a 400 with per-field detail.
type BindError struct {
	Message string
	Fields  []string
}

func (e *BindError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.Fields, "; ")
}

// BindJSON decodes the request body into out, rejecting unknown fields, and
// validates it.
func BindJSON(c *fiber.Ctx, out any) error {
	body := c.Body()
	if len(bytes.TrimSpace(body)) == 0 {
		return &BindError{Message: "request body is required"}
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return &BindError{Message: "invalid request body", Fields: []string{decodeDetail(err)}}
	}
	if dec.More() {
		return &BindError{Message: "invalid request body", Fields: []string{"trailing data after JSON object"}}
	}
	return Validate(out)
}

// BindQuery parses the query string into out after rejecting any parameter
// not named in allowed.
func BindQuery(c *fiber.Ctx, out any, allowed ...string) error {
	ok := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		ok[a] = struct{}{}
	}
	var unknown []string
	for k := range c.Queries() {
		if _, found := ok[k]; !found {
			unknown = append(unknown, "unknown query parameter "+k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return &BindError{Message: "invalid query", Fields: unknown}
	}
	if err := c.QueryParser(out); err != nil {
		return &BindError{Message: "invalid query", Fields: []string{err.Error()}}
	}
	return Validate(out)
}

func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &BindError{Message: "validation failed", Fields: []string{err.Error()}}
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fieldMessage(fe))
	}
	return &BindError{Message: "validation failed", Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "email":
		return name + " must be a valid email"
	case "uuid", "uuid4":
		return name + " must be a UUID"
	case "min":
		return fmt.Sprintf("%s must be at least %s", name, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", name, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", name, fe.Param())
	case "slug":
		return name + " may contain lowercase letters, digits, dots, dashes and underscores"
	}
	return fmt.Sprintf("%s failed %s validation", name, fe.Tag())
}

func decodeDetail(err error) string {
	msg := err.Error()
	if strings.Contains(msg, "unknown field") {
		return msg
	}
	return "malformed JSON"
}
