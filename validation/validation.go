package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"todo-backend/repository"
)

// FieldError mirrors one entry of a 422 response detail list.
type FieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// Error is returned for request bodies or queries that fail validation.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	messages := make([]string, 0, len(e.Fields))
	for _, field := range e.Fields {
		messages = append(messages, strings.Join(field.Loc, ".")+": "+field.Msg)
	}
	return strings.Join(messages, "; ")
}

func newError(loc []string, msg, kind string) *Error {
	return &Error{Fields: []FieldError{{Loc: loc, Msg: msg, Type: kind}}}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type SignupRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Name     string `json:"name" validate:"required,max=100"`
}

type SigninRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=128"`
}

type TaskCreateRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=1000"`
}

type TaskUpdateRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=200"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	Completed   *bool   `json:"completed"`
}

func (r *TaskUpdateRequest) Empty() bool {
	return r.Title == nil && r.Description == nil && r.Completed == nil
}

// ProcessSignup decodes and validates a signup body. The email is trimmed
// and lower-cased, the name trimmed.
func ProcessSignup(body []byte) (ok bool, status int, err error, req *SignupRequest) {
	req = &SignupRequest{}
	if err := decode(body, req); err != nil {
		return false, fiber.StatusUnprocessableEntity, err, nil
	}

	req.Email = repository.NormalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)

	if err := check(req); err != nil {
		return false, fiber.StatusUnprocessableEntity, err, nil
	}

	return true, fiber.StatusOK, nil, req
}

func ProcessSignin(body []byte) (ok bool, status int, err error, req *SigninRequest) {
	req = &SigninRequest{}
	if err := decode(body, req); err != nil {
		return false, fiber.StatusUnprocessableEntity, err, nil
	}

	req.Email = repository.NormalizeEmail(req.Email)

	if err := check(req); err != nil {
		return false, fiber.StatusUnprocessableEntity, err, nil
	}

	return true, fiber.StatusOK, nil, req
}

func ProcessTaskCreate(body []byte) (ok bool, status int, err error, req *TaskCreateRequest) {
	req = &TaskCreateRequest{}
	if err := decode(body, req); err != nil {
		return false, fiber.StatusUnprocessableEntity, err, nil
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)

	if err := check(req); err != nil {
		return false, fiber.StatusUnprocessableEntity, err, nil
	}

	return true, fiber.StatusOK, nil, req
}

func ProcessTaskUpdate(body []byte) (ok bool, status int, err error, req *TaskUpdateRequest) {
	req = &TaskUpdateRequest{}
	if err := decode(body, req); err != nil {
		return false, fiber.StatusUnprocessableEntity, err, nil
	}

	if req.Empty() {
		return false, fiber.StatusUnprocessableEntity, newError([]string{"body"}, "At least one field must be provided", "value_error"), nil
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return false, fiber.StatusUnprocessableEntity, newError([]string{"body", "title"}, "String should have at least 1 character", "string_too_short"), nil
		}
		req.Title = &title
	}

	if req.Description != nil {
		description := strings.TrimSpace(*req.Description)
		req.Description = &description
	}

	if err := check(req); err != nil {
		return false, fiber.StatusUnprocessableEntity, err, nil
	}

	return true, fiber.StatusOK, nil, req
}

// ProcessTaskStatus validates the ?status= filter; an empty value means all.
func ProcessTaskStatus(value string) (ok bool, status int, err error, taskStatus repository.TaskStatus) {
	switch repository.TaskStatus(value) {
	case "", repository.StatusAll:
		return true, fiber.StatusOK, nil, repository.StatusAll
	case repository.StatusPending, repository.StatusCompleted:
		return true, fiber.StatusOK, nil, repository.TaskStatus(value)
	default:
		return false, fiber.StatusUnprocessableEntity, newError([]string{"query", "status"}, "Input should be 'all', 'pending' or 'completed'", "enum"), ""
	}
}

func decode(body []byte, target any) *Error {
	if len(body) == 0 {
		return newError([]string{"body"}, "Field required", "missing")
	}
	if err := json.Unmarshal(body, target); err != nil {
		return newError([]string{"body"}, "Invalid JSON body", "json_invalid")
	}
	return nil
}

func check(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err
	}

	result := &Error{Fields: make([]FieldError, 0, len(fieldErrors))}
	for _, fe := range fieldErrors {
		msg, kind := describe(fe)
		result.Fields = append(result.Fields, FieldError{
			Loc:  []string{"body", fe.Field()},
			Msg:  msg,
			Type: kind,
		})
	}
	return result
}

func describe(fe validator.FieldError) (msg, kind string) {
	switch fe.Tag() {
	case "required":
		return "Field required", "missing"
	case "email":
		return "value is not a valid email address", "value_error"
	case "min":
		return fmt.Sprintf("String should have at least %s characters", fe.Param()), "string_too_short"
	case "max":
		return fmt.Sprintf("String should have at most %s characters", fe.Param()), "string_too_long"
	default:
		return fmt.Sprintf("failed on the '%s' rule", fe.Tag()), "value_error"
	}
}
