// Package response содержит вспомогательные типы и функции для формирования
// JSON-ответов HTTP-обработчиков. Ошибки отдаются в виде {"detail": "..."}.
package response

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/greencore-api/internal/apperr"
)

// ErrorResponse — тело ответа с ошибкой.
type ErrorResponse struct {
	Detail string `json:"detail" example:"invalid api key"`
}

// StatusResponse — тело простого подтверждения.
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// OK возвращает {"status":"ok"}.
func OK() StatusResponse {
	return StatusResponse{Status: "ok"}
}

// Error возвращает ErrorResponse с переданным сообщением.
func Error(msg string) ErrorResponse {
	return ErrorResponse{Detail: msg}
}

// ValidationError формирует ErrorResponse на основе ошибок валидации.
// Каждое нарушение формируется в человекочитаемый текст, объединённый через запятую.
func ValidationError(errs validator.ValidationErrors) ErrorResponse {
	var errsMsgs []string

	for _, err := range errs {
		field := strings.ToLower(err.Field())
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", field))
		case "email":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a valid email", field))
		case "gte", "min":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at least %s", field, err.Param()))
		case "lte", "max":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at most %s", field, err.Param()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not valid", field))
		}
	}
	return ErrorResponse{Detail: strings.Join(errsMsgs, ", ")}
}

// Fail пишет ошибку со статусом из таксономии apperr. Внутренние ошибки
// отдаются как 500 без подробностей.
func Fail(w http.ResponseWriter, r *http.Request, err error) {
	render.Status(r, apperr.Status(err))
	render.JSON(w, r, Error(apperr.Detail(err)))
}

// FailWith пишет ошибку со статусом из таксономии и собственным текстом.
func FailWith(w http.ResponseWriter, r *http.Request, err error, msg string) {
	render.Status(r, apperr.Status(err))
	render.JSON(w, r, Error(msg))
}

// Invalid пишет ответ 422 по ошибке валидатора.
func Invalid(w http.ResponseWriter, r *http.Request, err error) {
	render.Status(r, http.StatusUnprocessableEntity)
	if ve, ok := err.(validator.ValidationErrors); ok {
		render.JSON(w, r, ValidationError(ve))
		return
	}
	render.JSON(w, r, Error(apperr.ErrValidation.Error()))
}
