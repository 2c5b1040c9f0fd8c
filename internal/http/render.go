package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/taskforge/taskforge/pkg/httpx"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report field names as their json tags so validation errors line up
	// with what the client actually sent.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// bindAndValidate decodes the JSON request body into T and runs struct
// validation. Callers treat any returned error as a 400.
func bindAndValidate[T any](r *http.Request) (T, error) {
	var req T

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return req, fmt.Errorf("invalid request body: %w", err)
	}

	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return req, fmt.Errorf("field %q failed on %q", fe.Field(), fe.Tag())
		}
		return req, err
	}
	return req, nil
}

func writeError(w http.ResponseWriter, code int, name, desc string) {
	httpx.WriteJSON(w, code, map[string]string{
		"error":             name,
		"error_description": desc,
	})
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
}

func writeServerError(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, "server_error", "An internal error occurred")
}
