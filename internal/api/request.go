package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

// Required fields are pointers so that an absent field can be told apart
// from an empty string.

// GreetRequest is the body of POST /api/greet.
type GreetRequest struct {
	Name *string `json:"name" validate:"required" example:"Ada"`
}

// SendRequest is the body of POST /api/send.
type SendRequest struct {
	Name    *string `json:"name" validate:"required" example:"Ada"`
	Content *string `json:"content" validate:"required" example:"hi"`
}

// FieldError describes a single problem with a request body.
type FieldError struct {
	Type string   `json:"type"`
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
}

// RequestError is returned by decodeAndValidate; Status is the HTTP status to answer with.
type RequestError struct {
	Status int
	Fields []FieldError
}

func (e *RequestError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, strings.Join(f.Loc, ".")+": "+f.Msg)
	}
	return "invalid request: " + strings.Join(msgs, "; ")
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeAndValidate reads a JSON object from r into dst and checks its
// validate tags. Any failure is a *RequestError.
func (a *API) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	var raw map[string]json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return decodeError(err)
	}
	// The body must hold exactly one JSON value.
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return invalidJSON()
	}

	// encoding/json folds key case; only exact field names count.
	known := jsonFieldNames(dst)
	for k := range raw {
		if !known[k] {
			delete(raw, k)
		}
	}
	exact, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(exact, dst); err != nil {
		return decodeError(err)
	}

	err = a.validate.Struct(dst)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	reqErr := &RequestError{Status: http.StatusUnprocessableEntity}
	for _, fe := range verrs {
		reqErr.Fields = append(reqErr.Fields, FieldError{
			Type: "missing",
			Loc:  []string{"body", fe.Field()},
			Msg:  "Field required",
		})
	}
	return reqErr
}

func decodeError(err error) *RequestError {
	var (
		maxErr    *http.MaxBytesError
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)

	switch {
	case errors.Is(err, io.EOF):
		return &RequestError{
			Status: http.StatusUnprocessableEntity,
			Fields: []FieldError{{Type: "missing", Loc: []string{"body"}, Msg: "Field required"}},
		}
	case errors.As(err, &maxErr):
		return &RequestError{
			Status: http.StatusRequestEntityTooLarge,
			Fields: []FieldError{{Type: "too_large", Loc: []string{"body"}, Msg: "Request body too large"}},
		}
	case errors.As(err, &typeErr):
		if typeErr.Field == "" {
			return &RequestError{
				Status: http.StatusUnprocessableEntity,
				Fields: []FieldError{{Type: "model_attributes_type", Loc: []string{"body"}, Msg: "Input should be a valid object"}},
			}
		}
		return &RequestError{
			Status: http.StatusUnprocessableEntity,
			Fields: []FieldError{{Type: "string_type", Loc: []string{"body", typeErr.Field}, Msg: "Input should be a valid string"}},
		}
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return invalidJSON()
	default:
		return &RequestError{
			Status: http.StatusUnprocessableEntity,
			Fields: []FieldError{{Type: "json_invalid", Loc: []string{"body"}, Msg: err.Error()}},
		}
	}
}

func invalidJSON() *RequestError {
	return &RequestError{
		Status: http.StatusUnprocessableEntity,
		Fields: []FieldError{{Type: "json_invalid", Loc: []string{"body"}, Msg: "JSON decode error"}},
	}
}

func jsonFieldNames(dst interface{}) map[string]bool {
	t := reflect.TypeOf(dst)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	names := make(map[string]bool, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name := strings.SplitN(t.Field(i).Tag.Get("json"), ",", 2)[0]
		if name != "" && name != "-" {
			names[name] = true
		}
	}
	return names
}
