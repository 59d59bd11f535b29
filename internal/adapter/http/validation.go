package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/couchcryptid/gpv-forecast-service/internal/domain"
)

// fieldError locates one invalid part of a request, e.g. loc ["body", "price"].
type fieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

type validationErrors struct {
	Detail []fieldError `json:"detail"`
}

func (v *validationErrors) add(msg, typ string, loc ...string) {
	v.Detail = append(v.Detail, fieldError{Loc: loc, Msg: msg, Type: typ})
}

func (v *validationErrors) empty() bool { return len(v.Detail) == 0 }

func writeValidation(w http.ResponseWriter, v *validationErrors) {
	writeJSON(w, http.StatusUnprocessableEntity, v)
}

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// decodeBody decodes a JSON object body into dst, reporting malformed input
// as validation errors.
func decodeBody(r *http.Request, dst any) *validationErrors {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	err := dec.Decode(dst)
	if err == nil {
		return nil
	}

	v := &validationErrors{}
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		v.add("Field required", "missing", "body")
	case errors.As(err, &typeErr) && typeErr.Field != "":
		loc := append([]string{"body"}, strings.Split(typeErr.Field, ".")...)
		v.add(fmt.Sprintf("Input should be a valid %s", typeErr.Type.Kind()), "type_error", loc...)
	case errors.As(err, &typeErr):
		v.add("Input should be a valid object", "model_type", "body")
	default:
		v.add("JSON decode error: "+err.Error(), "json_invalid", "body")
	}
	return v
}

// pathID parses the {id} path value as an integer. Any integer is accepted;
// ids that cannot exist are answered by storeID.
func pathID(r *http.Request) (int64, *validationErrors) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		v := &validationErrors{}
		v.add("Input should be a valid integer", "int_parsing", "path", "item_id")
		return 0, v
	}
	return id, nil
}

// storeID converts a path id to a primary key. Keys start at 1, so smaller
// ids are reported as unknown items.
func storeID(id int64) (uint, error) {
	if id < 1 {
		return 0, fmt.Errorf("%w: id %d", domain.ErrItemNotFound, id)
	}
	return uint(id), nil
}
