package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/freshkeep/hub/internal/api/response"
	"github.com/freshkeep/hub/internal/api/validation"
)

// decodeAndValidate decodes a JSON request body into dst and validates it. On failure it writes a
// 400 problem response and returns false.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			response.RespondBadRequest(w, "Request body is required")

			return false
		}

		response.RespondBadRequest(w, "Invalid request body")

		return false
	}

	if err := validation.ValidateStruct(dst); err != nil {
		validation.RespondValidationError(w, err)

		return false
	}

	return true
}
