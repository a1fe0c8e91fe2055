/*
Package req provides helper functions for HTTP request parsing and data binding.

It encapsulates strict JSON decoding with size and format checks so handlers
only deal with well-formed input structures.
*/
package req

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/JulietLog/JulietLog-back/internal/pkg/errs"
)

// MaxJSONBodySize limits the size of JSON request bodies (1 MB).
const MaxJSONBodySize int64 = 1 << 20

// BindJSON binds the JSON request body to dst. Unknown fields and trailing
// content are rejected.
func BindJSON(r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	r.Body = http.MaxBytesReader(nil, r.Body, MaxJSONBodySize)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		if strings.Contains(err.Error(), "request body too large") {
			return errs.NewError(errs.ErrRequestEntityTooLarge)
		}
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}
