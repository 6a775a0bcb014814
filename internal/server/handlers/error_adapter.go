package handlers

import (
	"net/http"

	apperrors "github.com/reelkit/reelkit/internal/errors"
)

// ErrorResponder writes an error response for a request.
type ErrorResponder func(http.ResponseWriter, *http.Request, error)

var responder ErrorResponder = apperrors.RespondWithError

// SetHTTPErrorResponder routes handler errors through fn. Nil restores the default.
func SetHTTPErrorResponder(fn ErrorResponder) {
	if fn == nil {
		fn = apperrors.RespondWithError
	}
	responder = fn
}

// ResetHTTPErrorResponder restores the default responder.
func ResetHTTPErrorResponder() {
	responder = apperrors.RespondWithError
}

func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	responder(w, r, err)
}
