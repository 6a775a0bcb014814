package server

import (
	"net/http"

	apperrors "github.com/reelkit/reelkit/internal/errors"
)

// HandleError writes err as a JSON error envelope. Plain errors are
// classified by category before they are mapped to a status code.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	apperrors.RespondWithEnvelope(w, r, apperrors.EnsureEnvelope(err))
}
