package httpapi

import (
	"log"
	"net/http"

	apperrors "github.com/louisbranch/classroom.space/internal/platform/errors"
	"github.com/louisbranch/classroom.space/internal/platform/errors/i18n"
)

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Locale   string            `json:"locale"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// writeError renders err as the JSON error envelope. The message is the
// localized reason for the code; internal messages never reach clients.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperrors.CodeUnknown
	var metadata map[string]string
	if domainErr, ok := apperrors.As(err); ok {
		code = domainErr.Code
		metadata = domainErr.Metadata
	}
	status := code.HTTPStatus()
	if status >= http.StatusInternalServerError {
		log.Printf("%s %s: %s: %v", r.Method, r.URL.Path, code, err)
	}
	catalog := i18n.GetCatalog(r.Header.Get("Accept-Language"))
	writeJSON(w, status, errorResponse{Error: errorBody{
		Code:     string(code),
		Message:  catalog.Format(string(code), metadata),
		Locale:   catalog.Locale(),
		Metadata: metadata,
	}})
}
