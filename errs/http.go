package errs

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

// codes maps application error codes to http status codes.
var codes = map[string]int{
	EUNAUTHORIZED:    http.StatusUnauthorized,
	EFORBIDDEN:       http.StatusForbidden,
	ENOTFOUND:        http.StatusNotFound,
	EMETHOD:          http.StatusMethodNotAllowed,
	ENOTACCEPTABLE:   http.StatusNotAcceptable,
	EFILETOOSMALL:    http.StatusLengthRequired,
	EFILETOOLARGE:    http.StatusRequestEntityTooLarge,
	EINVALID:         http.StatusUnprocessableEntity,
	ETOOMANYREQUESTS: http.StatusTooManyRequests,
	EINTERNAL:        http.StatusInternalServerError,
	EUPLOAD:          520,
}

// Response is the body of every error response.
type Response struct {
	Result  bool   `json:"result"`
	Type    string `json:"error_type"`
	Message string `json:"error_message"`
}

// StatusCode returns the http status code for an application error code.
func StatusCode(code string) int {
	if v, ok := codes[code]; ok {
		return v
	}
	return http.StatusInternalServerError
}

// ReturnError writes the error envelope for err to the response.
// Internal errors are logged, since their details are hidden from the client.
func ReturnError(w http.ResponseWriter, r *http.Request, err error) {
	code, message := ErrorCode(err), ErrorMessage(err)

	if code == EINTERNAL || code == EUPLOAD {
		LogError(r, err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusCode(code))
	err = json.NewEncoder(w).Encode(&Response{
		Result:  false,
		Type:    code,
		Message: message,
	})
	if err != nil {
		LogError(r, err)
	}
}

// LogError logs an error along with the request it occurred in.
func LogError(r *http.Request, err error) {
	logrus.WithError(err).WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
	}).Error("request failed")
}
