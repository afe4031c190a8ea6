package render

import (
	"errors"
	"net/http"
	"os"
	"strconv"

	"cdplend/core"
)

// ResponseErrorMessageAsHint internal error msg as hint
var ResponseErrorMessageAsHint bool

func init() {
	v := os.Getenv("RESPONSE_ERROR_MESSAGE_AS_HINT")
	ResponseErrorMessageAsHint, _ = strconv.ParseBool(v)
}

type errorResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Kind string `json:"kind,omitempty"`
	Hint string `json:"hint,omitempty"`
}

var kindStatus = map[core.ErrorKind]int{
	core.ErrorKindInvalidInput:   http.StatusBadRequest,
	core.ErrorKindInvariant:      http.StatusUnprocessableEntity,
	core.ErrorKindStale:          http.StatusServiceUnavailable,
	core.ErrorKindUnauthorized:   http.StatusForbidden,
	core.ErrorKindReconciliation: http.StatusConflict,
}

// Error write err, market error codes are mapped to a status by their kind
func Error(w http.ResponseWriter, err error) {
	var code core.ErrorCode
	if !errors.As(err, &code) {
		resp := errorResponse{Code: int(core.ErrUnknown), Msg: "internal error"}
		if ResponseErrorMessageAsHint {
			resp.Hint = err.Error()
		}

		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}

	status := http.StatusInternalServerError
	if s, ok := kindStatus[code.Kind()]; ok {
		status = s
	}

	switch code {
	case core.ErrPoolNotFound, core.ErrCDPNotFound, core.ErrEventNotFound:
		status = http.StatusNotFound
	}

	writeJSON(w, status, errorResponse{
		Code: int(code),
		Msg:  err.Error(),
		Kind: string(code.Kind()),
	})
}
