package render

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

type H map[string]interface{}

// JSON render with json
func JSON(w http.ResponseWriter, v interface{}) {
	writeJSON(w, http.StatusOK, v)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Errorln("render json")
	}
}

// Text render with text
func Text(w http.ResponseWriter, t string) {
	w.Header().Set("Content-Type", "application/text")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(t)); err != nil {
		logrus.WithError(err).Errorln("render text")
	}
}

// BadRequest bad request error
func BadRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Code: -1, Msg: err.Error()})
}

// NotFoundRequest not found request error
func NotFoundRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusNotFound, errorResponse{Code: -1, Msg: err.Error()})
}
