package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"

	"merch-studio/canvas"
	"merch-studio/repository"
	"merch-studio/service"
)

const maxBodyBytes = 1 << 20

func renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": msg})
}

// renderServiceError maps domain errors to HTTP statuses
func renderServiceError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, repository.ErrNotFound),
		errors.Is(err, canvas.ErrNoObject),
		errors.Is(err, fs.ErrNotExist):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrUnknownProduct),
		errors.Is(err, service.ErrInvalidFinalProduct):
		status = http.StatusBadRequest
	case errors.Is(err, canvas.ErrLocked):
		status = http.StatusConflict
	case errors.Is(err, service.ErrEmptyLayout):
		status = http.StatusUnprocessableEntity
	}

	entry := logrus.WithError(err).WithField("path", r.URL.Path)
	if status == http.StatusInternalServerError {
		entry.Error(msg)
		renderError(w, r, status, msg)
		return
	}
	entry.Warn(msg)
	renderError(w, r, status, fmt.Sprintf("%s: %v", msg, err))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		renderError(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return false
	}
	return true
}
