// Package student contains the HTTP handlers for the Student resource.
//
// Every handler is built by a factory that closes over its dependencies:
//
//	router.HandleFunc("POST /students/{$}", student.New(store, log))
//
// The factory runs once at startup; the returned func runs per request.
package student

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/student-records/internal/storage"
	"github.com/aanand-mishra/student-records/internal/types"
	"github.com/aanand-mishra/student-records/internal/utils/response"
)

// maxBodyBytes bounds request bodies; a student record is tiny.
const maxBodyBytes = 1 << 20

var (
	errEmptyBody   = errors.New("request body is empty")
	errInvalidID   = errors.New("invalid id: must be an integer")
	errInternal    = errors.New("internal server error")
	deletedMessage = response.Message{Message: "deleted successfully"}
	validate       = newValidator()
)

// newValidator reports field errors under their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// New handles POST /students/.
//
//	{ "first_name": "Ana", "last_name": "Gomez", "email": "ana@x.com", "age": 20 }
//
// Responds 200 with the created student, or 400 on bad input or a
// duplicate email.
func New(store storage.Storage, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "student.New"))

		var input types.NewStudent
		if !decode(w, r, &input) {
			return
		}

		created, err := store.CreateStudent(r.Context(), input)
		if err != nil {
			writeStoreError(w, log, err)
			return
		}

		log.Info("student created", slog.Int64("id", created.ID))
		response.WriteJSON(w, http.StatusOK, created)
	}
}

// GetList handles GET /students/. Returns [] (not null) when empty.
func GetList(store storage.Storage, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "student.GetList"))

		students, err := store.GetStudents(r.Context())
		if err != nil {
			writeStoreError(w, log, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, students)
	}
}

// GetByID handles GET /students/{id}.
func GetByID(store storage.Storage, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "student.GetByID"))

		id, ok := pathID(w, r)
		if !ok {
			return
		}

		student, err := store.GetStudentByID(r.Context(), id)
		if err != nil {
			writeStoreError(w, log, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, student)
	}
}

// Update handles PUT /students/{id}. Only the fields present in the body
// change; an empty object returns the record unchanged.
//
//	{ "age": 21 }
func Update(store storage.Storage, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "student.Update"))

		id, ok := pathID(w, r)
		if !ok {
			return
		}

		var update types.StudentUpdate
		if !decode(w, r, &update) {
			return
		}

		updated, err := store.UpdateStudentByID(r.Context(), id, update)
		if err != nil {
			writeStoreError(w, log, err)
			return
		}

		log.Info("student updated", slog.Int64("id", id))
		response.WriteJSON(w, http.StatusOK, updated)
	}
}

// Delete handles DELETE /students/{id}.
func Delete(store storage.Storage, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "student.Delete"))

		id, ok := pathID(w, r)
		if !ok {
			return
		}

		deleted, err := store.DeleteStudentByID(r.Context(), id)
		if err != nil {
			writeStoreError(w, log, err)
			return
		}
		if !deleted {
			response.WriteJSON(w, http.StatusNotFound, response.GeneralError(storage.ErrNotFound))
			return
		}

		log.Info("student deleted", slog.Int64("id", id))
		response.WriteJSON(w, http.StatusOK, deletedMessage)
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errInvalidID))
		return 0, false
	}
	return id, true
}

// decode reads one JSON object into dst and validates its shape: JSON
// types must match and required keys must be present. Unknown keys are
// ignored. On failure it writes the 400 response and returns false.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
	if errors.Is(err, io.EOF) {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errEmptyBody))
		return false
	}
	if err != nil {
		response.WriteJSON(w, http.StatusBadRequest,
			response.GeneralError(fmt.Errorf("invalid request body: %w", err)))
		return false
	}

	if err := validate.Struct(dst); err != nil {
		var validateErrs validator.ValidationErrors
		if errors.As(err, &validateErrs) {
			response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(validateErrs))
			return false
		}
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
		return false
	}
	return true
}

// writeStoreError maps store outcomes to status codes. Unexpected errors
// are logged and hidden behind a generic message.
func writeStoreError(w http.ResponseWriter, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		response.WriteJSON(w, http.StatusNotFound, response.GeneralError(storage.ErrNotFound))
	case errors.Is(err, storage.ErrDuplicateKey):
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(storage.ErrDuplicateKey))
	default:
		log.Error("storage failure", slog.String("error", err.Error()))
		response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errInternal))
	}
}
