// Package routes wires every HTTP route to its handler.
package routes

import (
	"log/slog"
	"net/http"

	"github.com/aanand-mishra/student-records/internal/http/handlers/student"
	"github.com/aanand-mishra/student-records/internal/http/middleware"
	"github.com/aanand-mishra/student-records/internal/storage"
	"github.com/aanand-mishra/student-records/internal/utils/response"
)

// New returns the application's root handler.
//
//	POST   /students/      create a student
//	GET    /students/      list all students
//	GET    /students/{id}  get one student
//	PUT    /students/{id}  partially update a student
//	DELETE /students/{id}  delete a student
//	GET    /healthz        liveness probe
func New(store storage.Storage, log *slog.Logger) http.Handler {
	router := http.NewServeMux()

	create := student.New(store, log)
	list := student.GetList(store, log)

	// {$} anchors the pattern so /students/ does not match the subtree.
	router.HandleFunc("POST /students/{$}", create)
	router.HandleFunc("POST /students", create)
	router.HandleFunc("GET /students/{$}", list)
	router.HandleFunc("GET /students", list)
	router.HandleFunc("GET /students/{id}", student.GetByID(store, log))
	router.HandleFunc("PUT /students/{id}", student.Update(store, log))
	router.HandleFunc("DELETE /students/{id}", student.Delete(store, log))

	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		response.WriteJSON(w, http.StatusOK, response.Response{Status: response.StatusOK})
	})

	return middleware.Chain(router,
		middleware.RequestID,
		middleware.Logger(log),
		middleware.Recover(log),
	)
}
