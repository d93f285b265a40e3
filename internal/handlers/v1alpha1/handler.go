// Package v1alpha1 exposes the coaching service over HTTP.
package v1alpha1

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	api "github.com/perfectpitch/pitch-coach/api/v1alpha1"
	"github.com/perfectpitch/pitch-coach/internal/service"
)

// maxUploadBytes bounds one upload request. Recordings are the largest
// legitimate input.
const maxUploadBytes = 512 << 20

type CoachHandler struct {
	svc      *service.CoachService
	validate *validator.Validate
	log      *zap.SugaredLogger
}

func NewCoachHandler(svc *service.CoachService) *CoachHandler {
	return &CoachHandler{
		svc:      svc,
		validate: validator.New(),
		log:      zap.S().Named("handlers"),
	}
}

// Routes mounts all coaching endpoints on the router.
func (h *CoachHandler) Routes(r chi.Router) {
	r.Get("/health", h.Health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/sessions", h.CreateSession)
		r.Delete("/sessions/{sessionID}", h.DeleteSession)
		r.Post("/sessions/{sessionID}/files", h.UploadFiles)
		r.Post("/sessions/{sessionID}/process", h.Process)
		r.Get("/sessions/{sessionID}/report", h.Report)
		r.Get("/status/{taskID}", h.Status)
	})
}

func (h *CoachHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	created, err := h.svc.CreateSession(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, created)
}

func (h *CoachHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteSession(r.Context(), sessionID); err != nil {
		h.renderError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// UploadFiles accepts one or more files from a multipart form. Each part
// is stored under its form file name.
func (h *CoachHandler) UploadFiles(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.renderError(w, r, service.NewErrInvalidUpload("expected a multipart form"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	var results []api.UploadResult
	for _, headers := range r.MultipartForm.File {
		for _, header := range headers {
			f, err := header.Open()
			if err != nil {
				h.renderError(w, r, service.NewErrInvalidUpload("unreadable form part"))
				return
			}
			res, err := h.svc.SaveUpload(r.Context(), sessionID, header.Filename, f)
			f.Close()
			if err != nil {
				h.renderError(w, r, err)
				return
			}
			results = append(results, *res)
		}
	}
	if len(results) == 0 {
		h.renderError(w, r, service.NewErrInvalidUpload("no files in form"))
		return
	}
	render.JSON(w, r, results)
}

func (h *CoachHandler) Process(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	started, err := h.svc.Submit(r.Context(), sessionID)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, started)
}

func (h *CoachHandler) Status(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	if err := h.validate.Var(taskID, "required,hexadecimal,len=32"); err != nil {
		h.badRequest(w, r, "task id must be a 32 character hex string")
		return
	}
	status, err := h.svc.Status(r.Context(), taskID)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, status)
}

func (h *CoachHandler) Report(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	raw, err := h.svc.Report(r.Context(), sessionID)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

func (h *CoachHandler) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.svc.Health(r.Context()))
}

func (h *CoachHandler) sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.validate.Var(sessionID, "required,hexadecimal,len=32"); err != nil {
		h.badRequest(w, r, "session id must be a 32 character hex string")
		return "", false
	}
	return sessionID, true
}

func (h *CoachHandler) badRequest(w http.ResponseWriter, r *http.Request, message string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, api.Error{Message: message})
}

func (h *CoachHandler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, new(*service.ErrSessionNotFound)),
		errors.As(err, new(*service.ErrTaskNotFound)),
		errors.As(err, new(*service.ErrReportNotReady)):
		status = http.StatusNotFound
	case errors.As(err, new(*service.ErrSessionBusy)):
		status = http.StatusConflict
	case errors.As(err, new(*service.ErrQueueFull)):
		status = http.StatusTooManyRequests
	case errors.As(err, new(*service.ErrInvalidUpload)):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		h.log.Errorw("request failed", "path", r.URL.Path, "error", err)
	}
	render.Status(r, status)
	render.JSON(w, r, api.Error{Message: err.Error()})
}
