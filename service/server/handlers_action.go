package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"flame/service/app"
	"flame/service/appform"
	"flame/service/util"

	"github.com/go-chi/chi/v5"
)

// formActions runs dashboard form submissions against the app service and
// reports the outcome to the browser as toasts.
type formActions struct {
	apps *app.Service
	w    http.ResponseWriter
}

func (a *formActions) AddApp(ctx context.Context, payload app.Payload) error {
	created, err := a.apps.Add(ctx, payload)
	if err != nil {
		util.SetToast(a.w, fmt.Sprintf("Failed to add app: %v", err), "error")
		return err
	}
	util.SetToast(a.w, fmt.Sprintf("App %s added", created.Name), "success")
	return nil
}

func (a *formActions) UpdateApp(ctx context.Context, id int64, payload app.Payload) error {
	updated, err := a.apps.Update(ctx, id, payload)
	if err != nil {
		util.SetToast(a.w, fmt.Sprintf("Failed to update app: %v", err), "error")
		return err
	}
	util.SetToast(a.w, fmt.Sprintf("App %s updated", updated.Name), "success")
	return nil
}

func (s *Server) handleSubmitAppForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		s.formError(w, r, "Invalid form data", http.StatusBadRequest)
		return
	}

	existing, ok := s.formApp(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	actions := &formActions{apps: s.apps, w: w}
	form := appform.New(actions, func() { util.CloseModal(w) }, existing, s.logger)

	if err := replayInputs(form, r); err != nil {
		s.formError(w, r, err.Error(), http.StatusBadRequest)
		return
	}

	icon, err := app.ReadIconFile(r, "icon", s.cfg.MaxIconSize)
	if err != nil {
		s.formError(w, r, fmt.Sprintf("Invalid icon: %v", err), util.StatusForError(err))
		return
	}
	if icon != nil {
		form.ToggleCustomIcon()
		form.HandleFile(icon)
	}

	form.Submit(r.Context())

	apps, err := s.apps.List(r.Context(), true)
	if err != nil {
		util.LogAndError(w, s.logger, "Failed to get apps", http.StatusInternalServerError, err)
		return
	}

	data := submitResultData{
		Apps: newAppListItems(s.apps.Icons(), apps),
		Form: form.View(),
	}
	if err := s.renderer.WriteHTML(w, "submit_result", data); err != nil {
		util.LogAndError(w, s.logger, "Failed to render apps", http.StatusInternalServerError, err)
	}
}

// formError reports a rejected submission. htmx only swaps 2xx responses, so
// htmx requests get an error toast over the current list instead of a status.
func (s *Server) formError(w http.ResponseWriter, r *http.Request, message string, code int) {
	if !util.IsHTMX(r) {
		http.Error(w, message, code)
		return
	}
	util.SetToast(w, message, "error")
	s.handleFragmentApps(w, r)
}

func (s *Server) handleDeleteAppAction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid app id", http.StatusBadRequest)
		return
	}

	if err := s.apps.Delete(r.Context(), id); err != nil {
		util.LogAndError(w, s.logger, "Failed to delete app", util.StatusForError(err), err)
		return
	}

	util.SetToast(w, "App deleted", "success")
	s.handleFragmentApps(w, r)
}
