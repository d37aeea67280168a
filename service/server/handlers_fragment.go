package server

import (
	"fmt"
	"net/http"
	"strconv"

	"flame/service/app"
	"flame/service/appform"
	"flame/service/util"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleFragmentApps(w http.ResponseWriter, r *http.Request) {
	apps, err := s.apps.List(r.Context(), true)
	if err != nil {
		util.LogAndError(w, s.logger, "Failed to get apps", http.StatusInternalServerError, err)
		return
	}

	if err := s.renderer.WriteHTML(w, "apps", newAppListItems(s.apps.Icons(), apps)); err != nil {
		util.LogAndError(w, s.logger, "Failed to render apps", http.StatusInternalServerError, err)
	}
}

// handleFragmentAppForm renders the blank form, or the edit form when the
// route carries an id.
func (s *Server) handleFragmentAppForm(w http.ResponseWriter, r *http.Request) {
	existing, ok := s.formApp(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	s.renderForm(w, appform.New(nil, nil, existing, s.logger))
}

// handleFragmentAppFormToggle re-renders the form with the icon input
// switched, keeping what was typed so far.
func (s *Server) handleFragmentAppFormToggle(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	existing, ok := s.formApp(w, r, r.FormValue("id"))
	if !ok {
		return
	}

	form := appform.New(nil, nil, existing, s.logger)
	if err := replayInputs(form, r); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if r.FormValue("useCustomIcon") == "1" {
		form.ToggleCustomIcon()
	}
	form.ToggleCustomIcon()

	s.renderForm(w, form)
}

func (s *Server) renderForm(w http.ResponseWriter, form *appform.Form) {
	if err := s.renderer.WriteHTML(w, "app_form", form.View()); err != nil {
		util.LogAndError(w, s.logger, "Failed to render app form", http.StatusInternalServerError, err)
	}
}

// formApp loads the app a form edits. An empty id means a new app. On false
// the response has been written.
func (s *Server) formApp(w http.ResponseWriter, r *http.Request, rawID string) (*app.App, bool) {
	if rawID == "" {
		return nil, true
	}

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		http.Error(w, "Invalid app id", http.StatusBadRequest)
		return nil, false
	}

	existing, err := s.apps.Get(r.Context(), id)
	if err != nil {
		util.LogAndError(w, s.logger, "Failed to get app", http.StatusInternalServerError, err)
		return nil, false
	}
	if existing == nil {
		http.Error(w, fmt.Sprintf("App %d not found", id), http.StatusNotFound)
		return nil, false
	}

	return existing, true
}

// replayInputs feeds the submitted text and select values into the form in
// the order a user would edit them. Missing fields are left as they are.
func replayInputs(form *appform.Form, r *http.Request) error {
	for _, name := range []string{"name", "url", "icon"} {
		if values, ok := r.Form[name]; ok && len(values) > 0 {
			if err := form.HandleInput(name, values[0]); err != nil {
				return err
			}
		}
	}

	if values, ok := r.Form["isPublic"]; ok && len(values) > 0 {
		if err := form.HandleInput("isPublic", values[0], appform.InputOptions{IsBool: true}); err != nil {
			return err
		}
	}

	return nil
}
