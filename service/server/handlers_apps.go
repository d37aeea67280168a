package server

import (
	"net/http"
	"strconv"

	"flame/service/app"
	"flame/service/util"

	"github.com/go-chi/chi/v5"
)

// handleListApps returns every app to authenticated callers and only public
// apps to everyone else.
func (s *Server) handleListApps(w http.ResponseWriter, r *http.Request) {
	apps, err := s.apps.List(r.Context(), util.VerifyAPIKey(r, s.cfg.APIKey))
	if err != nil {
		util.LogAndError(w, s.logger, "Failed to get apps", http.StatusInternalServerError, err)
		return
	}

	util.WriteJSON(w, s.logger, http.StatusOK, apps)
}

func (s *Server) handleGetApp(w http.ResponseWriter, r *http.Request) {
	a, ok := s.visibleApp(w, r)
	if !ok {
		return
	}

	util.WriteJSON(w, s.logger, http.StatusOK, a)
}

func (s *Server) handleCreateApp(w http.ResponseWriter, r *http.Request) {
	payload, err := app.DecodePayload(r, s.cfg.MaxIconSize)
	if err != nil {
		util.JSONError(w, err.Error(), util.StatusForError(err))
		return
	}

	created, err := s.apps.Add(r.Context(), payload)
	if err != nil {
		s.writeAppError(w, "Failed to create app", err)
		return
	}

	util.WriteJSON(w, s.logger, http.StatusCreated, created)
}

func (s *Server) handleUpdateApp(w http.ResponseWriter, r *http.Request) {
	id, ok := appID(w, r)
	if !ok {
		return
	}

	existing, err := s.apps.Get(r.Context(), id)
	if err != nil {
		util.LogAndError(w, s.logger, "Failed to get app", http.StatusInternalServerError, err)
		return
	}
	if existing == nil {
		util.JSONError(w, "app not found", http.StatusNotFound)
		return
	}

	// Fields the request omits keep their stored values.
	payload, err := app.DecodePayloadOnto(r, s.cfg.MaxIconSize, existing.NewApp)
	if err != nil {
		util.JSONError(w, err.Error(), util.StatusForError(err))
		return
	}

	updated, err := s.apps.Update(r.Context(), id, payload)
	if err != nil {
		s.writeAppError(w, "Failed to update app", err)
		return
	}

	util.WriteJSON(w, s.logger, http.StatusOK, updated)
}

func (s *Server) handleDeleteApp(w http.ResponseWriter, r *http.Request) {
	id, ok := appID(w, r)
	if !ok {
		return
	}

	if err := s.apps.Delete(r.Context(), id); err != nil {
		s.writeAppError(w, "Failed to delete app", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// visibleApp loads the app named by the route. Hidden apps look missing to
// unauthenticated callers.
func (s *Server) visibleApp(w http.ResponseWriter, r *http.Request) (*app.App, bool) {
	id, ok := appID(w, r)
	if !ok {
		return nil, false
	}

	a, err := s.apps.Get(r.Context(), id)
	if err != nil {
		util.LogAndError(w, s.logger, "Failed to get app", http.StatusInternalServerError, err)
		return nil, false
	}
	if a == nil || (!a.IsPublic && !util.VerifyAPIKey(r, s.cfg.APIKey)) {
		util.JSONError(w, "app not found", http.StatusNotFound)
		return nil, false
	}

	return a, true
}

func (s *Server) writeAppError(w http.ResponseWriter, message string, err error) {
	code := util.StatusForError(err)
	if code == http.StatusInternalServerError {
		util.LogAndError(w, s.logger, message, code, err)
		return
	}
	util.JSONError(w, err.Error(), code)
}

func appID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		util.JSONError(w, "invalid app id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
