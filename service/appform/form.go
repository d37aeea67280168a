// Package appform holds the create/edit form for a single app.
//
// A Form mirrors the fields of an app in local state, applies edits coming
// from text inputs, the visibility select and the icon file input, and on
// submit hands a payload to the store actions. The dashboard server and the
// CLI both drive the same Form; each request or command owns its own.
package appform

import (
	"context"
	"log/slog"

	"flame/service/app"
)

// Actions are the store actions a form submits to.
type Actions interface {
	AddApp(ctx context.Context, payload app.Payload) error
	UpdateApp(ctx context.Context, id int64, payload app.Payload) error
}

// Form is the state of one create or edit form. It is not safe for
// concurrent use.
type Form struct {
	actions      Actions
	modalHandler func()
	logger       *slog.Logger

	app           *app.App
	data          app.NewApp
	useCustomIcon bool
	customIcon    *app.Icon
}

// New returns a form for editing existing, or for a new app when existing is
// nil. modalHandler closes whatever hosts the form and may be nil.
func New(actions Actions, modalHandler func(), existing *app.App, logger *slog.Logger) *Form {
	if logger == nil {
		logger = slog.Default()
	}

	f := &Form{
		actions:      actions,
		modalHandler: modalHandler,
		logger:       logger,
	}
	f.SetApp(existing)
	return f
}

// SetApp replaces the edited app and resets the form state to a copy of it,
// or to the blank template.
func (f *Form) SetApp(existing *app.App) {
	if existing == nil {
		f.app = nil
		f.data = app.NewAppTemplate()
		return
	}

	a := *existing
	f.app = &a
	f.data = a.NewApp
}

// App is the app being edited, or nil for a new one.
func (f *Form) App() *app.App {
	return f.app
}

// Data is the current field state.
func (f *Form) Data() app.NewApp {
	return f.data
}

// UseCustomIcon reports whether the icon comes from a file upload.
func (f *Form) UseCustomIcon() bool {
	return f.useCustomIcon
}

// CustomIcon is the selected icon file, or nil.
func (f *Form) CustomIcon() *app.Icon {
	return f.customIcon
}

// HandleInput applies a text or select edit. At most one InputOptions is used.
func (f *Form) HandleInput(name, value string, opts ...InputOptions) error {
	var o InputOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	return applyInput(&f.data, name, value, o)
}

// HandleFile keeps the selected icon file. A nil file means the input had no
// files and leaves the current selection alone.
func (f *Form) HandleFile(icon *app.Icon) {
	if icon != nil {
		f.customIcon = icon
	}
}

// ToggleCustomIcon switches between the MDI name input and the file upload.
// Leaving upload mode drops the selected file.
func (f *Form) ToggleCustomIcon() {
	if f.useCustomIcon {
		f.customIcon = nil
	}
	f.useCustomIcon = !f.useCustomIcon
}

// Payload is what Submit would send right now.
func (f *Form) Payload() app.Payload {
	if f.customIcon != nil {
		return app.MultipartPayload(f.data, f.customIcon)
	}
	return app.PlainPayload(f.data)
}

// Submit dispatches the form to the add or update action and resets the form
// to the blank template. Action results do not change the flow; failures are
// only logged. The modal is closed after an update without an uploaded icon.
func (f *Form) Submit(ctx context.Context) {
	payload := f.Payload()

	if f.app == nil {
		if err := f.actions.AddApp(ctx, payload); err != nil {
			f.logger.Warn("Add app action failed", "name", payload.Fields.Name, "error", err)
		}
	} else {
		if err := f.actions.UpdateApp(ctx, f.app.ID, payload); err != nil {
			f.logger.Warn("Update app action failed", "id", f.app.ID, "error", err)
		}
		if !payload.IsMultipart() && f.modalHandler != nil {
			f.modalHandler()
		}
	}

	f.data = app.NewAppTemplate()
}
