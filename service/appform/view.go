package appform

import "flame/service/app"

const (
	IconPlaceholder = "book-open-outline"
	MDIReferenceURL = "https://materialdesignicons.com/"
)

type SelectOption struct {
	Value    string
	Label    string
	Selected bool
}

// View is the render model of a form.
type View struct {
	ID     int64
	IsEdit bool

	Name     string
	URL      string
	Icon     string
	IsPublic bool

	UseCustomIcon   bool
	IconPlaceholder string
	IconAccept      string
	MDIReferenceURL string

	VisibilityOptions []SelectOption
	SubmitLabel       string
}

func (f *Form) View() View {
	v := View{
		Name:     f.data.Name,
		URL:      f.data.URL,
		Icon:     f.data.Icon,
		IsPublic: f.data.IsPublic,

		UseCustomIcon:   f.useCustomIcon,
		IconPlaceholder: IconPlaceholder,
		IconAccept:      app.IconAccept,
		MDIReferenceURL: MDIReferenceURL,

		VisibilityOptions: []SelectOption{
			{Value: "1", Label: "Visible (anyone can access it)", Selected: f.data.IsPublic},
			{Value: "0", Label: "Hidden (authentication required)", Selected: !f.data.IsPublic},
		},
		SubmitLabel: "Add new application",
	}

	if f.app != nil {
		v.ID = f.app.ID
		v.IsEdit = true
		v.SubmitLabel = "Update application"
	}

	return v
}
