package app

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound        = errors.New("app not found")
	ErrInvalidApp      = errors.New("invalid app")
	ErrUnsupportedIcon = errors.New("unsupported icon file type")
	ErrIconTooLarge    = errors.New("icon file too large")
)

// NewApp is an app without an identity: the shape of a draft or a request body.
type NewApp struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Icon     string `json:"icon"`
	IsPublic bool   `json:"isPublic"`
}

type App struct {
	ID int64 `json:"id"`
	NewApp
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewAppTemplate returns the blank draft used to seed an empty form.
func NewAppTemplate() NewApp {
	return NewApp{
		Name:     "",
		URL:      "",
		Icon:     "",
		IsPublic: true,
	}
}

// Validate checks required fields. iconAttached reports whether an uploaded
// file stands in for the icon name.
func (a NewApp) Validate(iconAttached bool) error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidApp)
	}
	if strings.TrimSpace(a.URL) == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidApp)
	}
	if !iconAttached && strings.TrimSpace(a.Icon) == "" {
		return fmt.Errorf("%w: icon is required", ErrInvalidApp)
	}
	return nil
}
