package server

import (
	"flame/service/app"
	"flame/service/appform"
	"flame/service/util"
)

type AppListItem struct {
	ID         int64
	Name       string
	Href       string
	DisplayURL string
	IconURL    string
	IconName   string
	IsPublic   bool
}

type submitResultData struct {
	Apps []AppListItem
	Form appform.View
}

func newAppListItems(icons *app.IconStore, apps []app.App) []AppListItem {
	items := make([]AppListItem, 0, len(apps))
	for _, a := range apps {
		item := AppListItem{
			ID:         a.ID,
			Name:       a.Name,
			Href:       util.NormalizeURL(a.URL),
			DisplayURL: util.DisplayURL(a.URL),
			IsPublic:   a.IsPublic,
		}
		if icons.IsUploaded(a.Icon) {
			item.IconURL = "/uploads/" + a.Icon
		} else {
			item.IconName = a.Icon
		}
		items = append(items, item)
	}
	return items
}
