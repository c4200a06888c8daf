package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/chartwatch/internal/models"
)

var _ list.Item = hitItem{}

// hitItem wraps [models.HitRecord] to implement [list.Item].
type hitItem struct {
	record models.HitRecord
}

func (i hitItem) FilterValue() string {
	return fmt.Sprintf("%s %s", i.record.Hit.Artist, i.record.Hit.ReleaseTitle)
}

func (i hitItem) Title() string {
	return fmt.Sprintf("%s - %s", i.record.Hit.Artist, i.record.Hit.ReleaseTitle)
}

func (i hitItem) Description() string {
	desc := fmt.Sprintf("%d плейлистов", len(i.record.Hit.Playlists))
	if i.record.Hit.WeekLabel != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.record.Hit.WeekLabel)
	}
	return desc
}
