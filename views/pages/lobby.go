// Package pages holds the server's templ pages. Run templ generate after
// editing a .templ file.
package pages

import "snakebattle/internal/viewmodel"

func roomState(room viewmodel.RoomSummary) string {
	if room.Open {
		return "open"
	}
	return "closed"
}

func ownerLabel(room viewmodel.RoomSummary) string {
	if room.Owner == "" {
		return "-"
	}
	return room.Owner
}

func powerUpsLabel(room viewmodel.RoomSummary) string {
	if room.PowerUps {
		return "on"
	}
	return "off"
}
