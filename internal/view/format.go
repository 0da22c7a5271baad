package view

import (
	"fmt"
	"time"

	"lab-manager/internal/model"
)

var monthNames = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// FormatTimestamp renders t as "5 de marzo de 2024, 14:30" in loc.
func FormatTimestamp(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc != nil {
		t = t.In(loc)
	}
	return fmt.Sprintf("%d de %s de %d, %02d:%02d",
		t.Day(), monthNames[t.Month()-1], t.Year(), t.Hour(), t.Minute())
}

// ComponentIcon names the icon for a component type. Unknown types have none.
func ComponentIcon(t model.ComponentType) string {
	if !t.Valid() {
		return ""
	}
	if t == model.ComponentPC {
		return "cpu"
	}
	return string(t)
}

var glyphs = map[string]string{
	"monitor":  "\U0001F5A5",
	"cpu":      "\U0001F4BB",
	"keyboard": "⌨",
	"mouse":    "\U0001F5B1",
	"network":  "\U0001F5A7",
	"check":    "✔",
	"alert":    "⚠",
}

// Glyph returns the character drawn for an icon name.
func Glyph(icon string) string {
	return glyphs[icon]
}

// StatusIcon is "check" for operational computers and "alert" otherwise.
func StatusIcon(s model.Status) string {
	if s.Operational() {
		return "check"
	}
	return "alert"
}

// CardClass picks the border colour of a dashboard card.
func CardClass(s model.Status) string {
	if s.Operational() {
		return "card card-ok"
	}
	return "card card-down"
}
