// Package web holds the server-rendered timetable page.
package web

import (
	"embed"
	"html/template"
	"strings"

	"github.com/genplan/genplan-web/pkg/timetable"
)

// TimetableTemplate is the template name of the grid page.
const TimetableTemplate = "timetable.html"

//go:embed templates/*.html
var files embed.FS

// Templates parses the embedded page templates.
func Templates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"cellClass":   cellClass,
		"roomName":    roomName,
		"selected":    func(a, b string) bool { return strings.EqualFold(a, b) },
		"conflictFor": conflictFor,
	}).ParseFS(files, "templates/*.html")
}

// TimetablePage is the view model of the grid page.
type TimetablePage struct {
	Title         string
	Day           string
	Building      string
	Search        string
	AvailableDays []string
	Buildings     []string
	Grid          *timetable.Grid
	CacheHit      bool
}

func cellClass(cell timetable.Cell) string {
	classes := []string{"cell", "cell--" + string(cell.Category)}
	if cell.DoubleBooked {
		classes = append(classes, "cell--double")
	}
	if cell.Interactive {
		classes = append(classes, "cell--interactive")
	}
	return strings.Join(classes, " ")
}

func roomName(room timetable.Room) string {
	if room.Name != "" {
		return room.Name
	}
	return room.ID.String()
}

// conflictFor returns the reason shown in the conflict detail dialog.
func conflictFor(cell timetable.Cell) string {
	if !cell.Interactive || cell.Representative == nil {
		return ""
	}
	return cell.Representative.ConflictReason()
}
