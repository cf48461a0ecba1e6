package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"go_sitectl/internal/model"
)

// List output formats
const (
	formatTable = "table"
	formatCSV   = "csv"
	formatYAML  = "yaml"
	formatJSON  = "json"
	formatCount = "count"
	formatText  = "text"
)

var formats = []string{formatTable, formatCSV, formatYAML, formatJSON, formatCount, formatText}

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

func printSuccess(w io.Writer, format string, a ...interface{}) {
	fmt.Fprintf(w, "%s %s\n", successStyle.Render("Success:"), fmt.Sprintf(format, a...))
}

func printWarning(w io.Writer, format string, a ...interface{}) {
	fmt.Fprintf(w, "%s %s\n", warningStyle.Render("Warning:"), fmt.Sprintf(format, a...))
}

// printError writes the single terminal error line
func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %s\n", errorStyle.Render("Error:"), err)
}

// siteRow is a site as list prints it
type siteRow struct {
	Site     string `json:"site" yaml:"site"`
	Type     string `json:"type" yaml:"type"`
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	SSL      string `json:"ssl" yaml:"ssl"`
	Wildcard bool   `json:"wildcard" yaml:"wildcard"`
	Path     string `json:"path" yaml:"path"`
}

func toRows(sites []model.Site) []siteRow {
	rows := make([]siteRow, 0, len(sites))
	for _, s := range sites {
		rows = append(rows, siteRow{
			Site:     s.URL,
			Type:     s.Type,
			Enabled:  s.Enabled,
			SSL:      s.SSL,
			Wildcard: s.SSLWildcard,
			Path:     s.FSPath,
		})
	}
	return rows
}

func (r siteRow) fields() []string {
	return []string{r.Site, r.Type, strconv.FormatBool(r.Enabled), sslLabel(r.SSL), strconv.FormatBool(r.Wildcard), r.Path}
}

var siteHeaders = []string{"SITE", "TYPE", "ENABLED", "SSL", "WILDCARD", "PATH"}

func sslLabel(mode string) string {
	if mode == model.SSLNone {
		return "off"
	}
	return mode
}

// writeSites renders the site list in one of formats
func writeSites(w io.Writer, format string, sites []model.Site) error {
	rows := toRows(sites)

	switch format {
	case formatCount:
		_, err := fmt.Fprintln(w, len(rows))
		return err
	case formatText:
		for _, r := range rows {
			if _, err := fmt.Fprintln(w, r.Site); err != nil {
				return err
			}
		}
		return nil
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rows); err != nil {
			return err
		}
		return enc.Close()
	case formatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(siteHeaders); err != nil {
			return err
		}
		for _, r := range rows {
			if err := cw.Write(r.fields()); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	case formatTable:
		if len(rows) == 0 {
			_, err := fmt.Fprintln(w, "No sites found.")
			return err
		}
		t := table.New().Border(lipgloss.NormalBorder()).Headers(siteHeaders...)
		for _, r := range rows {
			t.Row(r.fields()...)
		}
		_, err := fmt.Fprintln(w, t.String())
		return err
	}
	return fmt.Errorf("unknown format %q (want %s)", format, strings.Join(formats, ", "))
}

// writeHistory renders journaled operations newest first
func writeHistory(w io.Writer, ops []model.SiteOperation) error {
	if len(ops) == 0 {
		_, err := fmt.Fprintln(w, "No operations recorded.")
		return err
	}
	t := table.New().Border(lipgloss.NormalBorder()).
		Headers("STARTED", "ACTION", "STATUS", "LEVEL", "ERROR")
	for _, op := range ops {
		t.Row(op.CreatedAt.Format("2006-01-02 15:04:05"), op.Action, op.Status, strconv.Itoa(op.Level), op.Error)
	}
	_, err := fmt.Fprintln(w, t.String())
	return err
}
