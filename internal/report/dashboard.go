package report

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/blackwell-systems/boostusage/internal/analyzer"
)

// ChartJSURL is the Chart.js build loaded by every dashboard page.
const ChartJSURL = "https://cdn.jsdelivr.net/npm/chart.js@4.4.0/dist/chart.umd.min.js"

//go:embed templates/*.tmpl
var templateFS embed.FS

// Dashboard renders the static HTML dashboard.
type Dashboard struct {
	tmpl *template.Template
}

type barChart struct {
	ID     string
	Label  string
	Color  string
	Border string
	Rotate bool
	Labels []string
	Data   []int
}

type indexPage struct {
	ChartJS      string
	Top          int
	Data         *analyzer.DashboardData
	YearChart    barChart
	VersionChart barChart
}

type libraryPage struct {
	ChartJS    string
	Library    analyzer.LibraryDetail
	UsageChart barChart
}

// NewDashboard parses the embedded page templates.
func NewDashboard() (*Dashboard, error) {
	funcs := template.FuncMap{
		"comma":    func(n int) string { return humanize.Comma(int64(n)) },
		"pageName": PageName,
	}
	tmpl, err := template.New("dashboard").Funcs(funcs).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse dashboard templates: %w", err)
	}
	return &Dashboard{tmpl: tmpl}, nil
}

// PageName returns the file name of a library's detail page.
func PageName(library string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", "..", "_")
	return r.Replace(library) + ".html"
}

// Write renders index.html, one libraries/<name>.html page per library and
// dashboard_data.json into dir. It returns the number of library pages.
func (d *Dashboard) Write(dir string, data *analyzer.DashboardData) (int, error) {
	libDir := filepath.Join(dir, "libraries")
	if err := os.MkdirAll(libDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create dashboard directory: %w", err)
	}

	if err := writeJSON(filepath.Join(dir, "dashboard_data.json"), data); err != nil {
		return 0, err
	}

	top := len(data.TopLibraries)
	if len(data.BottomLibraries) > top {
		top = len(data.BottomLibraries)
	}
	index := indexPage{
		ChartJS:      ChartJSURL,
		Top:          top,
		Data:         data,
		YearChart:    yearChart("reposByYearChart", "Repository Count", data.ReposByYear),
		VersionChart: versionChart(data.ReposByVersion),
	}
	if err := d.render(filepath.Join(dir, "index.html"), "index.html.tmpl", index); err != nil {
		return 0, err
	}

	pages := 0
	for _, name := range data.AllLibraries {
		detail, ok := data.Libraries[name]
		if !ok {
			detail = analyzer.LibraryDetail{Name: name}
		}
		if detail.Name == "" {
			detail.Name = name
		}
		page := libraryPage{
			ChartJS:    ChartJSURL,
			Library:    detail,
			UsageChart: yearChart("usageChart", "Usage Count", detail.UsageByYear),
		}
		if err := d.render(filepath.Join(libDir, PageName(name)), "library.html.tmpl", page); err != nil {
			return pages, err
		}
		pages++
	}
	return pages, nil
}

func (d *Dashboard) render(path, name string, data any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := d.tmpl.ExecuteTemplate(f, name, data); err != nil {
		f.Close()
		return fmt.Errorf("failed to render %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, data *analyzer.DashboardData) error {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode dashboard data: %w", err)
	}
	if err := os.WriteFile(path, b, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func yearChart(id, label string, years []analyzer.YearCount) barChart {
	c := barChart{ID: id, Label: label, Color: "rgba(54, 162, 235, 0.6)", Border: "rgba(54, 162, 235, 1)"}
	c.Labels = make([]string, 0, len(years))
	c.Data = make([]int, 0, len(years))
	for _, y := range years {
		c.Labels = append(c.Labels, strconv.Itoa(y.Year))
		c.Data = append(c.Data, y.Count)
	}
	return c
}

func versionChart(versions []analyzer.VersionCount) barChart {
	c := barChart{
		ID:     "reposByVersionChart",
		Label:  "Repository Count",
		Color:  "rgba(75, 192, 192, 0.6)",
		Border: "rgba(75, 192, 192, 1)",
		Rotate: true,
	}
	c.Labels = make([]string, 0, len(versions))
	c.Data = make([]int, 0, len(versions))
	for _, v := range versions {
		c.Labels = append(c.Labels, v.Version)
		c.Data = append(c.Data, v.Count)
	}
	return c
}
