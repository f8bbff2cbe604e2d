package report

import (
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/ops-tooling/rolegraph/pkg/graph"
)

// HTMLOptions configures the HTML inventory table.
type HTMLOptions struct {
	// Title is the page heading.
	Title string
	// IncludeUnknown lists placeholder nodes too. When false only
	// discovered units appear.
	IncludeUnknown bool
	// ImageRef, when set, embeds a link to the rendered graph image.
	ImageRef string
	// Footer is a muted line at the bottom of the page (run ID, timestamp).
	Footer string
}

type htmlRow struct {
	Name        string
	Kind        string
	Project     string
	Group       string
	WebURL      string
	SSHURL      string
	Description string
	GitTags     string
	DependsOn   []htmlDep
	UsedBy      int
}

type htmlDep struct {
	Name        string
	Placeholder bool
}

type htmlPage struct {
	Title    string
	ImageRef string
	Footer   string
	Rows     []htmlRow
	Counts   map[string]int
}

var pageTemplate = template.Must(template.New("inventory").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
  body { font-family: sans-serif; margin: 2em; }
  table { border-collapse: collapse; width: 100%; }
  th, td { border: 1px solid #ccc; padding: 0.4em 0.8em; text-align: left; vertical-align: top; }
  th { background: #f0f0f0; }
  tr:nth-child(even) { background: #fafafa; }
  .kind-role { color: #1a6fb0; }
  .kind-playbook { color: #1f8a3b; }
  .kind-unknown { color: #c0392b; font-weight: bold; }
  .kind-external { color: #b8860b; }
  .missing { color: #c0392b; }
  .summary { margin-bottom: 1em; color: #555; }
  .footer { margin-top: 2em; color: #999; font-size: 0.85em; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p class="summary">
{{- range $kind, $n := .Counts}} {{$n}} {{$kind}}{{if ne $n 1}}s{{end}};{{end}}
</p>
{{if .ImageRef}}<p><a href="{{.ImageRef}}">Graph image</a></p>{{end}}
<table>
<tr><th>Name</th><th>Kind</th><th>Group</th><th>Project</th><th>Description</th><th>Git tags</th><th>Depends on</th><th>Used by</th></tr>
{{range .Rows}}<tr>
  <td>{{if .WebURL}}<a href="{{.WebURL}}">{{.Name}}</a>{{else}}{{.Name}}{{end}}</td>
  <td class="kind-{{.Kind}}">{{.Kind}}</td>
  <td>{{.Group}}</td>
  <td{{if .SSHURL}} title="{{.SSHURL}}"{{end}}>{{.Project}}</td>
  <td>{{.Description}}</td>
  <td>{{.GitTags}}</td>
  <td>{{range $i, $d := .DependsOn}}{{if $i}}, {{end}}{{if $d.Placeholder}}<span class="missing">{{$d.Name}}</span>{{else}}{{$d.Name}}{{end}}{{end}}</td>
  <td>{{.UsedBy}}</td>
</tr>
{{end}}</table>
{{if .Footer}}<p class="footer">{{.Footer}}</p>{{end}}
</body>
</html>
`))

// WriteHTML renders the graph's inventory table to w.
func WriteHTML(w io.Writer, g *graph.Graph, opts HTMLOptions) error {
	full := g
	if !opts.IncludeUnknown {
		g = g.Resolved()
	}

	page := htmlPage{
		Title:    opts.Title,
		ImageRef: opts.ImageRef,
		Footer:   opts.Footer,
		Counts:   make(map[string]int),
	}
	if page.Title == "" {
		page.Title = "Ansible role inventory"
	}

	for _, n := range g.Nodes() {
		page.Counts[string(n.Kind)]++
		row := htmlRow{
			Name:        n.ID,
			Kind:        string(n.Kind),
			Project:     n.Project,
			Group:       n.Group,
			WebURL:      n.WebURL,
			SSHURL:      n.SSHURL,
			Description: n.Description,
			GitTags:     strings.Join(n.GitTags, ", "),
			UsedBy:      len(g.Parents(n.ID)),
		}
		for _, dep := range g.Children(n.ID) {
			placeholder := false
			// Flag targets missing from the full graph's discovered set.
			if target, ok := full.Node(dep); ok {
				placeholder = target.IsPlaceholder()
			}
			row.DependsOn = append(row.DependsOn, htmlDep{Name: dep, Placeholder: placeholder})
		}
		page.Rows = append(page.Rows, row)
	}

	if err := pageTemplate.Execute(w, page); err != nil {
		return fmt.Errorf("render HTML: %w", err)
	}
	return nil
}

// HTMLString renders the inventory table to a string, for tests and the
// embedded server.
func HTMLString(g *graph.Graph, opts HTMLOptions) (string, error) {
	var b strings.Builder
	if err := WriteHTML(&b, g, opts); err != nil {
		return "", err
	}
	return b.String(), nil
}
