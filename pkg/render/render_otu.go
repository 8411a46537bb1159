// Render HTML for viewing an OTU

package render

import (
	"html/template"
	"io"

	"github.com/yumyai/swarmtable/logger"
	"github.com/yumyai/swarmtable/pkg/model"
	"go.uber.org/zap"
)

var otu_page_template *template.Template

// init initializes the templates used for rendering the OTU page.
func init() {
	mainTmpl := `
	<!DOCTYPE html>
	<html>
	<head>
		<title>OTU: {{ .OTU.Name }}</title>
	</head>
	<body>
		<h1>OTU: {{ .OTU.Name }}</h1>
		{{template "otu_summary" . }}
		{{template "otu_abundance" .OTU }}
		<h2>Resources</h2>
			<ul>
				<li>[<a href="/otu/{{ .OTU.Name }}/fasta" target="_blank">FASTA</a>] Representative sequence</li>
				<li>[<a href="/api/v1/otu/{{ .OTU.Name }}" target="_blank">JSON</a>] Abundances</li>
			</ul>
	</body>
	</html>`

	otuSummaryTmpl := `
	{{define "otu_summary"}}
		<div>
			<p>Clustering line: {{ .OTU.Line }}</p>
			<p>Seed: {{ .OTU.Seed.ID }} (size={{ .OTU.Seed.Size }})</p>
			<p>Total reads: {{ .OTU.TotalReads }} in {{ .Present }} / {{ .SampleCount }} samples</p>
		</div>
	{{end}}`

	otuAbundanceTmpl := `
	{{define "otu_abundance"}}
		<table border="1">
		<tr>
			<th>Sample</th>
			<th>Reads</th>
			<th>Share (%)</th>
		</tr>
		{{ range .Abundances }}
			<tr>
				<td>{{ .Sample }}</td>
				<td>{{ .Reads }}</td>
				<td>{{ percent .Reads $.TotalReads }}</td>
			</tr>
		{{ else }}
			<tr><td colspan="3">No reads assigned</td></tr>
		{{ end }}
		</table>
	{{end}}`

	funcMap := template.FuncMap{
		"percent": func(part, total int64) string {
			if total == 0 {
				return "0.00"
			}
			return formatPercent(float64(part) * 100 / float64(total))
		},
	}

	otu_page_template = template.New("otu_page").Funcs(funcMap)
	otu_page_template = template.Must(otu_page_template.Parse(mainTmpl))
	otu_page_template = template.Must(otu_page_template.Parse(otuSummaryTmpl))
	otu_page_template = template.Must(otu_page_template.Parse(otuAbundanceTmpl))
}

// RenderOTUPage writes the HTML page of one OTU. sampleCount is the number of
// columns of the table the OTU came from.
func RenderOTUPage(w io.Writer, otu *model.OTU, sampleCount int) error {

	logger.Debug("Rendering OTU page", zap.String("otu", otu.Name))

	present := 0
	for _, a := range otu.Abundances {
		if a.Reads > 0 {
			present++
		}
	}

	data := struct {
		OTU         *model.OTU
		Present     int
		SampleCount int
	}{
		OTU:         otu,
		Present:     present,
		SampleCount: sampleCount,
	}

	return otu_page_template.Execute(w, data)
}
