// Copyright 2025 The perfmodel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package report

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/google/safehtml/template"

	"github.com/perfmodel/perfmodel/experiment"
	"github.com/perfmodel/perfmodel/modelgen"
)

var htmlTmpl = template.Must(template.New("report").ParseFromTrustedTemplate(template.MakeTrustedTemplate(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Performance models</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; margin-bottom: 2em; }
th, td { border: 1px solid #ccc; padding: 0.3em 0.8em; text-align: left; }
th { background: #f0f0f0; }
caption { font-weight: bold; text-align: left; padding: 0.5em 0; }
td.fn { font-family: monospace; }
td.warn { color: #a65f00; }
</style>
</head>
<body>
<h1>Performance models</h1>
<p>Parameters: {{.Parameters}}</p>
{{range .Callpaths}}<table>
<caption>{{.Name}}</caption>
<tr><th>Metric</th><th>Model</th><th>Modeler</th><th>RSS</th><th>SMAPE</th><th>AR2</th></tr>
{{range .Rows}}<tr><td>{{.Metric}}</td><td class="fn">{{.Function}}</td><td>{{.Modeler}}</td><td>{{.RSS}}</td><td>{{.SMAPE}}</td><td>{{.AR2}}</td></tr>
{{if .Warnings}}<tr><td></td><td colspan="5" class="warn">{{.Warnings}}</td></tr>
{{end}}{{end}}</table>
{{end}}</body>
</html>
`)))

type htmlReport struct {
	Parameters string
	Callpaths  []htmlCallpath
}

type htmlCallpath struct {
	Name string
	Rows []htmlRow
}

type htmlRow struct {
	Metric   string
	Function string
	Modeler  string
	RSS      string
	SMAPE    string
	AR2      string
	Warnings string
}

// HTML writes the full report as a standalone HTML page.
func HTML(w io.Writer, exp *experiment.Experiment, set *modelgen.ModelSet) error {
	names := exp.ParameterNames()
	data := htmlReport{Parameters: strings.Join(names, ", ")}
	for _, m := range set.All() {
		if len(data.Callpaths) == 0 || data.Callpaths[len(data.Callpaths)-1].Name != m.Callpath.Name {
			data.Callpaths = append(data.Callpaths, htmlCallpath{Name: m.Callpath.Name})
		}
		cp := &data.Callpaths[len(data.Callpaths)-1]

		ar2 := "n/a"
		if !math.IsNaN(m.Stats.AR2) {
			ar2 = fmt.Sprintf("%.4g", m.Stats.AR2)
		}
		var warns []string
		for _, warn := range m.Warnings {
			warns = append(warns, warn.Error())
		}
		cp.Rows = append(cp.Rows, htmlRow{
			Metric:   m.Metric.Name,
			Function: m.Function.Format(names),
			Modeler:  modelerName(m),
			RSS:      fmt.Sprintf("%.4g", m.Stats.RSS),
			SMAPE:    fmt.Sprintf("%.4g%%", m.Stats.SMAPE),
			AR2:      ar2,
			Warnings: strings.Join(warns, "; "),
		})
	}
	return htmlTmpl.Execute(w, data)
}
