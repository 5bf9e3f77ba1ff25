package web

import (
	"bytes"
	"embed"
	"html/template"

	"healthscope/internal/logger"
	"healthscope/internal/model"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses the page templates. Pages are addressed by file name,
// e.g. "dashboard.html".
func Templates() (*template.Template, error) {
	return template.New("").Funcs(Funcs()).ParseFS(templateFS, "templates/*.html")
}

func Funcs() template.FuncMap {
	return template.FuncMap{
		"statusClass": statusClass,
		"abnormal":    abnormalCount,
		"markdown":    renderMarkdown,
	}
}

func statusClass(status string) string {
	switch status {
	case model.StatusHigh:
		return "status-high"
	case model.StatusLow:
		return "status-low"
	}
	return "status-normal"
}

func abnormalCount(records []model.BiomarkerRecord) int {
	n := 0
	for _, r := range records {
		if r.Abnormal() {
			n++
		}
	}
	return n
}

// md leaves raw HTML out of the output and blanks javascript: style links.
var md = goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough))

// renderMarkdown turns model-written Markdown into HTML for the dashboard.
func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		logger.Warn("markdown render failed", "err", err)
		return template.HTML("<pre>" + template.HTMLEscapeString(text) + "</pre>")
	}
	return template.HTML(buf.String())
}
