package transition

import (
	htmltemplate "html/template"
	"strings"
	"text/template"
)

// view is the flattened data every template renders from.
type view struct {
	PRID         string
	PRNumber     string
	Description  string
	Amount       string
	Organization string
	Requestor    string
	Actor        string
	Approvers    string
	Previous     string
	Status       string
	Notes        string
	Link         string
	ReminderDate string
	Intro        string
	Selections   []selection
}

type selection struct {
	Approver string
	Vendor   string
	Amount   string
}

const textLayout = `Hello,

{{.Intro}}

Purchase request: {{.PRNumber}}
Description: {{.Description}}
Amount: {{.Amount}}
Requested by: {{.Requestor}}
{{- if .Approvers}}
Approvers: {{.Approvers}}
{{- end}}
Status: {{.Status}}
{{- range .Selections}}
- {{.Approver}} selected {{.Vendor}} at {{.Amount}}
{{- end}}
{{- if .Notes}}

Notes: {{.Notes}}
{{- end}}
{{- if .Link}}

View the request: {{.Link}}
{{- end}}
`

const htmlLayout = `<p>Hello,</p>
<p>{{.Intro}}</p>
<table>
<tr><td>Purchase request</td><td>{{.PRNumber}}</td></tr>
<tr><td>Description</td><td>{{.Description}}</td></tr>
<tr><td>Amount</td><td>{{.Amount}}</td></tr>
<tr><td>Requested by</td><td>{{.Requestor}}</td></tr>
{{- if .Approvers}}
<tr><td>Approvers</td><td>{{.Approvers}}</td></tr>
{{- end}}
<tr><td>Status</td><td>{{.Status}}</td></tr>
</table>
{{- if .Selections}}
<ul>
{{- range .Selections}}
<li>{{.Approver}} selected {{.Vendor}} at {{.Amount}}</li>
{{- end}}
</ul>
{{- end}}
{{- if .Notes}}
<p>Notes: {{.Notes}}</p>
{{- end}}
{{- if .Link}}
<p><a href="{{.Link}}">View the request</a></p>
{{- end}}
`

var (
	textBody = template.Must(template.New("text").Parse(textLayout))
	htmlBody = htmltemplate.Must(htmltemplate.New("html").Parse(htmlLayout))
)

// render fills the subject and intro snippets, then both layouts.
func render(subject, intro *template.Template, v view) (Content, error) {
	var c Content

	s, err := execute(subject, v)
	if err != nil {
		return c, err
	}
	c.Subject = s

	if v.Intro, err = execute(intro, v); err != nil {
		return c, err
	}

	var text strings.Builder
	if err := textBody.Execute(&text, v); err != nil {
		return c, err
	}
	c.Text = text.String()

	var html strings.Builder
	if err := htmlBody.Execute(&html, v); err != nil {
		return c, err
	}
	c.HTML = html.String()
	return c, nil
}

func execute(t *template.Template, v view) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, v); err != nil {
		return "", err
	}
	return strings.TrimSpace(b.String()), nil
}
