package contract

import (
	"bytes"
	"fmt"
	"text/template"

	"foundermatch/internal/model"
)

type sectionTemplate struct {
	id    model.SectionID
	title string
	body  string
}

var sectionTemplates = []sectionTemplate{
	{
		id:    model.SectionEquity,
		title: "Equity",
		body: `{{.Entrepreneur.Name}} grants {{.Developer.Name}} {{printf "%.2f" .Equity.Percent}}% equity in "{{.IdeaTitle}}", ` +
			`vesting over {{.Equity.VestingMonths}} months with a {{.Equity.CliffMonths}} month cliff.`,
	},
	{
		id:    model.SectionMilestones,
		title: "Milestones",
		body: `{{.Developer.Name}} will deliver the following milestones{{with .Timeline}} within {{.}}{{end}}:
{{range $i, $m := .Milestones}}{{inc $i}}. {{$m.Title}}{{with $m.Duration}} ({{.}}){{end}}, estimated {{printf "%.1f" $m.EstimatedHours}} hours{{with $m.Description}}: {{.}}{{end}}
{{end}}`,
	},
	{
		id:    model.SectionIP,
		title: "Intellectual Property",
		body: `All work product created by {{.Developer.Name}} for "{{.IdeaTitle}}" is assigned to the venture owned by {{.Entrepreneur.Name}} ` +
			`once the corresponding milestone is approved.`,
	},
	{
		id:    model.SectionConfidentiality,
		title: "Confidentiality",
		body: `Both parties keep non-public information about "{{.IdeaTitle}}" confidential during the collaboration and for 24 months after it ends.`,
	},
	{
		id:    model.SectionTermination,
		title: "Termination",
		body: `Either party may terminate with 14 days written notice. Unvested equity is forfeited; vested equity is retained by {{.Developer.Name}}.`,
	},
	{
		id:    model.SectionDispute,
		title: "Dispute Resolution",
		body: `{{.Entrepreneur.Name}} and {{.Developer.Name}} will first attempt to resolve disputes in good faith before mediation.`,
	},
}

var funcs = template.FuncMap{"inc": func(i int) int { return i + 1 }}

var compiled = func() map[model.SectionID]*template.Template {
	out := make(map[model.SectionID]*template.Template, len(sectionTemplates))
	for _, st := range sectionTemplates {
		out[st.id] = template.Must(template.New(string(st.id)).Funcs(funcs).Parse(st.body))
	}
	return out
}()

func renderSection(id model.SectionID, c *model.Contract) (string, error) {
	tpl, ok := compiled[id]
	if !ok {
		return "", fmt.Errorf("no template for section %q", id)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, c); err != nil {
		return "", fmt.Errorf("render section %s: %w", id, err)
	}
	return buf.String(), nil
}

// renderSections 按 SectionOrder 生成初始条款，修订号从 1 开始
func renderSections(c *model.Contract) ([]model.Section, error) {
	out := make([]model.Section, 0, len(sectionTemplates))
	for _, st := range sectionTemplates {
		body, err := renderSection(st.id, c)
		if err != nil {
			return nil, err
		}
		out = append(out, model.Section{ID: st.id, Title: st.title, Body: body, Revision: 1})
	}
	return out, nil
}
