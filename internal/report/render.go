package report

import (
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

const htmlTemplateSource = `<html>
<body style="font-family: sans-serif; color: #222;">
  <h2>Your week in habits</h2>
  <p>{{if .DisplayName}}Hi {{.DisplayName}},{{else}}Hi,{{end}}
  here is your summary for {{.WeekStart.Format "Jan 2"}} – {{.WeekEnd.Format "Jan 2"}}.</p>
  {{if .Habits}}
  <table cellpadding="6" cellspacing="0" border="0">
    <tr><th align="left">Habit</th><th align="left">Done</th><th align="left">Streak</th></tr>
    {{range .Habits}}
    <tr>
      <td>{{.Name}}</td>
      <td>{{.CompletedDays}}/{{.TrackedDays}} ({{.RatePercent}}%)</td>
      <td>{{.CurrentStreak}} days</td>
    </tr>
    {{end}}
  </table>
  <p>Overall: {{.TotalDone}} of {{.TotalSlots}} tracked days completed.</p>
  {{else}}
  <p>No habits were tracked this week. A fresh start awaits!</p>
  {{end}}
</body>
</html>`

const textTemplateSource = `Your week in habits
{{if .DisplayName}}Hi {{.DisplayName}},{{else}}Hi,{{end}} here is your summary for {{.WeekStart.Format "Jan 2"}} - {{.WeekEnd.Format "Jan 2"}}.
{{if .Habits}}{{range .Habits}}
- {{.Name}}: {{.CompletedDays}}/{{.TrackedDays}} days ({{.RatePercent}}%), streak {{.CurrentStreak}}
{{- end}}

Overall: {{.TotalDone}} of {{.TotalSlots}} tracked days completed.
{{else}}
No habits were tracked this week. A fresh start awaits!
{{end}}`

var (
	htmlTemplate = htmltemplate.Must(htmltemplate.New("weekly_html").Parse(htmlTemplateSource))
	textTemplate = texttemplate.Must(texttemplate.New("weekly_text").Parse(textTemplateSource))
)

// Render produces the HTML and plain-text bodies for the weekly email.
func Render(summary WeeklyReport) (html string, text string, err error) {
	var htmlBuilder, textBuilder strings.Builder
	if err := htmlTemplate.Execute(&htmlBuilder, summary); err != nil {
		return "", "", fmt.Errorf("report: render html: %w", err)
	}
	if err := textTemplate.Execute(&textBuilder, summary); err != nil {
		return "", "", fmt.Errorf("report: render text: %w", err)
	}
	return htmlBuilder.String(), textBuilder.String(), nil
}

// Subject formats the email subject line for the summary.
func Subject(summary WeeklyReport) string {
	return fmt.Sprintf("Your habit week, %s – %s",
		summary.WeekStart.Format("Jan 2"), summary.WeekEnd.Format("Jan 2"))
}
