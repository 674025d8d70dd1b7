package terminal

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"

	"github.com/de-tools/spend-atlas/pkg/adapters"
	"github.com/de-tools/spend-atlas/pkg/models/api"
	"github.com/de-tools/spend-atlas/pkg/models/domain"
)

// Reporter prints run history and credential badges as plain text.
type Reporter struct {
	writer io.Writer
}

func NewReporter(writer io.Writer) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &Reporter{writer: writer}
}

func (c *Reporter) Runs(runs []domain.RunRecord) error {
	records := make([]api.RunRecord, 0, len(runs))
	for _, run := range runs {
		records = append(records, adapters.MapDomainRunToApi(run))
	}

	tmpl := `{{if not .}}No runs recorded yet.
{{end}}{{range .}}{{.StartedAt.Format "2006-01-02 15:04:05"}}  {{printf "%-16s" .State}} {{.Currency}} {{printf "%12s" .Total}}  {{.DurationMs}}ms{{if .FailedProviders}}  failed: {{join .FailedProviders}}{{end}}
{{end}}`
	return c.execute("runs", tmpl, records)
}

func (c *Reporter) CredentialStatus(status map[domain.ProviderID]domain.CredentialState) error {
	type badge struct {
		Name  string
		State domain.CredentialState
	}
	badges := make([]badge, 0, len(domain.Providers))
	for _, p := range domain.Providers {
		state, ok := status[p]
		if !ok {
			state = domain.CredentialNotConnected
		}
		badges = append(badges, badge{Name: p.DisplayName(), State: state})
	}

	tmpl := `{{range .}}{{printf "%-6s" .Name}} {{.State}}
{{end}}`
	return c.execute("credentials", tmpl, badges)
}

func (c *Reporter) execute(name, tmpl string, data any) error {
	t, err := template.New(name).Funcs(template.FuncMap{
		"join": func(items []string) string { return strings.Join(items, ",") },
	}).Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	return t.Execute(c.writer, data)
}
