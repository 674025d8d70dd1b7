package export

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/template"

	"github.com/de-tools/spend-atlas/pkg/adapters"
	"github.com/de-tools/spend-atlas/pkg/models/api"
	"github.com/de-tools/spend-atlas/pkg/models/domain"
	"github.com/goccy/go-json"
)

type TableConfig struct {
	ProviderWidth int
	AmountWidth   int
	StatusWidth   int
}

func DefaultTableConfig() TableConfig {
	return TableConfig{
		ProviderWidth: 10,
		AmountWidth:   14,
		StatusWidth:   48,
	}
}

type Reporter struct {
	writer io.Writer
	config TableConfig
	json   bool
}

func NewReporter(writer io.Writer) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &Reporter{
		writer: writer,
		config: DefaultTableConfig(),
	}
}

// JSON switches the reporter to indented API JSON.
func (c *Reporter) JSON(enabled bool) *Reporter {
	c.json = enabled
	return c
}

type view struct {
	api.Snapshot
	Rows []api.ProviderResult
}

func (c *Reporter) Handle(snapshot *domain.Snapshot) error {
	out := adapters.MapDomainSnapshotToApi(snapshot)
	if c.json {
		enc := json.NewEncoder(c.writer)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	rows := make([]api.ProviderResult, 0, len(out.Providers))
	for _, p := range out.Providers {
		rows = append(rows, p)
	}
	sort.Slice(rows, func(i, j int) bool { return order(rows[i].Provider) < order(rows[j].Provider) })

	funcMap := template.FuncMap{
		"formatRow": func(provider, total, converted, forecast, status string) string {
			return fmt.Sprintf("| %-*s | %*s | %*s | %*s | %-*s |",
				c.config.ProviderWidth, provider,
				c.config.AmountWidth, total,
				c.config.AmountWidth, converted,
				c.config.AmountWidth, forecast,
				c.config.StatusWidth, truncate(status, c.config.StatusWidth))
		},
		"separator": func() string {
			return fmt.Sprintf("+%s+%s+%s+%s+%s+",
				strings.Repeat("-", c.config.ProviderWidth+2),
				strings.Repeat("-", c.config.AmountWidth+2),
				strings.Repeat("-", c.config.AmountWidth+2),
				strings.Repeat("-", c.config.AmountWidth+2),
				strings.Repeat("-", c.config.StatusWidth+2))
		},
		"forecast": func(p api.ProviderResult) string {
			if p.Forecast == nil {
				return "n/a"
			}
			return *p.Forecast
		},
		"status": func(p api.ProviderResult) string {
			switch {
			case p.Error != nil:
				return p.Error.Kind + ": " + p.Error.Message
			case p.Anomaly != nil:
				return "spike on " + p.Anomaly.Date
			default:
				return "ok"
			}
		},
	}

	tmpl := `
Cloud spend snapshot {{.Timestamp.Format "2006-01-02 15:04 MST"}}
Total: {{.Currency}} {{.TotalConverted}} (rate {{.Rate}})
{{if .DecryptionError}}
Stored credentials could not be decrypted. Re-enter them and refresh.
{{else if .NotConfigured}}
No provider credentials are configured. Add them to the credentials file and refresh.
{{else}}
{{separator}}
{{formatRow "Provider" "Total (USD)" (printf "Total (%s)" .Currency) "Forecast (USD)" "Status"}}
{{separator}}
{{range .Rows}}{{formatRow .DisplayName .TotalCost .Converted (forecast .) (status .)}}
{{end}}{{separator}}
{{range .Rows}}{{if .TopServices}}
=== {{.DisplayName}} top services ===
{{range .TopServices}}- {{.Name}}: {{.Amount}}
{{end}}{{end}}{{end}}{{end}}{{if .Alerts}}
=== Alerts ===
{{range .Alerts}}! {{.Title}}: {{.Message}}
{{end}}{{end}}`

	t, err := template.New("snapshot").Funcs(funcMap).Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	return t.Execute(c.writer, view{Snapshot: out, Rows: rows})
}

func order(provider string) int {
	for i, p := range domain.Providers {
		if string(p) == provider {
			return i
		}
	}
	return len(domain.Providers)
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}
