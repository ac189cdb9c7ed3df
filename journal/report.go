package journal

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/rustyeddy/traderagent/ledger"
)

// BacktestReport summarises one backtest run.
type BacktestReport struct {
	RunID       string
	Created     time.Time
	Interval    string
	Dataset     string
	Instruments []string
	Model       string

	Start time.Time
	End   time.Time
	Steps int

	StartEquity float64
	EndEquity   float64
	RealizedPL  float64
	Unrealized  float64

	Fills    int
	Triggers int
	Wins     int
	Losses   int

	NetPL     float64
	ReturnPct float64
	WinRate   float64
	MaxDDPct  float64

	History []string
}

// Summarize fills in the derived fields from fills and the equity curve.
func (r *BacktestReport) Summarize(fills []FillRecord, equity []EquitySnapshot) {
	r.Fills = len(fills)
	r.Wins, r.Losses = 0, 0
	for _, f := range fills {
		if f.Action != ledger.ActionClose && f.Action != ledger.ActionSell {
			continue
		}
		switch {
		case f.RealizedPL > 0:
			r.Wins++
		case f.RealizedPL < 0:
			r.Losses++
		}
	}
	if closed := r.Wins + r.Losses; closed > 0 {
		r.WinRate = float64(r.Wins) / float64(closed)
	}

	r.NetPL = r.EndEquity - r.StartEquity
	if r.StartEquity != 0 {
		r.ReturnPct = r.NetPL / r.StartEquity * 100
	}

	peak := r.StartEquity
	r.MaxDDPct = 0
	for _, e := range equity {
		if e.Equity > peak {
			peak = e.Equity
		}
		if peak > 0 {
			if dd := (peak - e.Equity) / peak * 100; dd > r.MaxDDPct {
				r.MaxDDPct = dd
			}
		}
	}
}

var reportFuncs = template.FuncMap{
	"mul100": func(x float64) float64 { return x * 100.0 },
	"join":   strings.Join,
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

var reportTmpl = template.Must(template.New("backtest").Funcs(reportFuncs).Parse(BacktestOrgTemplate))

// Org renders the report as an Org-mode document.
func (r *BacktestReport) Org() (string, error) {
	buf := new(bytes.Buffer)
	if err := reportTmpl.Execute(buf, r); err != nil {
		return "", fmt.Errorf("render backtest report: %w", err)
	}
	return buf.String(), nil
}

// WriteOrg renders the report to path.
func (r *BacktestReport) WriteOrg(path string) error {
	s, err := r.Org()
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(s), 0o644)
}

const BacktestOrgTemplate = `* BACKTEST: {{join .Instruments ", "}} {{if .Interval}}{{.Interval}}{{else}}(interval?){{end}}
:PROPERTIES:
:RUN_ID:       {{if .RunID}}{{.RunID}}{{else}}(run-id?){{end}}
:MODEL:        {{if .Model}}{{.Model}}{{else}}(static){{end}}
:INSTRUMENTS:  {{join .Instruments " "}}
:DATASET:      {{if .Dataset}}{{.Dataset}}{{else}}(live fetch){{end}}
:START_DATE:   {{.Start.Format "2006-01-02 15:04"}}
:END_DATE:     {{.End.Format "2006-01-02 15:04"}}
:STEPS:        {{.Steps}}
:START_EQUITY: {{printf "%.2f" .StartEquity}}
:END_EQUITY:   {{printf "%.2f" .EndEquity}}
:NET_PL:       {{printf "%.2f" .NetPL}}
:RETURN_PCT:   {{printf "%.2f" .ReturnPct}}
:MAX_DD_PCT:   {{printf "%.2f" .MaxDDPct}}
:FILLS:        {{.Fills}}
:TRIGGERS:     {{.Triggers}}
:WINS:         {{.Wins}}
:LOSSES:       {{.Losses}}
:WIN_RATE:     {{printf "%.2f" (mul100 .WinRate)}}
:CREATED:      [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Performance Summary
- Net P/L:        *{{printf "%.2f" .NetPL}}*
- Realized P/L:   *{{printf "%.2f" .RealizedPL}}*
- Unrealized P/L: *{{printf "%.2f" .Unrealized}}*
- Return:         *{{printf "%.2f" .ReturnPct}}%*
- Max Drawdown:   *{{printf "%.2f" .MaxDDPct}}%*
- Win Rate:       *{{printf "%.2f" (mul100 .WinRate)}}%*

** Trade Distribution
| Outcome | Count |
|---------+-------|
| Wins    | {{.Wins}} |
| Losses  | {{.Losses}} |
| Fills   | {{.Fills}} |

{{- if .History }}

** Recent History
{{- range .History }}
- {{.}}
{{- end }}
{{- end }}
`
