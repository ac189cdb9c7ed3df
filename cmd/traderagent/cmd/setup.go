package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rustyeddy/traderagent/config"
	"github.com/rustyeddy/traderagent/journal"
	"github.com/rustyeddy/traderagent/ledger"
	"github.com/rustyeddy/traderagent/market"
	"github.com/rustyeddy/traderagent/market/binance"
	"github.com/rustyeddy/traderagent/oracle"
	"github.com/rustyeddy/traderagent/runner"
	"github.com/rustyeddy/traderagent/store"
)

// session holds everything a trading command needs. Close releases the
// journal.
type session struct {
	cfg     *config.Config
	store   *store.File
	journal journal.Journal
	runner  *runner.Runner
}

func (s *session) Close() error {
	if s.journal == nil {
		return nil
	}
	return s.journal.Close()
}

func newProvider(cfg *config.Config) (market.Provider, error) {
	switch cfg.Market.Provider {
	case "csv":
		p, err := market.LoadCSVFile(cfg.Market.CSVPath)
		if err != nil {
			return nil, fmt.Errorf("load market csv: %w", err)
		}
		return p, nil
	default:
		timeout, err := cfg.MarketTimeout()
		if err != nil {
			return nil, err
		}
		return binance.New(binance.Config{
			BaseURL:  cfg.Market.BaseURL,
			Interval: cfg.Market.Interval,
			Limit:    cfg.Market.Limit,
			Quote:    cfg.Market.Quote,
			Timeout:  timeout,
		}), nil
	}
}

func newOracle(cfg *config.Config) (oracle.Oracle, error) {
	if cfg.Oracle.Provider == "static" {
		return oracle.NewStatic(cfg.Oracle.Responses...), nil
	}
	timeout, err := cfg.OracleTimeout()
	if err != nil {
		return nil, err
	}
	o, err := oracle.NewOpenAI(oracle.Config{
		BaseURL:           cfg.Oracle.BaseURL,
		APIKey:            cfg.APIKey(),
		Model:             cfg.Oracle.Model,
		FallbackModel:     cfg.Oracle.FallbackModel,
		Timeout:           timeout,
		MaxRetries:        cfg.Oracle.MaxRetries,
		RequestsPerMinute: cfg.Oracle.RequestsPerMinute,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set %s)", err, cfg.Oracle.APIKeyEnv)
	}
	return o, nil
}

func newJournal(cfg *config.Config) (journal.Journal, error) {
	switch cfg.Journal.Type {
	case "csv":
		if err := mkdirs(cfg.Journal.FillsFile, cfg.Journal.EquityFile); err != nil {
			return nil, err
		}
		return journal.NewCSV(cfg.Journal.FillsFile, cfg.Journal.EquityFile)
	case "sqlite":
		if err := mkdirs(cfg.Journal.DBPath); err != nil {
			return nil, err
		}
		return journal.NewSQLite(cfg.Journal.DBPath)
	default:
		return journal.Nop{}, nil
	}
}

// mkdirs creates the parent directory of every path.
func mkdirs(paths ...string) error {
	for _, p := range paths {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return err
		}
	}
	return nil
}

func defaultAccount(cfg *config.Config) func() *ledger.Account {
	return func() *ledger.Account {
		return ledger.NewAccount(cfg.StartingBalance(), cfg.Paper(), cfg.Account.Instruments...)
	}
}

// openSession loads the account and wires provider, oracle and journal.
// With fresh set the stored account is ignored.
func openSession(cfg *config.Config, fresh, persist bool) (*session, error) {
	st := store.New(cfg.StatePath())

	var acct *ledger.Account
	if fresh {
		acct = defaultAccount(cfg)()
	} else {
		var err error
		acct, err = st.Load(defaultAccount(cfg))
		if err != nil {
			return nil, err
		}
	}
	acct.PaperTrading = cfg.Paper()

	provider, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}
	orc, err := newOracle(cfg)
	if err != nil {
		return nil, err
	}
	j, err := newJournal(cfg)
	if err != nil {
		return nil, fmt.Errorf("create journal: %w", err)
	}

	opts := runner.Options{
		Account:     acct,
		Provider:    provider,
		Oracle:      orc,
		Journal:     j,
		Instruments: cfg.Account.Instruments,
		UseVolume:   cfg.Oracle.UseVolume,
		Policy:      cfg.Risk,
	}
	if persist {
		opts.Saver = st
	}
	r, err := runner.New(opts)
	if err != nil {
		j.Close()
		return nil, err
	}
	return &session{cfg: cfg, store: st, journal: j, runner: r}, nil
}

// confirmLive asks for an explicit YES before trading live. CI runs are
// never interactive and proceed.
func confirmLive(in io.Reader, out io.Writer, getenv func(string) string) bool {
	fmt.Fprintln(out, "⚠️  WARNING: LIVE TRADING MODE ENABLED")
	fmt.Fprintln(out, "  This will use real money. Are you sure?")
	if getenv("CI") != "" || getenv("GITHUB_ACTIONS") != "" {
		fmt.Fprintln(out, "  Running in CI/CD environment - proceeding automatically")
		return true
	}
	fmt.Fprint(out, "Type 'YES' to continue with live trading: ")
	line, _ := bufio.NewReader(in).ReadString('\n')
	if strings.TrimSpace(line) != "YES" {
		fmt.Fprintln(out, "Exiting for safety. Use --paper for simulation.")
		return false
	}
	return true
}

func modeText(cfg *config.Config) string {
	if cfg.Paper() {
		return "PAPER TRADING"
	}
	return "LIVE TRADING"
}

func volumeText(cfg *config.Config) string {
	if cfg.Oracle.UseVolume {
		return "with volume analysis"
	}
	return "price-only"
}
