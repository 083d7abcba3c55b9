// AI Financial Analyst: financial statements from FMP, summarized by Gemini.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/seenimoa/aifinanalyst/api"
	"github.com/seenimoa/aifinanalyst/internal/analyst"
	"github.com/seenimoa/aifinanalyst/internal/config"
	"github.com/seenimoa/aifinanalyst/internal/infra"
	"github.com/seenimoa/aifinanalyst/internal/llm"
	"github.com/seenimoa/aifinanalyst/internal/statement"
	"github.com/seenimoa/aifinanalyst/internal/summary"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config and logger
var (
	cfg    *config.Config
	logger *log.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "aifinanalyst",
	Short: "AI Financial Analyst: statement summaries from FMP data and Gemini",
	Long: `AI Financial Analyst
Fetches income statements, balance sheets and cash flow statements from
Financial Modeling Prep and asks Gemini to summarize each period and the
trends across them.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Logging.Level = lvl
		}

		var out io.Writer = os.Stderr
		switch strings.ToLower(cfg.Logging.Level) {
		case "warn", "error":
			// Failures reach the user as notices; info lines are dropped.
			out = io.Discard
		}
		logger = infra.NewLogger(out, cfg.Logging.Format)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
}

// pipeline wires the fetcher and the summary generator from cfg.
func pipeline(ctx context.Context) (*statement.Fetcher, *summary.Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	fetcher := statement.NewFetcher(cfg.FMP,
		statement.WithLogger(logger),
		statement.WithDebug(cfg.Logging.Debug()),
	)
	provider, err := llm.NewFromConfig(ctx, cfg.LLM)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create LLM provider: %w", err)
	}
	gen := summary.NewGeneratorFromConfig(provider, cfg.LLM, summary.WithLogger(logger))
	return fetcher, gen, nil
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("AI Financial Analyst %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Analyze Command ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze [ticker]",
	Short: "Fetch a financial statement and summarize it",
	Long: `Fetch the last N periods of one financial statement and print the
table followed by the model's summary.

Examples:
  aifinanalyst analyze AAPL
  aifinanalyst analyze msft --type "Balance Sheet" --period quarterly --limit 8
  aifinanalyst analyze TSLA --type cash-flow --export tsla.xlsx`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := requestFromFlags(cmd, args[0])
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fetcher, gen, err := pipeline(ctx)
		if err != nil {
			return err
		}
		res := analyst.New(fetcher, gen, analyst.WithLogger(logger)).Run(ctx, req)

		for _, n := range res.Notices {
			fmt.Fprintf(os.Stderr, "[%s] %s\n", n.Level, n.Message)
		}

		noTable, _ := cmd.Flags().GetBool("no-table")
		if !noTable && !res.Table.Empty() {
			fmt.Printf("%s %s (%s)\n\n", res.Request.Ticker, res.Request.Type, res.Request.Period)
			if err := printTable(os.Stdout, res.Table); err != nil {
				return err
			}
			fmt.Println()
		}

		if path, _ := cmd.Flags().GetString("export"); path != "" && !res.Table.Empty() {
			if err := exportTable(path, res); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Saved %s\n", path)
		}

		if res.Summary != "" {
			fmt.Println(res.Heading())
			fmt.Println(res.Summary)
		}
		if res.Outcome == analyst.OutcomeInvalid {
			return fmt.Errorf("invalid request")
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringP("type", "t", "", `statement type: "Income Statement", "Balance Sheet" or "Cash Flow" (default from config)`)
	analyzeCmd.Flags().StringP("period", "p", "", "annual or quarterly (default from config)")
	analyzeCmd.Flags().IntP("limit", "n", 0, "number of past statements, 1-10 (default from config)")
	analyzeCmd.Flags().String("export", "", "also write the table to a .csv or .xlsx file")
	analyzeCmd.Flags().Bool("no-table", false, "print only the summary")
}

// requestFromFlags builds the request, filling unset flags from config.
func requestFromFlags(cmd *cobra.Command, ticker string) (statement.Request, error) {
	typ, _ := cmd.Flags().GetString("type")
	period, _ := cmd.Flags().GetString("period")
	limit, _ := cmd.Flags().GetInt("limit")
	if typ == "" {
		typ = cfg.Request.DefaultType
	}
	if period == "" {
		period = cfg.Request.DefaultPeriod
	}
	if !cmd.Flags().Changed("limit") {
		limit = cfg.Request.DefaultLimit
	}

	t, err := statement.ParseType(typ)
	if err != nil {
		return statement.Request{}, err
	}
	p, err := statement.ParsePeriod(period)
	if err != nil {
		return statement.Request{}, err
	}
	return statement.NewRequest(ticker, t, p, limit), nil
}

// printTable writes one line per column with the periods side by side.
func printTable(w io.Writer, t *statement.Table) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, col := range t.Columns {
		cells := make([]string, 0, t.Len()+1)
		cells = append(cells, col)
		for i := 0; i < t.Len(); i++ {
			cells = append(cells, t.Cell(i, col))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func exportTable(path string, res *analyst.Result) error {
	format, err := statement.ParseExportFormat(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	title := res.Request.Ticker + " " + res.Request.Type.String()
	if err := statement.Export(f, res.Table, format, title); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// --- Serve Command (HTTP server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web page and HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.API.Port = port
		}
		fetcher, gen, err := pipeline(cmd.Context())
		if err != nil {
			return err
		}

		api.Version = version
		srv, err := api.NewServer(cfg, fetcher, gen, logger)
		if err != nil {
			return err
		}
		fmt.Printf("Starting AI Financial Analyst on http://%s\n", cfg.Addr())
		return srv.ListenAndServe(cfg.Addr())
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (default from config)")
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and API key status",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  AI Financial Analyst — Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Println()

		fmt.Println("  Configuration:")
		fmt.Printf("    FMP:           %s\n", cfg.FMP.BaseURL)
		fmt.Printf("    LLM:           %s backend (model: %s)\n", cfg.LLM.Backend, cfg.LLM.Model)
		fmt.Printf("    Defaults:      %s, %s, %d periods\n", cfg.Request.DefaultType, cfg.Request.DefaultPeriod, cfg.Request.DefaultLimit)
		fmt.Printf("    API Server:    %s\n", cfg.Addr())
		fmt.Println()

		fmt.Println("  API Keys:")
		for _, k := range config.CheckAPIKeys(cfg) {
			status := "not set"
			if k.IsSet {
				status = fmt.Sprintf("set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Printf("    %-25s %s\n", k.Name+":", status)
		}

		if check, _ := cmd.Flags().GetBool("check"); check {
			fmt.Println()
			fmt.Println("  Connectivity:")
			fmt.Printf("    %-25s %s\n", "Gemini:", checkGemini(cmd.Context()))
		}

		if err := cfg.Validate(); err != nil {
			fmt.Println()
			fmt.Println("  Problems:")
			for _, line := range strings.Split(err.Error(), "\n") {
				fmt.Printf("    - %s\n", line)
			}
		}
		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}

func init() {
	statusCmd.Flags().Bool("check", false, "ping Gemini to verify the key and model")
}

// checkGemini builds the configured provider and pings it.
func checkGemini(ctx context.Context) string {
	provider, err := llm.NewFromConfig(ctx, cfg.LLM)
	if err != nil {
		return "not configured: " + err.Error()
	}
	return llm.Describe(ctx, provider)
}
