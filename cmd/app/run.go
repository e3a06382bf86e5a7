package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"FinWalk/internal/domain/models"
	"FinWalk/pkg/config"
	applogger "FinWalk/pkg/logger"
)

var (
	runInput         string
	runOutput        string
	runSymbol        string
	runFrom          string
	runTo            string
	runTF            string
	runLimit         int
	runSplits        int
	runStride        int
	runWindowLen     int
	runOOSLen        int
	runDirection     string
	runIncludeScores bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one walk-forward analysis and print the JSON report",
	Long: `Run one walk-forward analysis. The series comes either from a JSON request
file (--input, same body as POST /api/walkforward) or from the price store
(--symbol with optional --from/--to/--tf). Flags override file values.

Examples:
  finwalk run --input request.json
  finwalk run --symbol BTCUSDT --tf 1d --from 2019-01-01 --splits 20
  finwalk run --symbol ETHUSDT --stride 30 --direction both --out report.json`,
	RunE: runWalkForward,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runInput, "input", "", "JSON request file")
	f.StringVar(&runOutput, "out", "", "write the report to this file instead of stdout")
	f.StringVar(&runSymbol, "symbol", "", "symbol to load from the price store")
	f.StringVar(&runFrom, "from", "", "range start (RFC3339, date or unix seconds)")
	f.StringVar(&runTo, "to", "", "range end (RFC3339, date or unix seconds)")
	f.StringVar(&runTF, "tf", "", "candle timeframe")
	f.IntVar(&runLimit, "limit", 0, "keep at most this many most recent bars")
	f.IntVar(&runSplits, "splits", 0, "number of splits")
	f.IntVar(&runStride, "stride", 0, "distance between window starts")
	f.IntVar(&runWindowLen, "window", 0, "window length in bars")
	f.IntVar(&runOOSLen, "oos", 0, "out-of-sample length in bars")
	f.StringVar(&runDirection, "direction", "", "long, short or both")
	f.BoolVar(&runIncludeScores, "include-scores", false, "include the in-sample score table")
	runCmd.MarkFlagsMutuallyExclusive("splits", "stride")
}

func runWalkForward(cmd *cobra.Command, _ []string) error {
	req, err := buildRunRequest(cmd)
	if err != nil {
		return err
	}
	if req.Symbol == "" && len(req.Points) == 0 {
		return fmt.Errorf("either --input with points or --symbol is required")
	}

	// stdout carries the report
	app, err := initApp(func(cfg *config.Config) {
		if cfg.Logger.Output == "stdout" {
			cfg.Logger.Output = "stderr"
		}
	})
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := app.WalkForward().Run(ctx, req)
	if err != nil {
		return err
	}
	app.Logger().Info("walkforward report ready",
		applogger.String("run_id", res.RunID),
		applogger.Int("splits", len(res.Splits)),
	)
	return writeReport(models.NewRunReport(res, req.IncludeScores))
}

func buildRunRequest(cmd *cobra.Command) (*models.WalkForwardRequest, error) {
	req := &models.WalkForwardRequest{}
	if runInput != "" {
		b, err := os.ReadFile(runInput)
		if err != nil {
			return nil, fmt.Errorf("read input: %w", err)
		}
		if err := json.Unmarshal(b, req); err != nil {
			return nil, fmt.Errorf("parse input: %w", err)
		}
	}

	f := cmd.Flags()
	setString := func(name string, dst *string, v string) {
		if f.Changed(name) {
			*dst = v
		}
	}
	setInt := func(name string, dst *int, v int) {
		if f.Changed(name) {
			*dst = v
		}
	}
	setString("symbol", &req.Symbol, runSymbol)
	setString("from", &req.From, runFrom)
	setString("to", &req.To, runTo)
	setString("tf", &req.TF, runTF)
	setString("direction", &req.Direction, runDirection)
	setInt("limit", &req.Limit, runLimit)
	setInt("splits", &req.Splits, runSplits)
	setInt("stride", &req.Stride, runStride)
	setInt("window", &req.WindowLen, runWindowLen)
	setInt("oos", &req.OOSLen, runOOSLen)
	if f.Changed("splits") {
		req.Stride = 0
	}
	if f.Changed("stride") {
		req.Splits = 0
	}
	if f.Changed("include-scores") {
		req.IncludeScores = runIncludeScores
	}
	if req.TF == "" {
		req.TF = "1d"
	}
	return req, nil
}

func writeReport(rep *models.RunReport) error {
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	b = append(b, '\n')
	if runOutput == "" {
		_, err = os.Stdout.Write(b)
		return err
	}
	return os.WriteFile(runOutput, b, 0o644)
}
