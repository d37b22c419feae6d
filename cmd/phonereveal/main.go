package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/go-scripts/phonereveal/internal/browser"
	"github.com/go-scripts/phonereveal/internal/extract"
	"github.com/go-scripts/phonereveal/internal/phone"
	"github.com/go-scripts/phonereveal/internal/runner"
	"github.com/go-scripts/phonereveal/internal/sheet"
)

// CLI flags; every flag also reads from the environment (a .env file is
// loaded first when present).
type CLI struct {
	Sheet    string        `help:"Excel workbook with profile URLs in column A." required:"" env:"PHONE_SHEET" short:"s" type:"existingfile"`
	StartRow int           `help:"First 1-based row to process (row 1 holds headers)." default:"2" env:"START_ROW"`
	MaxRows  int           `help:"Maximum rows to process, 0 for all." default:"0" env:"MAX_ROWS"`
	Proxy    string        `help:"Proxy address as ip:port." env:"PROXY_ADDRESS"`
	Headless bool          `help:"Run Chrome headless." default:"true" negatable:"" env:"HEADLESS"`
	DelayMin time.Duration `help:"Minimum pause between rows." default:"3s" env:"ROW_DELAY_MIN"`
	DelayMax time.Duration `help:"Maximum pause between rows." default:"6s" env:"ROW_DELAY_MAX"`
	Verbose  bool          `help:"Enable debug logging." short:"v"`
}

func main() {
	_ = godotenv.Load()

	var cli CLI
	kong.Parse(&cli,
		kong.Name("phonereveal"),
		kong.Description("Extract phone numbers hidden behind show-phone widgets on profile pages listed in a spreadsheet."))

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	if cli.Verbose {
		logger.SetLevel(log.DebugLevel)
	}
	logger = logger.With("run", uuid.NewString()[:8])

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cli, logger); err != nil {
		logger.Error("run failed", "err", err)
		os.Exit(1)
	}
	fmt.Println("Phone extraction completed successfully!")
}

func run(ctx context.Context, cli CLI, logger *log.Logger) error {
	book, err := sheet.Open(cli.Sheet)
	if err != nil {
		return fmt.Errorf("loading workbook: %w", err)
	}
	defer book.Close()
	logger.Info("workbook loaded", "path", cli.Sheet, "rows", book.RowCount())

	if cli.Proxy != "" {
		logger.Info("using proxy", "addr", cli.Proxy)
	}
	session, err := browser.NewChrome(ctx, browser.Options{
		Headless: cli.Headless,
		Proxy:    cli.Proxy,
	})
	if err != nil {
		return fmt.Errorf("initializing browser: %w", err)
	}
	defer session.Close()
	logger.Info("browser session ready", "headless", cli.Headless)

	extractor := extract.New(session, phone.MXLocal, logger)
	r := runner.New(runner.Config{
		StartRow: cli.StartRow,
		MaxRows:  cli.MaxRows,
		DelayMin: cli.DelayMin,
		DelayMax: cli.DelayMax,
		Progress: !cli.Verbose,
	}, book, extractor, logger)

	return r.Run(ctx)
}
