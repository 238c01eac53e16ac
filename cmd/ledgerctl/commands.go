package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dafibh/fortuna/vault-backend/internal/domain"
	"github.com/dafibh/fortuna/vault-backend/internal/service"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

type upgradeStartCmd struct {
	presign time.Duration
}

func (*upgradeStartCmd) Name() string { return "upgrade-start" }
func (*upgradeStartCmd) Synopsis() string {
	return "capture the stored ledger into the upgrade snapshot slot"
}
func (*upgradeStartCmd) Usage() string {
	return `ledgerctl upgrade-start [-presign <duration>]

  Copies the persisted ledger into the current-generation snapshot slot and,
  when S3_BUCKET is set, archives it. With -presign a time-limited download
  URL for the archived copy is printed.
`
}

func (c *upgradeStartCmd) SetFlags(f *flag.FlagSet) {
	f.DurationVar(&c.presign, "presign", 0, "Print a presigned download URL valid for this long.")
}

func (c *upgradeStartCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := openEnv(ctx, true)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer e.Close()

	receipt, err := e.migration.BeginUpgrade(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("captured generation %d at %s\n", receipt.Generation, receipt.Slots.CapturedAt.Format(time.RFC3339))
	if receipt.ArchiveKey == "" {
		return subcommands.ExitSuccess
	}
	fmt.Printf("archived as %s\n", receipt.ArchiveKey)

	if c.presign > 0 && e.archive != nil {
		url, err := e.archive.GeneratePresignedURL(ctx, receipt.ArchiveKey, c.presign)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		fmt.Println(url)
	}
	return subcommands.ExitSuccess
}

type upgradeCompleteCmd struct{}

func (*upgradeCompleteCmd) Name() string { return "upgrade-complete" }
func (*upgradeCompleteCmd) Synopsis() string {
	return "restore the pending snapshot into the live ledger"
}
func (*upgradeCompleteCmd) Usage() string {
	return `ledgerctl upgrade-complete

  Upgrades the oldest pending snapshot to the current generation, verifies
  the monetary total is unchanged, saves it and clears the slots.
`
}

func (*upgradeCompleteCmd) SetFlags(*flag.FlagSet) {}

func (*upgradeCompleteCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := openEnv(ctx, false)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer e.Close()

	state, err := e.migration.CompleteUpgrade(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("restored %d goals, %d transactions, total %s\n",
		len(state.Goals), len(state.Transactions), state.MonetaryTotal().String())
	return subcommands.ExitSuccess
}

type importCmd struct {
	generation int
	file       string
	complete   bool
}

func (*importCmd) Name() string { return "import" }
func (*importCmd) Synopsis() string {
	return "stage a legacy ledger document for upgrade"
}
func (*importCmd) Usage() string {
	return `ledgerctl import -generation <1|2|3> -file <path> [-complete]

  Places a JSON ledger document of the given generation into its snapshot
  slot. With -complete the upgrade is run immediately.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.generation, "generation", int(domain.GenerationV1), "Generation of the document.")
	f.StringVar(&c.file, "file", "", "Path to the JSON document.")
	f.BoolVar(&c.complete, "complete", false, "Run upgrade-complete after staging.")
}

func (c *importCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.file == "" {
		fmt.Fprintln(os.Stderr, "-file is required")
		return subcommands.ExitUsageError
	}
	data, err := os.ReadFile(c.file)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	e, err := openEnv(ctx, false)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer e.Close()

	if err := e.migration.StageLegacy(ctx, domain.Generation(c.generation), data); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("staged generation %d document from %s\n", c.generation, c.file)

	if !c.complete {
		return subcommands.ExitSuccess
	}
	state, err := e.migration.CompleteUpgrade(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("restored total %s\n", state.MonetaryTotal().String())
	return subcommands.ExitSuccess
}

type exportCmd struct {
	out string
}

func (*exportCmd) Name() string { return "export" }
func (*exportCmd) Synopsis() string {
	return "write the transaction log as CSV"
}
func (*exportCmd) Usage() string {
	return `ledgerctl export [-o <path>]

  Writes every transaction, newest first. Without -o a timestamped file is
  created in the working directory; "-" writes to stdout.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.out, "o", "", "Output path, or - for stdout.")
}

func (c *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := openEnv(ctx, false)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer e.Close()

	ledger, err := e.readOnlyLedger(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	csv := service.NewExportService(ledger).ExportTransactionsCSV()

	if c.out == "-" {
		fmt.Print(csv)
		return subcommands.ExitSuccess
	}
	out := c.out
	if out == "" {
		out = service.ExportFilename(ledger.Now())
	}
	if err := os.WriteFile(out, []byte(csv), 0o644); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Println(out)
	return subcommands.ExitSuccess
}

// balanceMirror is implemented by stores that keep the balance in its own column
type balanceMirror interface {
	StoredBalance(ctx context.Context) (decimal.Decimal, error)
}

type statusCmd struct{}

func (*statusCmd) Name() string     { return "status" }
func (*statusCmd) Synopsis() string { return "summarize the stored ledger and pending upgrades" }
func (*statusCmd) Usage() string {
	return `ledgerctl status

  Prints the live balance, goal counts, health score and any pending
  upgrade snapshot.
`
}

func (*statusCmd) SetFlags(*flag.FlagSet) {}

func (*statusCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := openEnv(ctx, false)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer e.Close()

	slots, err := e.store.Snapshots.LoadSlots(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if gen, ok := slots.Oldest(); ok {
		fmt.Printf("pending upgrade from generation %d captured %s\n", gen, slots.CapturedAt.Format(time.RFC3339))
	}

	ledger, err := e.readOnlyLedger(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	summary := ledger.GetSummary()
	health := service.NewMetricsService(ledger).GetFinancialHealth()
	goals := service.NewGoalService(ledger)

	fmt.Printf("storage:      %s\n", e.store.Backend)
	fmt.Printf("balance:      %s\n", summary.Balance.StringFixed(2))
	if mirror, ok := e.store.State.(balanceMirror); ok {
		stored, err := mirror.StoredBalance(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		if !stored.Equal(summary.Balance) {
			fmt.Printf("stored balance column %s disagrees with document\n", stored.StringFixed(2))
		}
	}
	fmt.Printf("live balance: %s\n", summary.LiveBalance.StringFixed(2))
	fmt.Printf("rate:         %s\n", summary.Rate.String())
	fmt.Printf("goals:        %d open, %d completed\n", len(goals.GetGoals()), len(goals.GetCompletedGoals()))
	fmt.Printf("health:       %d (%s)\n", health.Score, health.Rating)
	return subcommands.ExitSuccess
}
