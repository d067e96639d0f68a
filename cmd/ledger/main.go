// Command ledger runs one-off ledger maintenance against the configured
// database: migrations, invoice recompute, overdue sweeps, balances, cards,
// and queueing work for ledger-worker.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"finance/internal/amqp"
	"finance/internal/cli"
	"finance/internal/config"
	"finance/internal/core"
	"finance/internal/log"
	"finance/internal/storage"
)

const usage = `usage: ledger <command> [flags]

commands:
  migrate                          apply schema migrations and print the version
  recompute  -owner N              rebuild every invoice of an owner
  reconcile  -owner N -card N -period YYYY-MM
  sweep      [-owner N]            mark past-due expenses overdue (all owners without -owner)
  balance    -owner N              print the balance breakdown
  card add   -owner N -name S [-limit 0.00] [-closing 5] [-due 10]
  card list  -owner N [-all]
  card update -owner N -card N [-name S] [-limit 0.00] [-closing N] [-due N]
  card deactivate -owner N -card N
  enqueue    -op recompute_invoices|sweep_overdue [-owner N]
`

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentCLI)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := cli.LoadAndValidateConfig(logger)
	ctx := context.Background()

	if err := run(ctx, cfg, logger, os.Args[1], os.Args[2:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		logger.Error("Command failed", log.FieldError, err, log.FieldErrorType, log.ErrorType(err), log.FieldOperation, os.Args[1])
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger, cmd string, args []string) error {
	switch cmd {
	case "migrate":
		return migrateCmd(cfg)
	case "enqueue":
		return enqueueCmd(ctx, cfg, args)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()
	engine := cli.NewEngine(cfg, repo, logger)

	switch cmd {
	case "recompute":
		fs := flag.NewFlagSet("recompute", flag.ContinueOnError)
		owner := fs.Int64("owner", 0, "owner id")
		if err := fs.Parse(args); err != nil {
			return err
		}
		report, err := engine.Ledger.RecomputeAllInvoices(ctx, *owner)
		fmt.Printf("tuples=%d upserted=%d cleared=%d failed=%d\n",
			report.Tuples, report.Upserted, report.Cleared, report.Failed)
		return err

	case "reconcile":
		fs := flag.NewFlagSet("reconcile", flag.ContinueOnError)
		owner := fs.Int64("owner", 0, "owner id")
		card := fs.Int64("card", 0, "card id")
		period := fs.String("period", "", "billing period as YYYY-MM")
		if err := fs.Parse(args); err != nil {
			return err
		}
		p, err := parsePeriod(*period)
		if err != nil {
			return err
		}
		id, err := engine.Ledger.ReconcileInvoice(ctx, *owner, *card, p)
		if err != nil {
			return err
		}
		if id == nil {
			fmt.Println("no invoice")
		} else {
			fmt.Printf("invoice %d\n", *id)
		}
		return nil

	case "sweep":
		fs := flag.NewFlagSet("sweep", flag.ContinueOnError)
		owner := fs.Int64("owner", 0, "owner id (0 for all)")
		if err := fs.Parse(args); err != nil {
			return err
		}
		var n int64
		var err error
		if *owner == 0 {
			n, err = engine.Ledger.SweepAllOverdue(ctx)
		} else {
			n, err = engine.Ledger.SweepOverdue(ctx, *owner)
		}
		if err != nil {
			return err
		}
		fmt.Printf("%d expenses marked overdue\n", n)
		return nil

	case "balance":
		fs := flag.NewFlagSet("balance", flag.ContinueOnError)
		owner := fs.Int64("owner", 0, "owner id")
		if err := fs.Parse(args); err != nil {
			return err
		}
		b, err := engine.Ledger.BalanceBreakdown(ctx, *owner)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintf(tw, "initial balance\t%s\t\n", b.InitialBalance)
		fmt.Fprintf(tw, "settled income\t%s\t\n", b.SettledIncome)
		fmt.Fprintf(tw, "cash outflow\t-%s\t\n", b.CashOutflow)
		fmt.Fprintf(tw, "balance\t%s\t\n", b.Balance())
		return tw.Flush()

	case "card":
		return cardCmd(ctx, repo, engine, args)
	}

	fmt.Fprint(os.Stderr, usage)
	return fmt.Errorf("unknown command %q", cmd)
}

func migrateCmd(cfg *config.Config) error {
	if err := storage.RunMigrations(cfg.SQLiteDBPath); err != nil {
		return err
	}
	v, dirty, err := storage.MigrationVersion(cfg.SQLiteDBPath)
	if err != nil {
		return err
	}
	fmt.Printf("schema version %d (dirty=%t)\n", v, dirty)
	return nil
}

func enqueueCmd(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("enqueue", flag.ContinueOnError)
	op := fs.String("op", "", "recompute_invoices or sweep_overdue")
	owner := fs.Int64("owner", 0, "owner id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if cfg.AMQPURL == "" {
		return errors.New("AMQP_URL is not set")
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.AMQPDialAttempts)
	if err != nil {
		return err
	}
	defer client.Close()

	msg := amqp.NewMaintenanceMessage(amqp.Operation(*op), *owner)
	if err := client.Publish(ctx, msg); err != nil {
		return err
	}
	fmt.Println(msg.ID)
	return nil
}

func cardCmd(ctx context.Context, repo *storage.SQLiteRepository, engine cli.Engine, args []string) error {
	if len(args) == 0 {
		return errors.New("card: missing subcommand (add, list, update, deactivate)")
	}
	sub, args := args[0], args[1:]
	fs := flag.NewFlagSet("card "+sub, flag.ContinueOnError)
	owner := fs.Int64("owner", 0, "owner id")

	switch sub {
	case "add":
		name := fs.String("name", "", "card name")
		limit := fs.String("limit", "0", "credit limit")
		closing := fs.Int("closing", 5, "closing day")
		due := fs.Int("due", 10, "due day")
		if err := fs.Parse(args); err != nil {
			return err
		}
		amount, err := core.ParseMoney(*limit)
		if err != nil {
			return err
		}
		id, err := repo.CreateCard(ctx, core.NewCard(*owner, strings.TrimSpace(*name), amount, *closing, *due))
		if err != nil {
			return err
		}
		fmt.Printf("card %d\n", id)
		return nil

	case "list":
		all := fs.Bool("all", false, "include inactive cards")
		if err := fs.Parse(args); err != nil {
			return err
		}
		cards, err := repo.ListCards(ctx, *owner, !*all)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tLIMIT\tCLOSING\tDUE\tACTIVE")
		for _, c := range cards {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%t\n", c.ID, c.Name, c.CreditLimit, c.ClosingDay, c.DueDay, c.Active)
		}
		return tw.Flush()

	case "update":
		card := fs.Int64("card", 0, "card id")
		name := fs.String("name", "", "card name")
		limit := fs.String("limit", "", "credit limit")
		closing := fs.Int("closing", 0, "closing day")
		due := fs.Int("due", 0, "due day")
		if err := fs.Parse(args); err != nil {
			return err
		}
		var edits cardEdits
		var err error
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "name":
				edits.name = name
			case "limit":
				var m core.Money
				if m, err = core.ParseMoney(*limit); err == nil {
					edits.limit = &m
				}
			case "closing":
				edits.closing = closing
			case "due":
				edits.due = due
			}
		})
		if err != nil {
			return err
		}
		current, err := repo.GetCard(ctx, *owner, *card)
		if err != nil {
			return err
		}
		if err := repo.UpdateCard(ctx, edits.apply(current)); err != nil {
			return err
		}
		engine.Cards.Forget(*owner, *card)
		fmt.Printf("card %d updated\n", *card)
		return nil

	case "deactivate":
		card := fs.Int64("card", 0, "card id")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if err := repo.DeactivateCard(ctx, *owner, *card); err != nil {
			return err
		}
		engine.Cards.Forget(*owner, *card)
		fmt.Printf("card %d deactivated\n", *card)
		return nil
	}
	return fmt.Errorf("card: unknown subcommand %q", sub)
}

// cardEdits holds the card fields given on the command line. Nil fields
// keep the stored value.
type cardEdits struct {
	name         *string
	limit        *core.Money
	closing, due *int
}

func (e cardEdits) apply(c core.Card) core.Card {
	name, limit, closing, due := c.Name, c.CreditLimit, c.ClosingDay, c.DueDay
	if e.name != nil {
		name = *e.name
	}
	if e.limit != nil {
		limit = *e.limit
	}
	if e.closing != nil {
		closing = *e.closing
	}
	if e.due != nil {
		due = *e.due
	}
	next := core.NewCard(c.OwnerID, name, limit, closing, due)
	next.ID, next.Active = c.ID, c.Active
	return next
}

// parsePeriod reads YYYY-MM.
func parsePeriod(s string) (core.BillingPeriod, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return core.BillingPeriod{}, fmt.Errorf("invalid period %q: want YYYY-MM", s)
	}
	return core.NewBillingPeriod(int(t.Month()), t.Year())
}
