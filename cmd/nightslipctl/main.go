// nightslipctl is the operator tool for a nightslip database. It runs the
// same commands as the admin API against the database file directly, so an
// operator can seed the roster or recover a date without a browser session.
//
// Every mutating command acts on behalf of --as, which must be listed as an
// administrator in NIGHTSLIP_ADMIN_EMAILS or NIGHTSLIP_ADMINS_FILE.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	_ "modernc.org/sqlite"

	"nightslip/internal/adapters/sheets"
	"nightslip/internal/adapters/storage"
	attendanceStore "nightslip/internal/adapters/storage/attendance"
	auditStore "nightslip/internal/adapters/storage/audit"
	memberStore "nightslip/internal/adapters/storage/member"
	mirrorRunStore "nightslip/internal/adapters/storage/mirrorrun"
	dateStore "nightslip/internal/adapters/storage/trackeddate"
	"nightslip/internal/application/orchestrators"
	"nightslip/internal/application/projections"
	"nightslip/internal/domain/authz"
	"nightslip/internal/platform/config"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "error: load .env: %v\n", err)
		os.Exit(1)
	}
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app is one opened database with everything the commands need.
type app struct {
	actor   string
	policy  authz.Policy
	members memberStore.Store
	dates   dateStore.Store
	records attendanceStore.Store
	audit   auditStore.Store
	mirror  *orchestrators.MirrorDispatcher
	out     io.Writer
}

func run(ctx context.Context, args []string, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var dbPath, actor, logLevel string
	var noMirror bool
	flagSet := pflag.NewFlagSet("nightslipctl", pflag.ContinueOnError)
	flagSet.SetInterspersed(false)
	flagSet.StringVar(&dbPath, "db", cfg.DBPath, "path to the SQLite database")
	flagSet.StringVar(&actor, "as", "", "administrator email the command runs as")
	flagSet.StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	flagSet.BoolVar(&noMirror, "no-mirror", false, "skip the spreadsheet push after writes")
	flagSet.Usage = func() { printHelp(flagSet) }
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() == 0 {
		printHelp(flagSet)
		return errors.New("missing command")
	}

	cfg.DBPath = dbPath
	cfg.LogLevel = logLevel
	slog.SetDefault(cfg.NewLogger())

	db, err := storage.OpenSQLite(cfg.DSN(), cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	policy := authz.NewAllowList(cfg.AdminEmails...)
	if cfg.AdminsFile != "" {
		if err := policy.LoadAllowListFile(cfg.AdminsFile); err != nil {
			return err
		}
	}

	timedDB := storage.NewTimedDB(db, cfg.SlowQueryMs)
	a := &app{
		actor:   strings.TrimSpace(actor),
		policy:  policy,
		members: memberStore.NewSQLiteStore(timedDB),
		dates:   dateStore.NewSQLiteStore(timedDB),
		records: attendanceStore.NewSQLiteStore(timedDB),
		audit:   auditStore.NewSQLiteStore(timedDB),
		out:     out,
	}
	if cfg.MirrorURL != "" && !noMirror {
		a.mirror = orchestrators.NewMirrorDispatcher(orchestrators.MirrorDeps{
			Snapshot: projections.SnapshotFunc(projections.BuildSnapshotDeps{
				MemberStore: a.members, DateStore: a.dates, AttendanceStore: a.records,
			}),
			Pusher:  sheets.NewClient(cfg.MirrorURL, &http.Client{Timeout: cfg.MirrorTimeout}),
			Runs:    mirrorRunStore.NewSQLiteStore(timedDB),
			Timeout: cfg.MirrorTimeout,
		})
		// Pushes started by this command finish before the database closes.
		defer a.mirror.Wait()
	}

	cmd, rest := flagSet.Arg(0), flagSet.Args()[1:]
	switch cmd {
	case "import":
		return a.importMembers(ctx, rest)
	case "members":
		return a.listMembers(ctx, rest)
	case "dates":
		return a.dateCommand(ctx, rest)
	case "entries":
		return a.entries(ctx, rest)
	case "reset":
		return a.reset(ctx, rest)
	case "sync":
		return a.sync(ctx)
	default:
		return fmt.Errorf("unknown command %q (see --help)", cmd)
	}
}

func (a *app) trigger() orchestrators.MirrorTrigger {
	if a.mirror == nil {
		return nil
	}
	return a.mirror
}

func (a *app) importMembers(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("import", pflag.ContinueOnError)
	dryRun := fs.Bool("dry-run", false, "report what would change without writing")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: import [--dry-run] <members.csv | ->")
	}

	var r io.Reader = os.Stdin
	if path := fs.Arg(0); path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	rows, err := orchestrators.ParseMembersCSV(r)
	if err != nil {
		return err
	}

	result, err := orchestrators.ExecuteImportMembers(ctx, orchestrators.ImportMembersInput{
		ActorEmail: a.actor,
		Rows:       rows,
		DryRun:     *dryRun,
	}, orchestrators.ImportMembersDeps{
		Policy:      a.policy,
		MemberStore: a.members,
		Mirror:      a.trigger(),
		AuditStore:  a.audit,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "total=%d created=%d updated=%d skipped=%d dry_run=%t\n",
		result.Total, result.Created, result.Updated, result.Skipped, result.DryRun)
	for _, e := range result.Errors {
		fmt.Fprintf(a.out, "row %d: %s\n", e.Row, e.Message)
	}
	return nil
}

func (a *app) listMembers(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return errors.New("usage: members")
	}
	members, err := projections.QueryListMembers(ctx, projections.ListMembersQuery{}, a.members)
	if err != nil {
		return err
	}
	return a.printJSON(members)
}

func (a *app) dateCommand(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: dates list | dates add <YYYY-MM-DD> | dates rm <id>")
	}
	deps := orchestrators.DateDeps{
		Policy:     a.policy,
		Dates:      a.dates,
		Mirror:     a.trigger(),
		AuditStore: a.audit,
	}
	switch {
	case args[0] == "list" && len(args) == 1:
		dates, err := projections.QueryListDates(ctx, a.dates)
		if err != nil {
			return err
		}
		return a.printJSON(dates)
	case args[0] == "add" && len(args) == 2:
		d, err := orchestrators.ExecuteCreateDate(ctx, orchestrators.CreateDateInput{ActorEmail: a.actor, DateString: args[1]}, deps)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "created %s %s\n", d.ID, d.DateString)
		return nil
	case args[0] == "rm" && len(args) == 2:
		if err := orchestrators.ExecuteDeleteDate(ctx, orchestrators.DeleteDateInput{ActorEmail: a.actor, DateID: args[1]}, deps); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "deleted %s\n", args[1])
		return nil
	default:
		return errors.New("usage: dates list | dates add <YYYY-MM-DD> | dates rm <id>")
	}
}

func (a *app) entries(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: entries <date-id>")
	}
	entries, err := projections.QueryGetDateEntries(ctx, projections.GetDateEntriesQuery{DateID: args[0]},
		projections.GetDateEntriesDeps{MemberStore: a.members, DateStore: a.dates, AttendanceStore: a.records})
	if err != nil {
		return err
	}
	return a.printJSON(entries)
}

func (a *app) reset(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: reset <date-id>")
	}
	removed, err := orchestrators.ExecuteResetDate(ctx, orchestrators.ResetDateInput{ActorEmail: a.actor, DateID: args[0]},
		orchestrators.ResetDateDeps{
			Policy:     a.policy,
			Dates:      a.dates,
			Records:    a.records,
			Mirror:     a.trigger(),
			AuditStore: a.audit,
		})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "reset %s: %d records removed\n", args[0], removed)
	return nil
}

func (a *app) sync(ctx context.Context) error {
	if a.mirror == nil {
		return errors.New("sync needs NIGHTSLIP_MIRROR_URL (and no --no-mirror)")
	}
	run, err := orchestrators.ExecuteSyncNow(ctx, orchestrators.SyncNowInput{ActorEmail: a.actor},
		orchestrators.SyncNowDeps{Policy: a.policy, Dispatcher: a.mirror, AuditStore: a.audit})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "pushed dates=%d users=%d records=%d in %s\n", run.Dates, run.Users, run.Records, run.Duration())
	return nil
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `nightslipctl: operate a nightslip database directly.

Usage:
  nightslipctl [flags] <command> [args]

Commands:
  import [--dry-run] <file.csv | ->   merge "Name,RegNo,Email" lines into the roster
  members                             list members
  dates list                          list tracked dates
  dates add <YYYY-MM-DD>              track a new date
  dates rm <id>                       delete a date and its records
  entries <date-id>                   show every member's record for a date
  reset <date-id>                     revert every record for a date to defaults
  sync                                push the spreadsheet mirror now

Flags:
`)
	flagSet.PrintDefaults()
}
