package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/sheenazien8/sqpool/builder"
	"github.com/sheenazien8/sqpool/config"
	"github.com/sheenazien8/sqpool/executor"
	"github.com/sheenazien8/sqpool/internal/version"
	"github.com/sheenazien8/sqpool/logger"
	"github.com/sheenazien8/sqpool/storage"
)

const usageText = `usage: sqpool [flags] <command> [args]

commands:
  tables             list the tables of the configured database
  exec SQL [SQL...]  run statements; more than one runs in a transaction
  history [N]        show the N most recent statements (default 20)
  prune N            keep only the N most recent history entries
  version            print the version

flags:
`

func main() {
	configPath := flag.String("config", "", "config file (YAML or JSON)")
	dbURL := flag.String("url", "", "database URL, overrides the config file")
	logPath := flag.String("log", "", "write a debug log to this file")
	historyPath := flag.String("history", "", "query history database (default ~/.config/sqpool/history.db)")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usageText)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if *logPath != "" {
		if err := logger.SetFile(*logPath); err != nil {
			fmt.Fprintln(os.Stderr, "Failed to setup logger:", err)
			os.Exit(1)
		}
		logger.SetLevel(logger.LevelDebug)
		defer logger.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Stdout, *configPath, *dbURL, *historyPath, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "sqpool:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, w io.Writer, configPath, dbURL, historyPath string, args []string) error {
	cmd, args := args[0], args[1:]
	if cmd == "version" {
		fmt.Fprintln(w, "sqpool", version.Version)
		return nil
	}

	if historyPath == "" {
		p, err := storage.DefaultPath()
		if err != nil {
			return err
		}
		historyPath = p
	}
	history, err := storage.Open(ctx, historyPath)
	if err != nil {
		return err
	}
	defer history.Close()

	switch cmd {
	case "history":
		limit := 20
		if len(args) > 0 {
			if limit, err = strconv.Atoi(args[0]); err != nil {
				return fmt.Errorf("invalid history limit %q", args[0])
			}
		}
		return printHistory(ctx, w, history, limit)
	case "prune":
		if len(args) != 1 {
			return errors.New("prune needs the number of entries to keep")
		}
		keep, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid keep count %q", args[0])
		}
		n, err := history.Prune(ctx, keep)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "deleted %d entries\n", n)
		return nil
	case "tables", "exec":
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}

	cfg, err := loadConfig(configPath, dbURL)
	if err != nil {
		return err
	}
	e, err := executor.Open(ctx, cfg, executor.WithObserver(executor.Observers{
		executor.LogObserver{},
		history,
	}))
	if err != nil {
		return err
	}
	defer e.Close()

	if cmd == "tables" {
		tables, err := e.ListTables(ctx)
		if err != nil {
			return err
		}
		for _, t := range tables {
			fmt.Fprintln(w, t)
		}
		return nil
	}

	if len(args) == 0 {
		return errors.New("exec needs at least one statement")
	}
	stmts := make([]builder.Statement, len(args))
	for i, sql := range args {
		stmts[i] = builder.NewStatement(sql)
	}

	var outcomes []*executor.QueryOutcome
	if len(stmts) == 1 {
		out, err := e.Execute(ctx, stmts[0], nil)
		if err != nil {
			return err
		}
		outcomes = append(outcomes, out)
	} else if outcomes, err = e.ExecuteTransaction(ctx, stmts); err != nil {
		return err
	}
	for _, out := range outcomes {
		printOutcome(w, out)
	}
	return nil
}

func loadConfig(path, dbURL string) (*config.Config, error) {
	if dbURL != "" {
		cfg, err := config.FromURL(dbURL)
		if err != nil {
			return nil, err
		}
		return cfg, cfg.ResolvePassword()
	}
	return config.Load(path)
}

func printOutcome(w io.Writer, out *executor.QueryOutcome) {
	if out.Columns == nil {
		fmt.Fprintf(w, "affected rows: %d, insert id: %d\n", out.AffectedRows, out.InsertID)
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, c := range out.Columns {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, c)
	}
	fmt.Fprintln(tw)
	for _, row := range out.Rows {
		for i, c := range out.Columns {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			if v := row[c]; v == nil {
				fmt.Fprint(tw, "NULL")
			} else {
				fmt.Fprint(tw, v)
			}
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()
	fmt.Fprintf(w, "(%d rows)\n", out.Length)
}

func printHistory(ctx context.Context, w io.Writer, h *storage.History, limit int) error {
	entries, err := h.Recent(ctx, limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EXECUTED\tDURATION\tROWS\tQUERY\tERROR")
	for _, en := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			en.ExecutedAt.Local().Format(time.DateTime), en.Duration, en.RowsAffected, en.Query, en.Error)
	}
	return tw.Flush()
}
