// Package cli implements the "db" subcommand family: init, delete,
// query. Grounded on the teacher's cmd/chess-server/cli/cli.go, with
// the "user" subcommand family dropped (it existed only to manage JWT
// auth credentials, which this module does not implement) and "query"
// retargeted from games to sessions.
package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"gridgame/internal/model"
	"gridgame/internal/store"
)

func Run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("subcommand required: init, delete, query")
	}

	switch args[0] {
	case "init":
		return runInit(args[1:])
	case "delete":
		return runDelete(args[1:])
	case "query":
		return runQuery(args[1:])
	default:
		return fmt.Errorf("unknown subcommand: %s", args[0])
	}
}

func openStore(args []string, cmdName string) (*store.Store, *flag.FlagSet, error) {
	fs := flag.NewFlagSet(cmdName, flag.ContinueOnError)
	dbURL := fs.String("db", "", "PostgreSQL connection string (required, or set DATABASE_URL)")

	if err := fs.Parse(args); err != nil {
		return nil, fs, err
	}

	url := *dbURL
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		return nil, fs, fmt.Errorf("database connection string required: pass -db or set DATABASE_URL")
	}

	s, err := store.NewStore(url)
	if err != nil {
		return nil, fs, fmt.Errorf("failed to connect: %w", err)
	}
	return s, fs, nil
}

func runInit(args []string) error {
	s, _, err := openStore(args, "init")
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.InitDB(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	fmt.Println("Database schema initialized")
	return nil
}

func runDelete(args []string) error {
	s, _, err := openStore(args, "delete")
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.DropAll(context.Background()); err != nil {
		return fmt.Errorf("failed to drop schema: %w", err)
	}

	fmt.Println("Database schema dropped")
	return nil
}

func runQuery(args []string) error {
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	dbURL := fs.String("db", "", "PostgreSQL connection string (required, or set DATABASE_URL)")
	status := fs.String("status", "", "Filter by status (WAITING, ACTIVE, FINISHED)")
	hostID := fs.String("hostId", "", "Filter by host id")
	limit := fs.Int("limit", 50, "Max rows to print (1-100; other values print at most 20)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	url := *dbURL
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		return fmt.Errorf("database connection string required: pass -db or set DATABASE_URL")
	}

	s, err := store.NewStore(url)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer s.Close()

	filter := model.SessionFilter{Limit: *limit}
	if *status != "" {
		st := model.Status(*status)
		filter.Status = &st
	}
	if *hostID != "" {
		filter.HostID = hostID
	}

	page, err := s.ListSessions(context.Background(), filter)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if len(page.Items) == 0 {
		fmt.Println("No sessions found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Session ID\tGame Type\tHost\tStatus\tCreated")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, sess := range page.Items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			sess.ID, sess.GameType, sess.Host.Name, sess.Status,
			sess.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	w.Flush()

	fmt.Printf("\nFound %d session(s)\n", len(page.Items))
	return nil
}
