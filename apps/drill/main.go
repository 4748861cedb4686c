package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"

	"github.com/trezcool/hesabu/core"
	"github.com/trezcool/hesabu/core/assignment"
	"github.com/trezcool/hesabu/core/player"
	"github.com/trezcool/hesabu/services/logger"
	"github.com/trezcool/hesabu/storage/database"
	"github.com/trezcool/hesabu/storage/database/sqlx"
)

func main() {
	id := flag.String("id", "", "The assignment to play, e.g. Assignment-3.")
	flag.Parse()

	if err := run(*id); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(id string) error {
	if id == "" {
		flag.Usage()
		return errors.New("missing -id")
	}

	conf, err := core.NewConfig()
	if err != nil {
		return errors.Wrap(err, "loading config")
	}

	// the TUI owns stdout
	logger := logsvc.NewRollbarLogger(log.New(os.Stderr, "DRILL : ", log.LstdFlags|log.Lshortfile), conf)
	defer logger.Close()

	db, err := database.Open(conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer db.Close()

	svc := assignment.NewService(sqlxrepos.NewAssignmentRepository(db), nil)
	asg, err := svc.Get(context.Background(), id)
	if err != nil {
		if errors.Cause(err) == assignment.ErrNotFound {
			return errors.Errorf("assignment %q not found", id)
		}
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session := player.NewSession(asg, player.WithLogger(logger))
	runErr := make(chan error, 1)
	go func() { runErr <- session.Run(ctx) }()

	if _, err = tea.NewProgram(newModel(ctx, session, os.Stderr), tea.WithAltScreen()).Run(); err != nil {
		return errors.Wrap(err, "running player")
	}
	cancel()
	if err = <-runErr; err != nil && err != context.Canceled {
		return err
	}
	return nil
}
