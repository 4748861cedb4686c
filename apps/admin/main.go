package main

import (
	"fmt"
	"log"
	"os"

	"github.com/trezcool/hesabu/core"
	"github.com/trezcool/hesabu/core/assignment"
	"github.com/trezcool/hesabu/services/email"
	"github.com/trezcool/hesabu/services/logger"
	"github.com/trezcool/hesabu/storage/database"
	"github.com/trezcool/hesabu/storage/database/sqlx"
)

func main() {
	conf, err := core.NewConfig()
	if err != nil {
		log.Fatalf("loading config: %+v", err)
	}

	logger := logsvc.NewRollbarLogger(log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	defer logger.Close()

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

	// start CLI
	cli := commandLine{
		conf:     conf,
		db:       db,
		asgSvc:   assignment.NewService(sqlxrepos.NewAssignmentRepository(db), emailsvc.NewService(conf, logger)),
		validate: newValidator(),
		out:      os.Stdout,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		os.Exit(1)
	}
}
