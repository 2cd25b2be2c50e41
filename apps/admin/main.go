package main

import (
	"log"
	"os"

	"github.com/mtokoni/tathmini/core"
	"github.com/mtokoni/tathmini/core/judging"
	"github.com/mtokoni/tathmini/core/team"
	"github.com/mtokoni/tathmini/storage/database"
	pgrepos "github.com/mtokoni/tathmini/storage/database/postgres"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(db.Ping())

	// set up repos & services
	usrRepo := pgrepos.NewUserRepository(db)
	teamRepo := pgrepos.NewTeamRepository(db)
	judgingRepo := pgrepos.NewJudgingRepository(db)

	// start CLI
	cli := commandLine{
		db:         db,
		usrRepo:    usrRepo,
		teamSvc:    team.NewService(teamRepo, conf),
		judgingSvc: judging.NewService(judgingRepo, teamRepo, conf),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
