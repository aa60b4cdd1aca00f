package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/fs"
	"github.com/trezcool/shule/services/email"
	"github.com/trezcool/shule/services/logger"
	"github.com/trezcool/shule/storage/database"
	"github.com/trezcool/shule/storage/database/mongo"
)

func main() {
	conf, err := core.NewConfig()
	errAndDie(err)

	logger, err := logsvc.NewLogger(conf)
	errAndDie(err)
	defer func() { _ = logger.Sync() }()

	// set up DB
	ctx, cancel := context.WithTimeout(context.Background(), conf.Database.ConnectTimeout)
	client, db, err := database.Open(ctx, conf)
	cancel()
	errAndDie(err)
	defer func() { _ = client.Disconnect(context.Background()) }()

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	tmpls, err := core.ParseEmailTemplates(appfs.FS, conf)
	errAndDie(err)

	usrRepo := mongodb.NewUserRepository(db)
	mailSvc := emailsvc.NewConsoleService(tmpls, conf, logger)
	usrSvc := user.NewService(usrRepo, mongodb.NewClassRepository(db), mailSvc, conf)

	// start CLI
	cli := commandLine{
		usrSvc:   usrSvc,
		usrRepo:  usrRepo,
		validate: validate,
		migrate: func(ctx context.Context) error {
			return database.EnsureIndexes(ctx, db)
		},
	}
	if err = cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("admin command failed: %v", err), err)
		}
		_ = logger.Sync()
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %+v\n", err)
		os.Exit(1)
	}
}
