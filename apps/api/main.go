package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/auth"
	"github.com/trezcool/shule/core/class"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/fs"
	"github.com/trezcool/shule/services/email"
	"github.com/trezcool/shule/services/logger"
	"github.com/trezcool/shule/services/photo"
	"github.com/trezcool/shule/storage/database"
	"github.com/trezcool/shule/storage/database/mongo"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %+v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// =========================================================================
	// Set up Dependencies

	conf, err := core.NewConfig()
	if err != nil {
		return errors.Wrap(err, "loading config")
	}

	logger, err := logsvc.NewLogger(conf)
	if err != nil {
		return errors.Wrap(err, "setting up logger")
	}
	defer func() { _ = logger.Sync() }()

	// set up DB
	client, db, err := setUpDB(conf)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()
		if err := client.Disconnect(ctx); err != nil {
			logger.Error("Failed to close database", err)
		}
	}()

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	tmpls, err := core.ParseEmailTemplates(appfs.FS, conf)
	if err != nil {
		return errors.Wrap(err, "parsing email templates")
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(tmpls, conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(tmpls, conf, logger)
	}

	var photos core.PhotoStore
	if conf.HasCloudinary() {
		if photos, err = photosvc.NewCloudinaryStore(conf); err != nil {
			return errors.Wrap(err, "setting up cloudinary")
		}
	} else {
		logger.Warn(fmt.Sprintf("Cloudinary is not configured, storing photos under %q", conf.Upload.MediaRoot))
		photos = photosvc.NewDiskStore(conf)
	}

	classRepo := mongodb.NewClassRepository(db)
	usrSvc := user.NewService(mongodb.NewUserRepository(db), classRepo, mailSvc, conf)
	classSvc := class.NewService(classRepo, usrSvc)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		Issuer:     auth.NewIssuer(conf.SecretKey, conf.JWTExpirationDelta),
		UserSvc:    usrSvc,
		ClassSvc:   classSvc,
		PhotoStore: photos,
		Validate:   validate,
		Translator: translator,
	})
	signal.Notify(server.ShutdownSignal(), os.Interrupt, syscall.SIGTERM)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	debugSrv := &http.Server{
		Addr:              conf.Server.DebugHost,
		Handler:           http.DefaultServeMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		if err := debugSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
		return nil
	})

	// =========================================================================
	// Start API Service

	g.Go(func() error {
		logger.Info(fmt.Sprintf("API listening on %s", conf.Server.Host))
		return server.Start()
	})

	// =========================================================================
	// Shutdown

	g.Go(func() error {
		select {
		case <-gctx.Done():
			logger.Error("API server stopped unexpectedly")
		case sig := <-server.ShutdownSignal():
			logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))
		}

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		_ = debugSrv.Shutdown(ctx)

		// asking listener to shutdown and shed load
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
			if err = server.Close(); err != nil {
				return errors.Wrap(err, "could not force stop server")
			}
		}
		return nil
	})

	return g.Wait()
}

func setUpDB(conf *core.Config) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), conf.Database.ConnectTimeout)
	defer cancel()

	client, db, err := database.Open(ctx, conf)
	if err != nil {
		return nil, nil, errors.Wrap(err, "opening database")
	}
	if err = database.EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, errors.Wrap(err, "creating indexes")
	}
	return client, db, nil
}
