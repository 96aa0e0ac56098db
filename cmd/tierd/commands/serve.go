package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/oklog/run"

	"github.com/slok/tierd/internal/app/osrelease"
	"github.com/slok/tierd/internal/app/promotion"
	"github.com/slok/tierd/internal/aptly"
	"github.com/slok/tierd/internal/conventions"
	"github.com/slok/tierd/internal/httpapi"
	"github.com/slok/tierd/internal/liverepo"
	"github.com/slok/tierd/internal/model"
	"github.com/slok/tierd/internal/pkgrepo"
	"github.com/slok/tierd/internal/pkgrepo/fake"
	"github.com/slok/tierd/internal/scheduler"
	storageio "github.com/slok/tierd/internal/storage/io"
	"github.com/slok/tierd/internal/storage/sqlite"
	"github.com/slok/tierd/internal/task"
	"github.com/slok/tierd/internal/tasklog"
	"github.com/slok/tierd/internal/tasks"
)

type ServeCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	configPath string
	listen     string
	workers    int
	stopGrace  time.Duration
	fakeRepo   bool

	aptlyBinary   string
	aptlyURL      string
	s3AccessKey   string
	s3SecretKey   string
	publicKeyPath string
}

// NewServeCommand returns the serve command.
func NewServeCommand(rootCmd *RootCommand, app *kingpin.Application) *ServeCommand {
	c := &ServeCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("serve", "Run the task engine, the admin API and the aptly server.")
	c.Cmd.Flag("config", "YAML configuration file.").StringVar(&c.configPath)
	c.Cmd.Flag("listen", "Admin API listen address.").StringVar(&c.listen)
	c.Cmd.Flag("workers", "Tasks executed concurrently.").IntVar(&c.workers)
	c.Cmd.Flag("stop-grace", "Time the in-flight tasks have to pause on shutdown.").DurationVar(&c.stopGrace)
	c.Cmd.Flag("fake-repo", "Use an in-memory package repository instead of aptly.").BoolVar(&c.fakeRepo)
	c.Cmd.Flag("aptly-binary", "aptly binary, the server is managed by tierd.").StringVar(&c.aptlyBinary)
	c.Cmd.Flag("aptly-url", "URL of an already running aptly API.").StringVar(&c.aptlyURL)
	c.Cmd.Flag("s3-access-key-id", "S3 access key of the publish endpoint.").StringVar(&c.s3AccessKey)
	c.Cmd.Flag("s3-secret-access-key", "S3 secret key of the publish endpoint.").StringVar(&c.s3SecretKey)
	c.Cmd.Flag("public-key", "Public signing key uploaded to the live repository.").StringVar(&c.publicKeyPath)

	return c
}

func (c ServeCommand) Name() string { return c.Cmd.FullCommand() }

func (c ServeCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	cfg, err := c.config(ctx)
	if err != nil {
		return err
	}

	// Storage.
	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: conventions.DBPath(c.rootCmd.DataDir),
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create repository: %w", err)
	}
	defer repo.Close()

	taskRepo, err := sqlite.NewTaskRepository(sqlite.TaskRepositoryConfig{DB: repo.DB(), Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create task repository: %w", err)
	}

	var g run.Group

	// Package repository.
	var pkgRepo pkgrepo.Manager
	switch {
	case c.fakeRepo:
		logger.Warningf("Using an in-memory package repository, nothing will be published")
		pkgRepo, err = fake.NewManager(fake.ManagerConfig{Logger: logger})
		if err != nil {
			return fmt.Errorf("could not create fake package repository: %w", err)
		}
	default:
		client, err := c.aptly(ctx, cfg, &g)
		if err != nil {
			return err
		}
		pkgRepo = client
	}

	if cfg.LiveRepo != nil && !c.fakeRepo {
		if err := c.uploadLiveRepoFiles(ctx, cfg); err != nil {
			// The repository is usable without them.
			logger.Errorf("Could not upload live repository files: %s", err)
		}
	}

	// Task engine.
	registry := task.NewRegistry()
	err = tasks.Register(registry, tasks.Dependencies{
		Packages:   repo,
		OSReleases: repo,
		Journal:    repo,
		Repo:       pkgRepo,
	})
	if err != nil {
		return fmt.Errorf("could not register tasks: %w", err)
	}

	logsDir := filepath.Join(c.rootCmd.DataDir, conventions.LogsDir)
	taskLogs, err := tasklog.NewFactory(tasklog.FactoryConfig{Dir: logsDir, Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create task log factory: %w", err)
	}

	sched, err := scheduler.NewScheduler(scheduler.SchedulerConfig{
		Repository:    taskRepo,
		Registry:      registry,
		NewTaskLogger: func(t model.Task) scheduler.TaskLogger { return taskLogs.For(t) },
		Workers:       cfg.Workers,
		StopTimeout:   cfg.StopGrace,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("could not create scheduler: %w", err)
	}

	// Services.
	osReleaseSvc, err := osrelease.NewService(osrelease.ServiceConfig{
		OSReleases: repo,
		Promotions: repo,
		Enqueuer:   sched,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create os release service: %w", err)
	}

	promotionSvc, err := promotion.NewService(promotion.ServiceConfig{
		Packages:   repo,
		Promotions: repo,
		Repo:       pkgRepo,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create promotion service: %w", err)
	}

	handler, err := httpapi.NewHandler(httpapi.HandlerConfig{
		Tasks:      taskRepo,
		Journal:    repo,
		Controller: sched,
		OSReleases: osReleaseSvc,
		Promotions: promotionSvc,
		LogsDir:    logsDir,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create api handler: %w", err)
	}

	// Scheduler.
	{
		ctx, cancel := context.WithCancel(ctx)
		g.Add(
			func() error {
				return sched.Run(ctx)
			},
			func(_ error) {
				cancel()
			},
		)
	}

	// Admin API.
	{
		server := &http.Server{
			Addr:              cfg.Listen,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Add(
			func() error {
				logger.Infof("Admin API listening on %s", cfg.Listen)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("admin api failed: %w", err)
				}
				return nil
			},
			func(_ error) {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				_ = server.Shutdown(ctx)
			},
		)
	}

	// Context cancellation (from parent signal handling).
	{
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		g.Add(
			func() error {
				<-ctx.Done()
				return nil
			},
			func(_ error) {
				cancel()
			},
		)
	}

	return g.Run()
}

// config loads the configuration file and applies the flags over it.
func (c ServeCommand) config(ctx context.Context) (storageio.DaemonConfig, error) {
	var cfg storageio.DaemonConfig
	if c.configPath != "" {
		abs, err := filepath.Abs(c.configPath)
		if err != nil {
			return cfg, fmt.Errorf("invalid config path: %w", err)
		}
		cfg, err = storageio.NewDaemonConfigYAMLRepository(os.DirFS(filepath.Dir(abs))).GetConfig(ctx, filepath.Base(abs))
		if err != nil {
			return cfg, fmt.Errorf("could not load config: %w", err)
		}
	}

	if c.listen != "" {
		cfg.Listen = c.listen
	}
	if cfg.Listen == "" {
		cfg.Listen = ":8080"
	}
	if c.workers > 0 {
		cfg.Workers = c.workers
	}
	if c.stopGrace > 0 {
		cfg.StopGrace = c.stopGrace
	}
	if c.aptlyBinary != "" {
		cfg.Aptly.Binary, cfg.Aptly.URL = c.aptlyBinary, ""
	}
	if c.aptlyURL != "" {
		cfg.Aptly.URL, cfg.Aptly.Binary = c.aptlyURL, ""
	}
	if c.s3AccessKey != "" {
		cfg.Aptly.S3.AccessKeyID = c.s3AccessKey
	}
	if c.s3SecretKey != "" {
		cfg.Aptly.S3.SecretAccessKey = c.s3SecretKey
	}
	if c.publicKeyPath != "" {
		if cfg.LiveRepo == nil {
			cfg.LiveRepo = &storageio.LiveRepoConfig{}
		}
		cfg.LiveRepo.PublicKeyPath = c.publicKeyPath
	}

	return cfg, nil
}

// aptly returns the aptly client, starting the managed aptly server when configured.
func (c ServeCommand) aptly(ctx context.Context, cfg storageio.DaemonConfig, g *run.Group) (_ *aptly.Client, err error) {
	logger := c.rootCmd.Logger

	url := cfg.Aptly.URL
	if cfg.Aptly.Binary != "" {
		listen := cfg.Aptly.Listen
		if listen == "" {
			listen = fmt.Sprintf("127.0.0.1:%d", conventions.AptlyDefaultPort)
		}
		url = "http://" + listen
	}

	publishStorage := aptly.PublishStorageFileSystem
	if cfg.Aptly.S3.Configured() {
		publishStorage = aptly.PublishStorageS3
	}

	client, err := aptly.NewClient(aptly.ClientConfig{
		URL:             url,
		RepoPrefix:      cfg.Aptly.RepoPrefix,
		PublishEndpoint: cfg.Aptly.PublishEndpoint,
		PublishStorage:  publishStorage,
		Signing:         cfg.Aptly.Signing,
		Architectures:   cfg.Aptly.Architectures,
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create aptly client: %w", err)
	}

	if cfg.Aptly.Binary != "" {
		server, serr := aptly.NewServer(aptly.ServerConfig{
			Binary:          cfg.Aptly.Binary,
			RootDir:         conventions.AptlyRootDir(c.rootCmd.DataDir),
			Listen:          cfg.Aptly.Listen,
			PublishEndpoint: cfg.Aptly.PublishEndpoint,
			S3:              cfg.Aptly.S3,
			Debug:           c.rootCmd.Debug,
			Client:          client,
			Logger:          logger,
		})
		if serr != nil {
			return nil, fmt.Errorf("could not create aptly server: %w", serr)
		}

		if err := server.Start(ctx); err != nil {
			return nil, fmt.Errorf("could not start aptly server: %w", err)
		}
		defer func() {
			if err != nil {
				_ = server.Stop(context.Background())
			}
		}()

		g.Add(
			func() error {
				if err := server.Wait(); err != nil {
					return fmt.Errorf("aptly server exited: %w", err)
				}
				return fmt.Errorf("aptly server exited")
			},
			func(_ error) {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				_ = server.Stop(ctx)
			},
		)
	} else if err := client.WaitReady(ctx, 10*time.Second); err != nil {
		return nil, fmt.Errorf("aptly is not reachable: %w", err)
	}

	if err := client.EnsureRepositories(ctx); err != nil {
		return nil, fmt.Errorf("could not ensure aptly repositories: %w", err)
	}

	if err := client.EnsurePublished(ctx); err != nil {
		return nil, fmt.Errorf("could not ensure published distributions: %w", err)
	}

	return client, nil
}

func (c ServeCommand) uploadLiveRepoFiles(ctx context.Context, cfg storageio.DaemonConfig) error {
	storage, err := liverepo.NewMinioStorage(cfg.Aptly.S3)
	if err != nil {
		return err
	}

	uploader, err := liverepo.NewUploader(liverepo.UploaderConfig{
		Bucket:        cfg.Aptly.S3.Bucket,
		Prefix:        cfg.Aptly.S3.Prefix,
		PublicKeyPath: cfg.LiveRepo.PublicKeyPath,
		IndexPagePath: cfg.LiveRepo.IndexPagePath,
		Storage:       storage,
		Logger:        c.rootCmd.Logger,
	})
	if err != nil {
		return err
	}

	return uploader.UploadMissing(ctx)
}
