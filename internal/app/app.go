// Package app wires configuration into the concrete store, file source,
// notification channels and services shared by every binary.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Guizzs26/go-sync-hr/internal/broker"
	"github.com/Guizzs26/go-sync-hr/internal/config"
	"github.com/Guizzs26/go-sync-hr/internal/db"
	"github.com/Guizzs26/go-sync-hr/internal/notify"
	"github.com/Guizzs26/go-sync-hr/internal/service"
	"github.com/Guizzs26/go-sync-hr/internal/source"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/redis/go-redis/v9"
)

type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Store     *db.PostgresRepository
	Source    service.FileSource
	Notifier  *notify.Dispatcher
	Gate      *service.ScheduleGate
	Pipeline  *service.Pipeline
	Approvals *service.ApprovalService
	Ledger    *service.Ledger
	Publisher *broker.EventPublisher

	redis *redis.Client
}

// New connects to Postgres and builds the services. External links other
// than the database (broker, Redis, AWS) are optional and only configured
// when their settings are present.
func New(ctx context.Context, cfg *config.Config, l *slog.Logger) (*App, error) {
	store, err := db.NewPostgresRepository(ctx, cfg.DatabaseURL, l)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Logger: l, Store: store}

	var awsCfg *aws.Config
	if cfg.SourceKind == config.SourceS3 || cfg.SESFrom != "" {
		c, err := loadAWS(ctx, cfg.AWS)
		if err != nil {
			a.Close()
			return nil, err
		}
		awsCfg = &c
	}

	if a.Source, err = a.buildSource(ctx, awsCfg); err != nil {
		a.Close()
		return nil, err
	}

	a.Notifier = a.buildNotifier(awsCfg)
	a.Gate = service.NewScheduleGate(store, cfg.Location(), l)
	a.Pipeline = service.NewPipeline(store, a.Source, a.Notifier, a.Gate, cfg.BatchSize, l)
	a.Approvals = service.NewApprovalService(store, store, l)
	a.Ledger = service.NewLedger(store, store)
	return a, nil
}

func loadAWS(ctx context.Context, c config.AWSConfig) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(c.Region)}
	if c.AccessKeyID != "" && c.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS config: %w", err)
	}
	return cfg, nil
}

func (a *App) buildSource(ctx context.Context, awsCfg *aws.Config) (service.FileSource, error) {
	cfg := a.Config

	var remote source.Remote
	switch cfg.SourceKind {
	case config.SourceSFTP:
		if cfg.SFTP.Host == "" {
			a.Logger.Warn("SFTP_HOST is empty, runs will fail at discovery")
		}
		remote = source.NewSFTPSource(cfg.SFTP, a.Logger)
	case config.SourceS3:
		if cfg.S3.Bucket == "" {
			a.Logger.Warn("S3_BUCKET is empty, runs will fail at discovery")
		}
		client := s3.NewFromConfig(*awsCfg, func(o *s3.Options) {
			if cfg.S3.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.S3.Endpoint)
				o.UsePathStyle = true
			}
		})
		remote = source.NewS3Source(client, cfg.S3.Bucket, cfg.S3.Prefix)
	case config.SourceLocal:
		remote = source.NewLocalSource(cfg.LocalSourceDir)
	default:
		return nil, fmt.Errorf("unknown SOURCE_KIND %q", cfg.SourceKind)
	}
	a.Logger.Info("File source configured", "kind", cfg.SourceKind)

	if cfg.RedisURL == "" {
		return remote, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	a.redis = redis.NewClient(opts)
	if err := a.redis.Ping(ctx).Err(); err != nil {
		// Redis errors fall through to the remote.
		a.Logger.Warn("Redis unreachable, source cache will miss", "error", err)
	}
	return source.NewCachedSource(remote, a.redis, cfg.SourceCacheTTL, a.Logger), nil
}

func (a *App) buildNotifier(awsCfg *aws.Config) *notify.Dispatcher {
	cfg := a.Config
	channels := []notify.Channel{notify.NewLogChannel(a.Logger)}

	if cfg.RabbitMQURL != "" {
		a.Publisher = broker.NewEventPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange, a.Logger)
		channels = append(channels, notify.NewBrokerChannel(a.Publisher))
	}

	if cfg.SESFrom != "" && len(cfg.NotificationEmails) > 0 {
		channels = append(channels, notify.NewEmailChannel(sesv2.NewFromConfig(*awsCfg), cfg.SESFrom, cfg.NotificationEmails))
	}

	return notify.NewDispatcher(a.Logger, channels...)
}

// Scheduler builds the tick loop around the app's pipeline.
func (a *App) Scheduler() *service.Scheduler {
	cfg := a.Config
	return service.NewScheduler(a.Pipeline, a.Gate, a.Store, cfg.TickInterval, cfg.MaintenanceInterval, cfg.StaleRunTimeout, a.Logger)
}

func (a *App) Close() {
	if a.Publisher != nil {
		a.Publisher.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
	if a.Store != nil {
		a.Store.Close()
	}
}
