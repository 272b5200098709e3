package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dmitrijs2005/moodkeeper/internal/buildinfo"
	"github.com/dmitrijs2005/moodkeeper/internal/client/cli"
	"github.com/dmitrijs2005/moodkeeper/internal/client/config"
	"github.com/dmitrijs2005/moodkeeper/internal/client/events"
	"github.com/dmitrijs2005/moodkeeper/internal/client/fhe/local"
	"github.com/dmitrijs2005/moodkeeper/internal/client/fhe/relayer"
	"github.com/dmitrijs2005/moodkeeper/internal/client/gateway"
	"github.com/dmitrijs2005/moodkeeper/internal/client/ledger"
	"github.com/dmitrijs2005/moodkeeper/internal/client/localdb"
	"github.com/dmitrijs2005/moodkeeper/internal/client/report"
	"github.com/dmitrijs2005/moodkeeper/internal/client/services"
	"github.com/dmitrijs2005/moodkeeper/internal/client/session"
	"github.com/dmitrijs2005/moodkeeper/internal/client/status"
	"github.com/dmitrijs2005/moodkeeper/internal/client/store"
	"github.com/dmitrijs2005/moodkeeper/internal/coprocessor"
	"github.com/dmitrijs2005/moodkeeper/internal/cryptox"
	"github.com/dmitrijs2005/moodkeeper/internal/logging"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("%v", err)
	}

	logger := logging.New(os.Stderr, "text", cfg.LogLevel)

	app, cleanup, err := build(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer cleanup()

	app.Run(ctx)
}

// build wires the client from cfg. cleanup releases everything that was
// opened, in reverse order.
func build(ctx context.Context, cfg *config.Config, logger logging.Logger) (*cli.App, func(), error) {
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warn(ctx, "close failed", "error", err)
			}
		}
	}
	fail := func(err error) (*cli.App, func(), error) {
		cleanup()
		return nil, func() {}, err
	}

	db, err := localdb.InitDatabase(ctx, cfg.DatabasePath)
	if err != nil {
		return fail(fmt.Errorf("error initializing database: %w", err))
	}
	closers = append(closers, db.Close)
	repos := localdb.NewRepositories(db)

	reader := bufio.NewReader(os.Stdin)
	sess := session.NewManager(cfg.KeystorePath, cryptox.DefaultKDFParams(), cli.PromptApprover(reader, os.Stdout), repos.Metadata, logger)

	enc, kms, err := newEncryptor(cfg, sess, logger)
	if err != nil {
		return fail(err)
	}
	if c, ok := enc.(interface{ Close() error }); ok {
		closers = append(closers, c.Close)
	}

	led, err := ledger.Open(ctx, ledger.Options{
		Type:             ledger.Type(cfg.LedgerType),
		RPCURL:           cfg.RPCURL,
		Contract:         cfg.ContractAddress,
		ChainID:          cfg.ChainID,
		ChainMakerConfig: cfg.ChainMakerConfig,
		KMSAddress:       kms,
	}, logger)
	if err != nil {
		return fail(fmt.Errorf("open ledger: %w", err))
	}
	closers = append(closers, led.Close)

	sinks := []status.Sink{repos.Activity}
	if len(cfg.KafkaBrokers) > 0 {
		ks, err := events.NewKafkaSink(events.Config{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic}, logger)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, ks.Close)
		sinks = append(sinks, ks)
	}

	entries := store.New(repos.Snapshot, logger.With("module", "entry_store"))
	tracker := status.NewTracker(cfg.SuccessTTL, cfg.ErrorTTL)
	activity := status.NewActivityLog(cfg.HistoryWindow, logger, sinks...)

	svc := services.NewSentimentService(services.Deps{
		Session:   sess,
		Encryptor: enc,
		Ledger:    led,
		Store:     entries,
		Status:    tracker,
		Activity:  activity,
		Log:       logger,
	})

	exporters := map[string]report.Exporter{
		"file": report.FileExporter{Dir: cfg.ReportDir},
	}
	if cfg.S3Bucket != "" {
		exporters["s3"] = report.NewS3Exporter(report.S3Config{
			Region:       cfg.S3Region,
			Endpoint:     cfg.S3Endpoint,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			Bucket:       cfg.S3Bucket,
			UsePathStyle: cfg.S3Endpoint != "",
		}, nil)
	}

	app := cli.NewApp(cli.Deps{
		Wallet:              sess,
		Service:             svc,
		Store:               entries,
		Status:              tracker,
		Activity:            activity,
		Archive:             repos.Activity,
		Prober:              led.Reader(),
		Exporters:           exporters,
		Reader:              reader,
		Out:                 os.Stdout,
		Log:                 logger,
		OnlineCheckInterval: cfg.OnlineCheckInterval,
	})
	return app, cleanup, nil
}

// newEncryptor returns the configured encryption gateway and, when it is
// known up front, the KMS address whose proofs the ledger should accept.
func newEncryptor(cfg *config.Config, sess *session.Manager, logger logging.Logger) (gateway.Encryptor, common.Address, error) {
	switch cfg.GatewayType {
	case "relayer":
		var kms common.Address
		if cfg.KMSKey != "" {
			key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.KMSKey, "0x"))
			if err != nil {
				return nil, kms, fmt.Errorf("kms key: %w", err)
			}
			kms = crypto.PubkeyToAddress(key.PublicKey)
		}
		c, err := relayer.New(cfg.RelayerAddr, []byte(cfg.RelayerSecret), cfg.RelayerTokenTTL, sess, logger)
		if err != nil {
			return nil, kms, fmt.Errorf("relayer client: %w", err)
		}
		return c, kms, nil
	case "local", "":
		cp, err := coprocessor.NewFromHex(cfg.NetworkKey, cfg.KMSKey, coprocessor.NewMemoryRepository())
		if err != nil {
			return nil, common.Address{}, err
		}
		return local.New(cp, logger), cp.KMSAddress(), nil
	default:
		return nil, common.Address{}, errors.New("unsupported gateway type: " + cfg.GatewayType)
	}
}
