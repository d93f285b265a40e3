package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	apiserver "github.com/perfectpitch/pitch-coach/internal/api_server"
	"github.com/perfectpitch/pitch-coach/internal/artifacts"
	"github.com/perfectpitch/pitch-coach/internal/asr"
	"github.com/perfectpitch/pitch-coach/internal/config"
	"github.com/perfectpitch/pitch-coach/internal/deck"
	"github.com/perfectpitch/pitch-coach/internal/events"
	"github.com/perfectpitch/pitch-coach/internal/judge"
	"github.com/perfectpitch/pitch-coach/internal/llm"
	"github.com/perfectpitch/pitch-coach/internal/pipeline"
	"github.com/perfectpitch/pitch-coach/internal/script"
	"github.com/perfectpitch/pitch-coach/internal/service"
	"github.com/perfectpitch/pitch-coach/internal/speech"
	"github.com/perfectpitch/pitch-coach/internal/store"
	"github.com/perfectpitch/pitch-coach/pkg/log"
	"github.com/perfectpitch/pitch-coach/pkg/metrics"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the coach api",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return err
		}

		logger := log.InitLog(cfg.Service.LogLevel)
		defer func() { _ = logger.Sync() }()
		undo := zap.ReplaceGlobals(logger)
		defer undo()

		zap.S().Named("coach-api").Info("Starting API service")
		defer zap.S().Named("coach-api").Info("API service stopped")

		s, err := newRegistry(cfg)
		if err != nil {
			zap.S().Named("coach-api").Fatalw("initializing job registry", "error", err)
		}
		defer s.Close()

		files := artifacts.NewStore(cfg.Service.UploadsFolder, cfg.Service.ArtifactsFolder)

		producer, err := newEventProducer(cfg)
		if err != nil {
			zap.S().Named("coach-api").Fatalw("initializing event producer", "error", err)
		}
		defer func() { _ = producer.Close() }()

		metrics.MustRegisterPipelineMetrics()

		runner := pipeline.NewRunner(
			s.Job(),
			files,
			pipeline.Collaborators{
				DeckParser:   pipeline.DeckParserFunc(deck.Parse),
				Renderer:     deck.NewRenderer(cfg.Tools.Soffice, cfg.Tools.Pdftoppm),
				Transcriber:  asr.NewTranscriber(llmSettings(cfg, cfg.LLM.ASRModel)),
				Judge:        judge.New(llm.NewClient(llmSettings(cfg, cfg.LLM.ChatModel)), cfg.LLM.BatchSize),
				Speech:       speech.NewAnalyzer(cfg.Tools.Ffmpeg),
				ScriptParser: pipeline.ScriptParserFunc(script.Parse),
			},
			pipeline.ModelInfo{STT: cfg.LLM.ASRModel, Judge: cfg.LLM.ChatModel},
			producer,
		)

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
		defer cancel()

		dispatcher := pipeline.NewDispatcher(runner, cfg.Service.Workers, cfg.Service.QueueDepth)
		dispatcher.Start(ctx)
		defer dispatcher.Stop()

		svc := service.NewCoachService(s, files, dispatcher, cfg)

		go func() {
			defer cancel()
			listener, err := newListener(cfg.Service.Address)
			if err != nil {
				zap.S().Named("coach-api").Fatalw("creating listener", "error", err)
			}

			server := apiserver.New(cfg, svc, listener)
			if err := server.Run(ctx); err != nil {
				zap.S().Named("coach-api").Fatalw("running api server", "error", err)
			}
		}()

		go func() {
			defer cancel()
			listener, err := newListener(cfg.Service.MetricsAddress)
			if err != nil {
				zap.S().Named("coach-api").Fatalw("creating metrics listener", "error", err)
			}

			metricsServer := apiserver.NewMetricServer(cfg.Service.MetricsAddress, listener)
			if err := metricsServer.Run(ctx); err != nil {
				zap.S().Named("coach-api").Fatalw("running metrics server", "error", err)
			}
		}()

		<-ctx.Done()
		return nil
	},
}

func newRegistry(cfg *config.Config) (store.Store, error) {
	if cfg.Service.Registry != "db" {
		return store.NewMemoryStore(), nil
	}
	db, err := store.InitDB(cfg)
	if err != nil {
		return nil, err
	}
	s := store.NewStore(db)
	if err := s.InitialMigration(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func newEventProducer(cfg *config.Config) (*events.EventProducer, error) {
	var opts []events.ProducerOptions
	if cfg.Service.Kafka.Topic != "" {
		opts = append(opts, events.WithOutputTopic(cfg.Service.Kafka.Topic))
	}
	if len(cfg.Service.Kafka.Brokers) == 0 {
		return events.NewEventProducer(&events.StdoutWriter{}, opts...), nil
	}
	writer, err := events.NewKafkaWriter(cfg.Service.Kafka.Brokers, cfg.Service.Kafka.ClientID)
	if err != nil {
		return nil, err
	}
	return events.NewEventProducer(writer, opts...), nil
}

func llmSettings(cfg *config.Config, model string) llm.Config {
	return llm.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}
}

func newListener(address string) (net.Listener, error) {
	if address == "" {
		address = "localhost:0"
	}
	return net.Listen("tcp", address)
}
