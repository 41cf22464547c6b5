package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/vtecchio/dadosbr-pipeline/internal/config"
	"github.com/vtecchio/dadosbr-pipeline/internal/discovery"
	"github.com/vtecchio/dadosbr-pipeline/internal/fetch"
	"github.com/vtecchio/dadosbr-pipeline/internal/indicators"
	"github.com/vtecchio/dadosbr-pipeline/internal/models"
	"github.com/vtecchio/dadosbr-pipeline/internal/pipeline"
	"github.com/vtecchio/dadosbr-pipeline/internal/storage"
)

func newObjectStore(ctx context.Context, cfg *config.Config) (storage.ObjectStore, error) {
	store, err := storage.NewMinioStore(storage.MinioConfig{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		UseSSL:    cfg.MinioUseSSL,
		Bucket:    cfg.BucketName,
	})
	if err != nil {
		return nil, err
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func newFetchClient(cfg *config.Config) *fetch.Client {
	return fetch.NewClient(&fetch.ClientConfig{
		Timeout:    time.Duration(cfg.DownloadTimeoutSeconds) * time.Second,
		MaxRetries: cfg.MaxRetries,
		RateLimit:  cfg.RequestsPerSecond,
	})
}

func run(ctx context.Context, source string, payload models.TriggerPayload, cfg *config.Config) (models.ExecutionResult, error) {
	store, err := newObjectStore(ctx, cfg)
	if err != nil {
		return models.ExecutionResult{}, err
	}
	client := newFetchClient(cfg)

	switch source {
	case "receita":
		window, err := cfg.Window()
		if err != nil {
			return models.ExecutionResult{}, err
		}
		pattern, err := pipeline.DataTypePattern(payload.DataType)
		if err != nil {
			return models.ExecutionResult{}, err
		}
		lister := discovery.NewHTTPLister(client, cfg.ReceitaBaseURL, window, cfg.AllowedMonths, pattern)
		pipe := pipeline.New(store, client, cfg.ReceitaBasePath, pipeline.Options{})
		service := pipeline.NewReceitaService(lister, pipe, cfg.ReceitaBaseURL)
		return service.Run(ctx, payload)

	case "fazenda":
		pipe := pipeline.New(store, client, cfg.FazendaBasePath, pipeline.Options{SkipIfArtifactsExist: true})
		service := pipeline.NewFazendaService(pipe, cfg.FazendaBaseURL, cfg.StartYear, cfg.EndYear)
		return service.Run(ctx, payload)

	case "lucros":
		pipe := pipeline.New(store, client, cfg.LucrosBasePath, pipeline.Options{})
		service := pipeline.NewLucrosService(pipe, cfg.LucrosBaseURL)
		return service.Run(ctx, payload)

	case "bacen":
		collector := indicators.NewCollector(client, store, cfg.BacenBaseURL, cfg.BacenBasePath, cfg.IndicatorsStartDate)
		return collector.Run(ctx)

	default:
		return models.ExecutionResult{}, fmt.Errorf("unknown source %q (expected receita, fazenda, lucros or bacen)", source)
	}
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: could not load .env file: %v", err)
	}

	source := flag.String("source", "receita", "logical source to crawl: receita, fazenda, lucros or bacen")
	payloadJSON := flag.String("payload", "{}", "trigger payload (JSON message body)")
	flag.Parse()

	payload, err := models.ParseTriggerPayload([]byte(*payloadJSON))
	if err != nil {
		log.Fatalf("invalid payload: %v", err)
	}

	cfg, err := config.New()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	startTime := time.Now()
	log.Printf("crawler starting: source=%s bucket=%s", *source, cfg.BucketName)

	result, err := run(context.Background(), *source, payload, cfg)
	if err != nil {
		log.Fatalf("invocation failed: %v", err)
	}

	log.Printf("execution time: %s", time.Since(startTime))

	encoded, err := json.Marshal(result)
	if err != nil {
		log.Fatalf("failed to encode result: %v", err)
	}
	fmt.Println(string(encoded))

	if result.Status == models.StatusFailed {
		os.Exit(1)
	}
}
