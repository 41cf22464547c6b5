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
	"github.com/vtecchio/dadosbr-pipeline/internal/loader"
	"github.com/vtecchio/dadosbr-pipeline/internal/models"
	"github.com/vtecchio/dadosbr-pipeline/internal/storage"
	"github.com/vtecchio/dadosbr-pipeline/internal/warehouse"
)

func setup(ctx context.Context, source string, cfg *config.Config) (*loader.Loader, func(), error) {
	store, err := storage.NewMinioStore(storage.MinioConfig{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		UseSSL:    cfg.MinioUseSSL,
		Bucket:    cfg.BucketName,
	})
	if err != nil {
		return nil, nil, err
	}

	dbpool, err := warehouse.ConnectDB(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	client := warehouse.NewPostgresClient(dbpool, cfg.DatasetID)
	if err := client.EnsureSchema(ctx); err != nil {
		dbpool.Close()
		return nil, nil, err
	}

	var (
		lister    loader.PeriodLister
		dataTypes map[string]warehouse.TableSpec
		loadOrder []string
	)
	switch source {
	case "receita":
		lister = discovery.NewObjectLister(store, cfg.ReceitaBasePath)
		dataTypes = warehouse.DataTypes(cfg.TableEstabelecimentos, cfg.TableEmpresas)
		loadOrder = []string{"estabelecimentos", "empresas"}
	case "fazenda":
		lister = discovery.NewQuarterObjectLister(store, cfg.FazendaBasePath)
		dataTypes = warehouse.FazendaDataTypes(cfg.TableNaoPrevidenciario, cfg.TableFGTS, cfg.TablePrevidenciario)
		loadOrder = []string{"Nao_Previdenciario", "FGTS", "Previdenciario"}
	default:
		dbpool.Close()
		return nil, nil, fmt.Errorf("unknown source %q (expected receita or fazenda)", source)
	}

	l := loader.New(store, lister, client, dataTypes, loadOrder, cfg.FirstPeriodReplace)
	return l, dbpool.Close, nil
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: could not load .env file: %v", err)
	}

	source := flag.String("source", "receita", "logical source to load: receita or fazenda")
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

	ctx := context.Background()
	l, cleanup, err := setup(ctx, *source, cfg)
	if err != nil {
		log.Fatalf("setup failed: %v", err)
	}
	defer cleanup()

	request := models.LoadRequest{
		Period:    payload.PeriodScope(),
		DataType:  payload.DataType,
		WriteMode: models.WriteMode(payload.WriteMode),
	}

	startTime := time.Now()
	log.Printf("loader starting: source=%s period=%q data_type=%q write_mode=%q",
		*source, request.Period, request.DataType, request.WriteMode)

	result, err := l.Load(ctx, request)
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
