// Package main provides the climate API HTTP server.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"go.ngs.io/climate-api/internal/adapter/graph"
	"go.ngs.io/climate-api/internal/adapter/store/partition"
	"go.ngs.io/climate-api/internal/config"
	httpHandler "go.ngs.io/climate-api/internal/http"
	"go.ngs.io/climate-api/internal/usecase"
)

const version = "0.1.0"

func main() {
	// Parse command-line flags.
	showHelp := flag.Bool("help", false, "Show usage information")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}

	if *showVersion {
		fmt.Printf("climate-api version %s\n", version)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	log := cfg.NewLogger()

	log.WithFields(logrus.Fields{
		"port":              cfg.Port,
		"data_dir":          cfg.DataDir,
		"default_start":     cfg.DefaultStart.Format("2006-01-02"),
		"default_end":       cfg.DefaultEnd.Format("2006-01-02"),
		"climatology_years": cfg.ClimatologyYears,
	}).Info("starting climate API server")

	catalog := partition.NewCatalog(cfg.DataDir, partition.WithLogger(log))
	if names, err := catalog.ListParameters(); err != nil {
		log.WithError(err).Warn("data directory is not readable yet")
	} else {
		log.WithField("parameters", names).Info("catalog loaded")
	}

	opts := []usecase.Option{usecase.WithLogger(log)}
	publisher, err := newGraphPublisher(cfg.Graph, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize graph publisher")
	}
	if publisher != nil {
		opts = append(opts, usecase.WithGraphPublisher(publisher))
	} else {
		log.Info("graph publishing disabled (no GRAPH_BUCKET or GRAPH_DIR configured)")
	}

	queryUC := usecase.NewQueryUseCase(catalog, cfg.Settings(), opts...)

	routerCfg := httpHandler.RouterConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		Log:            log,
	}
	if cfg.Graph.Bucket == "" {
		routerCfg.GraphDir = cfg.Graph.Dir
	}
	router := httpHandler.SetupRouter(queryUC, routerCfg)

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Infof("server listening on %s", addr)
	log.Infof("health check: http://localhost:%s/health", cfg.Port)

	if err := router.Run(addr); err != nil {
		log.WithError(err).Fatal("failed to start server")
	}
}

// newGraphPublisher prefers S3 and falls back to a local directory; nil when neither is configured.
func newGraphPublisher(cfg config.GraphConfig, log logrus.FieldLogger) (*graph.Publisher, error) {
	switch {
	case cfg.Bucket != "":
		store, err := graph.NewS3Store(cfg.Bucket, cfg.Region)
		if err != nil {
			return nil, err
		}
		log.WithFields(logrus.Fields{"bucket": cfg.Bucket, "region": cfg.Region}).Info("publishing graphs to S3")
		return graph.NewPublisher(store, cfg.Retries, log), nil
	case cfg.Dir != "":
		store, err := graph.NewDirStore(cfg.Dir, cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		log.WithFields(logrus.Fields{"dir": store.Dir(), "base_url": cfg.BaseURL}).Info("publishing graphs to local directory")
		return graph.NewPublisher(store, cfg.Retries, log), nil
	default:
		return nil, nil
	}
}

// printUsage prints usage information.
func printUsage() {
	fmt.Printf("Climate API Server v%s\n\n", version)
	fmt.Println("USAGE:")
	fmt.Println("  climate-api [flags]")
	fmt.Println()
	fmt.Println("FLAGS:")
	fmt.Println("  -help          Show this help message")
	fmt.Println("  -version       Show version information")
	fmt.Println()
	fmt.Println("ENVIRONMENT VARIABLES (also read from .env):")
	fmt.Println("  PORT                    Server port (default: 8080)")
	fmt.Println("  DATA_DIR                Parameter data directory (default: ./data)")
	fmt.Println("  DEFAULT_START_DATE      Start of the default window (default: 1960-01-01)")
	fmt.Println("  DEFAULT_END_DATE        End of the default window (default: 2015-12-31)")
	fmt.Println("  CLIMATOLOGY_YEARS       Preceding years in a climatology (default: 20)")
	fmt.Println("  LOG_LEVEL               Log level (default: info)")
	fmt.Println("  LOG_FORMAT              text or json (default: text)")
	fmt.Println("  CORS_ALLOWED_ORIGINS    Comma-separated list of allowed origins (default: all origins)")
	fmt.Println("  GRAPH_BUCKET            S3 bucket for graph images (optional)")
	fmt.Println("  GRAPH_REGION            S3 region (default: AWS_REGION or us-east-1)")
	fmt.Println("  GRAPH_DIR               Local graph directory served under /graphs (optional)")
	fmt.Println("  GRAPH_BASE_URL          Public URL of GRAPH_DIR (default: http://localhost:PORT/graphs)")
	fmt.Println("  GRAPH_RETRIES           Upload retries (default: 3)")
	fmt.Println()
	fmt.Println("API ENDPOINTS:")
	fmt.Println("  GET /health                                Health check")
	fmt.Println("  GET /v1/parameters                         List parameters")
	fmt.Println("  GET /{parameter}/{operation}/range         Aggregate over a date range")
	fmt.Println("  GET /{parameter}/{operation}/climatology   Aggregate over the same dates in preceding years")
	fmt.Println()
	fmt.Println("  Query: lon, lat (required), date | start_date, end_date (YYYY-MM-DD)")
	fmt.Println("  Operations: mean, min, max")
	fmt.Println()
}
