package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"mrireorient/pkg/batch"
	"mrireorient/pkg/blobstore"
	"mrireorient/pkg/config"
	"mrireorient/pkg/logging"
)

func main() {
	configPath := flag.String("config", "mrireorient.yaml", "YAML configuration file (defaults are used if it does not exist)")
	bucketRef := flag.String("bucket", "", "Bucket reference overriding the configuration (gs://, s3://, file://, mem://)")
	initConfig := flag.Bool("init-config", false, "Write the default configuration to -config and exit")
	verbose := flag.Bool("verbose", false, "Log debug messages")
	flag.Parse()

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write default config: %v", err)
		}
		fmt.Printf("Default configuration written to: %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *bucketRef != "" {
		cfg.Bucket = *bucketRef
	}
	if *verbose {
		cfg.Log.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := logging.New(cfg.Log)
	defer logger.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store, err := blobstore.OpenBucket(ctx, cfg.Bucket)
	if err != nil {
		log.Fatalf("Failed to open bucket: %v", err)
	}
	defer store.Close()

	startTime := time.Now()
	report, err := batch.New(cfg, store, logger).Run(ctx)
	if err != nil {
		logger.Shutdown()
		log.Fatalf("Conversion of %s stopped after %d converted item(s): %v", store.Ref(), report.Converted, err)
	}

	fmt.Printf("\nConversion completed in %.2f seconds\n", time.Since(startTime).Seconds())
	fmt.Printf("- Bucket:    %s\n", store.Ref())
	fmt.Printf("- Listed:    %d\n", report.Listed)
	fmt.Printf("- Skipped:   %d\n", report.Skipped)
	fmt.Printf("- Converted: %d\n", report.Converted)
	fmt.Printf("- Failed:    %d\n", len(report.Failures))
	for _, f := range report.Failures {
		fmt.Printf("    %s: %v\n", f.ID, f.Err)
	}
}
