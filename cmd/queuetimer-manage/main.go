// Command queuetimer-manage runs one-shot maintenance tasks against the database.
//
//	queuetimer-manage [-config path] cleanup
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"queuetimer-backend/config"
	"queuetimer-backend/internal/clock"
	"queuetimer-backend/internal/db"
	"queuetimer-backend/internal/logger"
	"queuetimer-backend/internal/service"
	"queuetimer-backend/internal/store"
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-config path] <command>\n\ncommands:\n  cleanup   delete expired anonymous users and their data\n\nflags:\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to the YAML config file")
	flag.Usage = usage
	flag.Parse()
	if *configPath == "" {
		*configPath = "./config/config.yaml"
	}
	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %s: %v", *configPath, err)
	}
	zlog, err := logger.New(cfg.Log.Level, "console")
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zlog.Sync() //nolint:errcheck

	switch cmd := flag.Arg(0); cmd {
	case "cleanup":
		if err := cleanup(cfg, zlog); err != nil {
			zlog.Fatal("Cleanup failed", zap.Error(err))
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}
}

func cleanup(cfg *config.Config, zlog *zap.Logger) error {
	gormDB, err := db.Init(&cfg.Database, zlog)
	if err != nil {
		return err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	users := service.NewUserService(store.NewGormStore(gormDB), clock.Real{}, cfg.Auth.TokenTTL, zlog)
	removed, err := users.CleanupExpired(ctx)
	if err != nil {
		return err
	}
	zlog.Info("Expired users removed", zap.Int64("count", removed))
	return nil
}
