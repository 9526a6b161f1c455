package main

import (
	"flag"
	"os"

	"hvacsight/internal/cache"
	"hvacsight/internal/config"
	"hvacsight/internal/logging"
	"hvacsight/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	addr := flag.String("addr", "", "listen address (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.NewLogger(false).Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	log := logging.NewLogger(cfg.Server.Debug)

	resultCache := cache.New(cfg.Redis, log)
	defer resultCache.Close()

	srv := server.New(cfg, log, resultCache)
	if err := srv.Start(cfg.Server.Addr); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}
