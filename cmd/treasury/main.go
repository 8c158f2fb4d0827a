package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	treasurycmd "github.com/hearthvault/hearthvault/internal/cmd/treasury"
)

func main() {
	cfg, err := treasurycmd.ParseConfig(flag.CommandLine, os.Args[1:], func(key string) (string, bool) {
		value, ok := os.LookupEnv(key)
		return value, ok
	})
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[TREASURY] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := treasurycmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
