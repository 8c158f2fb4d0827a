// Package main provides a one-shot utility for minting identity tokens.
//
// It signs a bearer token for the given identity, generating an ed25519
// key pair when no private key is supplied.
package main

import (
	"flag"
	"os"

	"github.com/hearthvault/hearthvault/internal/platform/config"
	"github.com/hearthvault/hearthvault/internal/tools/identitytoken"
)

func main() {
	cfg, err := identitytoken.ParseConfig(flag.CommandLine, os.Args[1:], func(key string) (string, bool) {
		value, ok := os.LookupEnv(key)
		return value, ok
	})
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	if err := identitytoken.Run(os.Stdout, nil, cfg); err != nil {
		config.Exitf("mint identity token: %v", err)
	}
}
