package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/matheus3301/tabroom/internal/config"
	"github.com/matheus3301/tabroom/internal/daemon"
	"github.com/matheus3301/tabroom/internal/profile"
	"go.uber.org/fx"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	sessionFlag := flag.String("session", "", "session name (overrides config default)")
	flag.Parse()

	cfg, err := config.LoadOrDefault(profile.ConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	profileName, sessionName, err := profile.Resolve(*profileFlag, *sessionFlag, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	for _, w := range cfg.Warnings() {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}

	app := fx.New(
		daemon.Module(daemon.Params{
			Profile: profileName,
			Session: sessionName,
			Config:  cfg,
		}),
	)

	app.Run()
}
