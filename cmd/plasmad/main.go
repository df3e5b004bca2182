package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/plasmacash/plasma/cmd/plasmad/commands"
	"github.com/plasmacash/plasma/config"
	"github.com/plasmacash/plasma/libs/cli"
	"github.com/plasmacash/plasma/libs/log"
	"github.com/plasmacash/plasma/node"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	conf, err := commands.ParseConfig(config.DefaultConfig())
	if err != nil {
		panic(err)
	}

	logger, err := log.NewDefaultLogger(conf.LogFormat, conf.LogLevel)
	if err != nil {
		panic(err)
	}

	rcmd := commands.RootCommand(conf, logger)
	rcmd.AddCommand(
		commands.MakeInitFilesCommand(conf, logger),
		commands.MakeGenKeyCommand(),
		commands.MakeShowAddressCommand(conf),
		commands.MakeResetCommand(conf, logger),
		commands.MakeVersionCommand(),
	)

	// Create & start node
	rcmd.AddCommand(commands.NewRunNodeCmd(node.NewDefault, conf, logger))

	if err := cli.RunWithTrace(ctx, rcmd); err != nil {
		os.Exit(2)
	}
}
