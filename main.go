package main

import (
	"context"
	"os"
	"os/signal"
)

func main() {
	cli := parseArgs(os.Args[1:])

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch cli.mode {
	case runMode:
		runMain(ctx, cli.Run, cli.Config)
	case scriptMode:
		scriptMain(ctx, cli.Script, cli.Config)
	case regsMode:
		regsMain(cli.Regs)
	case versionMode:
		versionMain()
	}
}
