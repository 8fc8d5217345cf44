package main

import (
	"github.com/alecthomas/kong"

	// register the games the service can host
	_ "github.com/gatismeikulis/card-game-app/internal/game/fivehundred"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version          kong.VersionFlag    `short:"v" help:"Show version"`
	Serve            ServeCmd            `cmd:"" help:"Run the card-table service"`
	SnapshotBackfill SnapshotBackfillCmd `cmd:"snapshot-backfill" help:"Backfill the snapshot cache from the event log"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("cardtable"),
		kong.Description("Authoritative server for online Five Hundred tables"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
