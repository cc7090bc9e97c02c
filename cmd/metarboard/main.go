package main

import (
	"github.com/alecthomas/kong"
)

// Globals are flags shared by every command.
type Globals struct {
	Config   string   `help:"Path to metarboard.toml. Searched for when empty." type:"path" short:"c"`
	EnvFile  []string `help:"Dotenv files loaded before the config." name:"env-file" default:".env" sep:","`
	LogLevel string   `help:"Override logging.level." name:"log-level"`
}

type CLI struct {
	Globals

	Serve    ServeCmd    `cmd:"" default:"withargs" help:"Run the update loop and the web UI."`
	Once     OnceCmd     `cmd:"" help:"Run one update, print the board text and exit."`
	Render   RenderCmd   `cmd:"" help:"Render a saved provider payload without fetching."`
	Settings SettingsCmd `cmd:"" help:"Print the stored runtime settings."`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("metarboard"),
		kong.Description("Shows the latest METAR or TAF for a station on an LED board."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run(&cli.Globals))
}
