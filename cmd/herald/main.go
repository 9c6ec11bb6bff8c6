package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli/v3"

	"github.com/tzrikka/herald/pkg/bot"
	"github.com/tzrikka/herald/pkg/config"
	"github.com/tzrikka/xdg"
)

const (
	ConfigDirName  = "herald"
	ConfigFileName = "config.toml"
)

func main() {
	buildInfo, _ := debug.ReadBuildInfo()
	configFilePath := configFile()

	// A local ".env" file is optional, and doesn't override the environment.
	_ = godotenv.Load()

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:    "dev",
			Usage:   "simple setup, but unsafe for production",
			Sources: cli.EnvVars("HERALD_DEV"),
		},
	}
	flags = append(flags, config.Flags(configFilePath)...)

	cmd := &cli.Command{
		Name:    "herald",
		Usage:   "Announce new Slack channels and workspace members in a designated channel",
		Version: buildInfo.Main.Version,
		Flags:   flags,
		Action:  bot.Start,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

// configFile returns the path to the app's configuration file.
// It also creates an empty file if it doesn't already exist.
func configFile() altsrc.StringSourcer {
	path, err := xdg.CreateFile(xdg.ConfigHome, ConfigDirName, ConfigFileName)
	if err != nil {
		log.Fatal().Err(err).Caller().Send()
	}
	return altsrc.StringSourcer(path)
}
