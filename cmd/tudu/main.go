package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/idilsaglam/tudu/internal/cache"
	"github.com/idilsaglam/tudu/internal/cli"
	"github.com/idilsaglam/tudu/internal/config"
	"github.com/idilsaglam/tudu/internal/gateway"
	"github.com/idilsaglam/tudu/internal/session"
	"github.com/idilsaglam/tudu/internal/tui"
	"github.com/idilsaglam/tudu/internal/ui"
)

func main() {
	// Root flags (apply to every subcommand)
	serverURL := flag.String("server", "", "backend base URL (overrides config)")
	theme := flag.String("theme", "", "output theme: classic, neon or mono")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn or error")
	forceColor := flag.Bool("color", false, "force colored output")
	noColor := flag.Bool("no-color", false, "disable colored output")
	flag.Parse()

	loaded, err := config.Load(config.Flags{
		ServerURL: *serverURL,
		Theme:     *theme,
		LogLevel:  *logLevel,
	})
	if err != nil {
		ui.Fail("config: " + err.Error())
		os.Exit(1)
	}
	cfg := loaded.Config

	ui.SetColorForcing(*forceColor, *noColor)
	ui.SetTheme(cfg.Theme)
	logger := config.NewLogger(cfg, os.Stderr)

	sess := session.New()
	if err := sess.Load(); err != nil {
		logger.Warn("could not restore the stored session", "err", err)
	}

	gw, err := gateway.New(cfg.ServerURL, nil, sess, logger)
	if err != nil {
		ui.Fail("server url: " + err.Error())
		os.Exit(1)
	}

	opt := cli.Options{
		Config:  cfg,
		Logger:  logger,
		Session: sess,
		Gateway: gw,
		Cache:   cache.New(),
	}
	opt.Interactive = func() error {
		return tui.Run(tui.Deps{
			Config:  cfg,
			Logger:  logger,
			Session: sess,
			Gateway: gw,
			Cache:   opt.Cache,
		})
	}

	code := cli.Run(flag.Args(), opt)
	if code != 0 {
		fmt.Fprintln(os.Stderr)
	}
	os.Exit(code)
}
