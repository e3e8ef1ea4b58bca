package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/spaghettifunk/anima-assets/engine/assets"
	"github.com/spaghettifunk/anima-assets/engine/assets/loaders"
	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/engine/systems"
)

// Exit codes follow Unix conventions.
const (
	ExitSuccess = 0
	ExitGeneral = 1 // Broken references or unexpected errors
	ExitUsage   = 2 // Invalid flags, command or configuration
)

const usage = `usage: assetctl [--config file] [--root dir] [--log-level level] <command> [paths...]

commands:
  list                 print every registered asset
  register <paths...>  register files and save the index
  validate             report registered files that no longer exist
  warm                 load every registered asset
  watch                report registered files as they are removed
`

var errUsage = errors.New("usage error")

type commonFlags struct {
	config   string
	root     string
	logLevel string
}

func parseFlags(args []string) (*commonFlags, []string, error) {
	f := &commonFlags{}
	fs := flag.NewFlagSet("assetctl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVarP(&f.config, "config", "c", "", "registry configuration file (TOML)")
	fs.StringVarP(&f.root, "root", "r", "", "asset root directory, overrides the configuration")
	fs.StringVarP(&f.logLevel, "log-level", "l", "", "debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return nil, nil, fmt.Errorf("%w: %s", errUsage, err)
	}
	return f, fs.Args(), nil
}

func loadConfig(f *commonFlags) (*assets.RegistryConfig, error) {
	cfg := assets.DefaultRegistryConfig()
	if f.config != "" {
		var err error
		if cfg, err = assets.LoadRegistryConfig(f.config); err != nil {
			return nil, fmt.Errorf("%w: %s", errUsage, err)
		}
	}
	if f.root != "" {
		cfg.RootDirectory = f.root
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	if cfg.RootDirectory == "" {
		cfg.RootDirectory = "."
	}
	if err := core.SetLogLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("%w: %s", errUsage, err)
	}
	return cfg, nil
}

func openRegistry(cfg *assets.RegistryConfig) (*assets.Registry, error) {
	r, err := assets.NewRegistry(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errUsage, err)
	}
	loaders.RegisterAll(r)
	if err := r.LoadIndex(cfg.IndexFile); err != nil {
		return nil, err
	}
	return r, nil
}

func run(args []string, stdout io.Writer) int {
	err := execute(args, stdout)
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, errUsage):
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprint(os.Stderr, usage)
		return ExitUsage
	default:
		fmt.Fprintln(os.Stderr, err)
		return ExitGeneral
	}
}

func execute(args []string, stdout io.Writer) error {
	flags, rest, err := parseFlags(args)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		return fmt.Errorf("%w: missing command", errUsage)
	}
	command, paths := rest[0], rest[1:]
	if command != "register" && len(paths) > 0 {
		return fmt.Errorf("%w: %s takes no arguments", errUsage, command)
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	r, err := openRegistry(cfg)
	if err != nil {
		return err
	}

	switch command {
	case "list":
		return list(r, stdout)
	case "register":
		return register(r, paths, stdout)
	case "validate":
		return validate(r, stdout)
	case "warm":
		return warm(r, cfg.PreloadWorkers, stdout)
	case "watch":
		return watch(r)
	}
	return fmt.Errorf("%w: unknown command '%s'", errUsage, command)
}

func list(r *assets.Registry, out io.Writer) error {
	for _, h := range r.Handles() {
		info, ok := r.Info(h)
		if !ok {
			continue
		}
		fmt.Fprintf(out, "%s  %s  %s\n", h, info.Type, info.Path)
	}
	return nil
}

func register(r *assets.Registry, paths []string, out io.Writer) error {
	if len(paths) == 0 {
		return fmt.Errorf("%w: register needs at least one path", errUsage)
	}
	for _, p := range paths {
		full := p
		if !filepath.IsAbs(full) {
			full = filepath.Join(r.RootPath(), filepath.FromSlash(p))
		}
		kind, err := loaders.DetectKind(full)
		if err != nil {
			return fmt.Errorf("register %s: %w", p, err)
		}
		h := loaders.LoadKind(r, kind, p)
		info, _ := r.Info(h)
		fmt.Fprintf(out, "%s  %s  %s\n", h, info.Type, info.Path)
	}
	return r.SaveIndex()
}

func validate(r *assets.Registry, out io.Writer) error {
	broken := r.Validate()
	for _, h := range broken {
		path, _ := r.GetPath(h)
		fmt.Fprintf(out, "missing  %s  %s\n", h, path)
	}
	if len(broken) > 0 {
		return fmt.Errorf("%d of %d assets have broken references", len(broken), r.Len())
	}
	fmt.Fprintf(out, "%d assets ok\n", r.Len())
	return nil
}

func warm(r *assets.Registry, workers int, out io.Writer) error {
	js, err := systems.NewJobSystem(workers, workers)
	if err != nil {
		return err
	}
	defer js.Shutdown()

	warmed := systems.NewPreloader(r, js).PreloadAll()
	fmt.Fprintf(out, "%d/%d assets loaded\n", warmed, r.Len())
	if warmed != r.Len() {
		return fmt.Errorf("%w: %d assets failed to load", core.ErrLoadFailed, r.Len()-warmed)
	}
	return nil
}

func watch(r *assets.Registry) error {
	rw, err := assets.NewReferenceWatcher(r)
	if err != nil {
		return err
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer signal.Stop(sigCh)

	<-sigCh
	return rw.Close()
}
