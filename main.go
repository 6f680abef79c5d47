package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"golang.org/x/sync/errgroup"

	"databridge/internal/app"
	"databridge/internal/config"
	"databridge/internal/convert"
	"databridge/internal/domain"
)

const (
	sweepInterval   = time.Minute
	shutdownTimeout = 10 * time.Second
)

func usage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  databridge serve [-config file.hcl] [-addr host:port]   # HTTP API + export triggers")
	fmt.Fprintln(os.Stderr, "  databridge mcp [-config file.hcl]                       # MCP server on stdin/stdout")
	fmt.Fprintln(os.Stderr, "  databridge convert -mode json_to_sql -in file.json [-out dir]")
	fmt.Fprintln(os.Stderr, "  databridge init-config -out databridge.hcl")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "serve":
		err = runServe(args)
	case "mcp":
		err = runMCP(args)
	case "convert":
		err = runConvert(args)
	case "init-config":
		err = runInitConfig(args)
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		usage()
		os.Exit(2)
	}
	if err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func loadConfig(fs *flag.FlagSet, args []string) (*config.Config, error) {
	path := fs.String("config", "", "path to an HCL config file")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return config.LoadOrDefault(*path)
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", "", "listen address (overrides listen_addr)")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.Exports.Start(ctx)
	srv := a.HTTP()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(cfg.ListenAddr)
	})
	g.Go(func() error {
		return a.RunSweeper(gctx, sweepInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("[HTTP] shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.Exports.Stop()
		err := srv.Shutdown(shutdownCtx)
		a.Exports.WaitRunning(shutdownCtx)
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runMCP(args []string) error {
	cfg, err := loadConfig(flag.NewFlagSet("mcp", flag.ExitOnError), args)
	if err != nil {
		return err
	}
	return app.ServeMCP(cfg)
}

func runConvert(args []string) error {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	modeName := fs.String("mode", string(domain.ModeJSONToSQL), "json_to_sql or json_to_nosql")
	in := fs.String("in", "", "JSON file to convert")
	out := fs.String("out", ".", "output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		fs.Usage()
		return errors.New("-in is required")
	}

	mode, err := domain.ParseConversionMode(*modeName)
	if err != nil {
		return err
	}
	if !mode.ReadsUpload() {
		return fmt.Errorf("%s reads a live database; use `databridge serve` or `databridge mcp` for it", mode)
	}

	data, err := os.ReadFile(*in)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	res, err := convert.Convert(mode, convert.Input{
		Upload: &convert.Upload{Filename: filepath.Base(*in), Data: data},
	})
	if err != nil {
		return fmt.Errorf("conversion error: %w", err)
	}
	if res.Content == convert.EmptyNotice {
		color.Yellow("Warning: %s holds no records", *in)
	}

	if err := os.MkdirAll(*out, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	outPath := filepath.Join(*out, res.Filename)
	if err := os.WriteFile(outPath, []byte(res.Content), 0644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	color.Green("Converted %s to %s (%d bytes)", *in, outPath, len(res.Content))
	return nil
}

func runInitConfig(args []string) error {
	fs := flag.NewFlagSet("init-config", flag.ExitOnError)
	out := fs.String("out", "databridge.hcl", "where to write the config")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := os.Stat(*out); err == nil {
		return fmt.Errorf("%s already exists", *out)
	}
	if err := config.Export(*out, config.DefaultConfig()); err != nil {
		return err
	}
	color.Green("Wrote default config to %s", *out)
	return nil
}
