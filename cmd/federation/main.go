package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/michael-watson/federation/internal/config"
	"github.com/michael-watson/federation/internal/datasource"
	"github.com/michael-watson/federation/internal/eventbus"
	"github.com/michael-watson/federation/internal/executor"
	"github.com/michael-watson/federation/internal/introspection"
	"github.com/michael-watson/federation/internal/metrics"
	"github.com/michael-watson/federation/internal/otel"
	"github.com/michael-watson/federation/internal/plan"
	"github.com/michael-watson/federation/internal/schema"
	"github.com/michael-watson/federation/internal/server"
)

const rootUsage = `federation — query-plan-executing GraphQL gateway

USAGE:
  federation <command> [flags]

COMMANDS:
  serve            Run the HTTP gateway over the configured subgraphs
  check-plans      Validate a pre-compiled query plan manifest
  help             Show help for any command
`

const serveUsage = `serve FLAGS:
  -config <file>   Gateway configuration file (YAML, required)
`

const checkPlansUsage = `check-plans FLAGS:
  -plans <file>    Query plan manifest to validate (required)
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("missing command")
	}
	cmd := args[0]
	cmdArgs := args[1:]
	switch cmd {
	case "serve":
		return cmdServe(cmdArgs)
	case "check-plans":
		return cmdCheckPlans(cmdArgs)
	case "help":
		return cmdHelp(cmdArgs)
	default:
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string) error {
	if len(args) == 0 {
		fmt.Print(rootUsage)
		return nil
	}
	switch args[0] {
	case "serve":
		fmt.Print(serveUsage)
	case "check-plans":
		fmt.Print(checkPlansUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

func cmdServe(args []string) error {
	configPath := ""
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&configPath, "config", configPath, "Gateway configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, serveUsage)
		return err
	}
	if configPath == "" {
		fmt.Fprint(os.Stderr, serveUsage)
		return fmt.Errorf("-config is required")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	supergraphSDL, err := os.ReadFile(cfg.SupergraphSchema)
	if err != nil {
		return fmt.Errorf("read supergraph schema: %w", err)
	}
	supergraphSchema, err := schema.BuildFromSDL(cfg.SupergraphSchema, string(supergraphSDL))
	if err != nil {
		return err
	}
	apiSchema := supergraphSchema
	if cfg.APISchema != "" {
		apiSDL, err := os.ReadFile(cfg.APISchema)
		if err != nil {
			return fmt.Errorf("read api schema: %w", err)
		}
		apiSchema, err = schema.BuildFromSDL(cfg.APISchema, string(apiSDL))
		if err != nil {
			return err
		}
	}

	manifest, err := plan.LoadManifest(cfg.PlanManifest)
	if err != nil {
		return err
	}

	serviceMap := make(datasource.ServiceMap, len(cfg.Services))
	for _, svc := range cfg.Services {
		opts := []datasource.HTTPOption{}
		if svc.Timeout > 0 {
			opts = append(opts, datasource.WithTimeout(svc.Timeout.Std()))
		}
		for name, value := range svc.Headers {
			opts = append(opts, datasource.WithHeader(name, value))
		}
		if len(svc.ForwardHeaders) > 0 {
			opts = append(opts, datasource.WithForwardHeaders(svc.ForwardHeaders...))
		}
		serviceMap[svc.Name] = datasource.NewHTTP(svc.URL, opts...)
	}

	eventbus.Use(eventbus.New())
	shutdown, err := otel.Setup(cfg.Otel.Endpoint, cfg.Otel.ServiceName)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	sink := metrics.NewPrometheus(registry)

	execOpts := []executor.Option{}
	if cfg.Server.IntrospectionEnabled() {
		execOpts = append(execOpts, executor.WithIntrospectionHandler(introspection.NewHandler(apiSchema)))
	}
	exec := executor.NewExecutor(serviceMap, supergraphSchema, apiSchema, execOpts...)

	srvOpts := []server.Option{
		server.WithLogger(logger),
		server.WithMetrics(sink),
		server.WithTimeout(cfg.Server.Timeout.Std()),
	}
	if cfg.Server.Pretty {
		srvOpts = append(srvOpts, server.WithPretty())
	}
	if cfg.Server.MaxBodyBytes > 0 {
		srvOpts = append(srvOpts, server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes))
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		srvOpts = append(srvOpts, server.WithCORS(cfg.Server.CORSOrigins...))
	}
	h, err := server.New(exec, manifest, srvOpts...)
	if err != nil {
		return fmt.Errorf("server init: %w", err)
	}

	if cfg.Server.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
			logger.Info("metrics listening", "addr", cfg.Server.MetricsAddr)
			if err := http.ListenAndServe(cfg.Server.MetricsAddr, mux); err != nil {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	mux := http.NewServeMux()
	mux.Handle("/graphql", h)

	logger.Info("gateway listening", "addr", cfg.ListenAddr, "services", len(cfg.Services), "plans", manifest.Len())
	return http.ListenAndServe(cfg.ListenAddr, mux)
}

func cmdCheckPlans(args []string) error {
	plansPath := ""
	fs := flag.NewFlagSet("check-plans", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&plansPath, "plans", plansPath, "Query plan manifest")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, checkPlansUsage)
		return err
	}
	if plansPath == "" {
		fmt.Fprint(os.Stderr, checkPlansUsage)
		return fmt.Errorf("-plans is required")
	}
	manifest, err := plan.LoadManifest(plansPath)
	if err != nil {
		return err
	}
	fmt.Printf("ok: %d plan(s)\n", manifest.Len())
	return nil
}
