// Command hectorflow runs the multi-tenant workflow engine: load a
// YAML config, wire its LLM providers, agent directory, and tool
// executor, then either run one request given on the command line,
// printing its progress events and final event to stdout as JSON lines,
// or check that the configuration file loads and validates.
//
// Usage:
//
//	hectorflow run --config config.yaml --tenant acme --user alice --query "..."
//	hectorflow validate --config config.yaml
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/sdk/trace"
	noop "go.opentelemetry.io/otel/trace/noop"

	"github.com/kadirpekel/hectorflow/agent"
	"github.com/kadirpekel/hectorflow/config"
	"github.com/kadirpekel/hectorflow/internal/obslog"
	"github.com/kadirpekel/hectorflow/llms"
	"github.com/kadirpekel/hectorflow/metrics"
	"github.com/kadirpekel/hectorflow/tools"
	"github.com/kadirpekel/hectorflow/workflow"
)

// CLI defines the hectorflow command surface.
type CLI struct {
	Version  VersionCmd  `cmd:"" help:"Show version information."`
	Run      RunCmd      `cmd:"" help:"Run one workflow request and print its progress and final events as JSON lines."`
	Validate ValidateCmd `cmd:"" help:"Validate a configuration file."`

	Config   string `short:"c" help:"Path to config file." type:"path" required:""`
	LogLevel string `help:"Log level (debug, info, warn, error)." default:"info"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("hectorflow"),
		kong.Description("Multi-tenant LLM workflow engine."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run(&cli))
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(cli *CLI) error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("hectorflow %s\n", version)
	return nil
}

// ValidateCmd loads and validates the configuration file without
// running anything.
type ValidateCmd struct{}

func (c *ValidateCmd) Run(cli *CLI) error {
	_, err := config.LoadConfig(cli.Config)
	if err != nil {
		return err
	}
	fmt.Println("configuration is valid")
	return nil
}

// RunCmd runs one workflow request end to end.
type RunCmd struct {
	TenantID     string  `name:"tenant" required:"" help:"Tenant ID."`
	UserID       string  `name:"user" required:"" help:"Requesting user ID."`
	Role         string  `default:"USER" help:"Caller role (ADMIN, MAINTAINER, DEPT_ADMIN, DEPT_MANAGER, USER)."`
	DepartmentID string  `name:"department" help:"Caller department ID."`
	Query        string  `required:"" help:"The user's query."`
	Timezone     string  `default:"UTC" help:"Tenant timezone."`
	Temperature  float64 `default:"0.1" help:"Sampling temperature for the reflection LLM calls."`
}

func (c *RunCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	cfg, err := config.LoadConfig(cli.Config)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	level, _ := obslog.ParseLevel(cli.LogLevel)
	logger := obslog.New(level, os.Stderr)
	slog.SetDefault(logger)

	engine, bus, err := buildEngine(cfg, logger)
	if err != nil {
		return err
	}

	done := make(chan workflow.FinalEvent, 1)
	go func() {
		done <- engine.Run(ctx, workflow.RunRequest{
			Query: c.Query,
			UserContext: workflow.UserContext{
				UserID:       c.UserID,
				TenantID:     c.TenantID,
				DepartmentID: c.DepartmentID,
				Role:         c.Role,
				Timezone:     c.Timezone,
				Temperature:  c.Temperature,
			},
			TenantTimezone: c.Timezone,
		}, bus)
		bus.Close()
	}()

	enc := json.NewEncoder(os.Stdout)
	for ev := range bus.Events() {
		enc.Encode(ev)
	}

	final := <-done
	return enc.Encode(final)
}

// buildEngine wires one workflow.Engine and its ProgressBus from cfg.
func buildEngine(cfg *config.Config, logger *slog.Logger) (*workflow.Engine, *workflow.ProgressBus, error) {
	llmRegistry := llms.NewLLMRegistry()
	for name, providerCfg := range cfg.LLMProviders {
		providerCfg := providerCfg
		if _, err := llmRegistry.CreateLLMFromConfig(name, &providerCfg); err != nil {
			return nil, nil, fmt.Errorf("failed to create LLM provider %q: %w", name, err)
		}
	}

	source := agent.NewHTTPSource(cfg.AgentRegistry.DirectoryURL)
	baseRegistry := agent.NewRegistry(source)

	var agentDirectory workflow.AgentDirectory = baseRegistry
	if cfg.AgentRegistry.Cache.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.AgentRegistry.Cache.Addr,
			Password: cfg.AgentRegistry.Cache.Password,
			DB:       cfg.AgentRegistry.Cache.DB,
		})
		agentDirectory = agent.NewCachedRegistry(baseRegistry, client, cfg.AgentRegistry.Cache.TTL)
	}

	executor := tools.NewHTTPExecutor(cfg.AgentExecutor.URL)
	m := metrics.New("hectorflow")
	bus := workflow.NewProgressBus(cfg.Engine.ProgressQueueCapacity, logger, m)

	tp := trace.NewTracerProvider()
	tracer := tp.Tracer("hectorflow/workflow")
	if !cfg.Tracing.Enabled {
		tracer = noop.NewTracerProvider().Tracer("hectorflow/workflow")
	}

	llmProviders := cfg.LLMProviders
	engine := &workflow.Engine{
		Agents:              agentDirectory,
		LLMs:                llmRegistry,
		Executor:            executor,
		Tracer:              tracer,
		Metrics:             m,
		ReflectionProvider:  cfg.NodeProviders.Reflection,
		ConflictProvider:    cfg.NodeProviders.Conflict,
		ErrorProvider:       cfg.NodeProviders.Error,
		DefaultMaxTokens:    cfg.Engine.MaxTokens,
		ResolveProvider: func(providerName, tenantID string) (workflow.ProviderDescriptor, bool) {
			providerCfg, ok := llmProviders[providerName]
			if !ok {
				return workflow.ProviderDescriptor{}, false
			}
			return workflow.ProviderDescriptor{
				ProviderName: providerName,
				APIKey:       providerCfg.APIKeyFor(tenantID),
			}, true
		},
	}

	return engine, bus, nil
}
