// Package main provides the pilot browser task agent. It takes a task
// in natural language, drives a browser session through the agent
// engine, and renders progress in the terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/entrhq/pilot/pkg/agent"
	"github.com/entrhq/pilot/pkg/agent/budget"
	"github.com/entrhq/pilot/pkg/agent/memory/findings"
	appconfig "github.com/entrhq/pilot/pkg/config"
	"github.com/entrhq/pilot/pkg/executor/cli"
	"github.com/entrhq/pilot/pkg/executor/headless"
	"github.com/entrhq/pilot/pkg/executor/tui"
	"github.com/entrhq/pilot/pkg/security/navigation"
	"github.com/entrhq/pilot/pkg/tools/browser"
	"github.com/entrhq/pilot/pkg/tools/scratchpad"
	"github.com/entrhq/pilot/pkg/types"
)

const version = "0.1.0"

// summarization kicks in at 70% of the context budget
const budgetThreshold = 0.7

type appFlags struct {
	APIKey      string
	BaseURL     string
	Model       string
	ConfigPath  string
	Mode        string
	PlanPath    string
	RunConfig   string
	Headless    bool
	Plain       bool
	ShowVersion bool
}

func main() {
	flags, task := parseFlags()

	if flags.ShowVersion {
		fmt.Printf("pilot v%s\n", version)
		return
	}
	if task == "" && flags.RunConfig == "" {
		fmt.Fprintln(os.Stderr, "a task is required")
		flag.Usage()
		os.Exit(1)
	}
	switch flags.Mode {
	case "dynamic", "predefined":
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q: must be dynamic or predefined\n", flags.Mode)
		os.Exit(1)
	}
	if flags.Mode == "predefined" && flags.PlanPath == "" {
		fmt.Fprintln(os.Stderr, "-mode predefined requires -plan")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	if err := run(ctx, flags, task); err != nil {
		log.Fatalf("pilot: %v", err)
	}
}

func parseFlags() (*appFlags, string) {
	flags := &appFlags{}

	flag.StringVar(&flags.APIKey, "api-key", "", "OpenAI API key (or set OPENAI_API_KEY)")
	flag.StringVar(&flags.BaseURL, "base-url", "", "OpenAI-compatible API base URL (or set OPENAI_BASE_URL)")
	flag.StringVar(&flags.Model, "model", "", "Model to use (overrides config file)")
	flag.StringVar(&flags.ConfigPath, "config", "", "Config file path (default ~/.pilot/config.yaml)")
	flag.StringVar(&flags.Mode, "mode", "dynamic", "Execution mode: dynamic or predefined")
	flag.StringVar(&flags.PlanPath, "plan", "", "YAML file with a predefined plan to execute (implies -mode predefined)")
	flag.StringVar(&flags.RunConfig, "run", "", "YAML run config for unattended execution (CI mode)")
	flag.BoolVar(&flags.Headless, "headless", true, "Run the browser without a visible window")
	flag.BoolVar(&flags.Plain, "plain", false, "Plain line-by-line output instead of the interactive interface")
	flag.BoolVar(&flags.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "pilot - a browser task agent\n\n")
		fmt.Fprintf(os.Stderr, "Usage: pilot [options] \"task description\"\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  pilot \"find the cheapest flight from SFO to JFK next friday\"\n")
		fmt.Fprintf(os.Stderr, "  pilot -plan checkout.yaml \"buy the usual groceries\"\n")
		fmt.Fprintf(os.Stderr, "  pilot -headless=false \"log in to the dashboard\"\n")
		fmt.Fprintf(os.Stderr, "  pilot -run nightly-check.yaml\n")
	}
	flag.Parse()

	return flags, flag.Arg(0)
}

func run(ctx context.Context, flags *appFlags, task string) error {
	cfg, err := appconfig.Load(flags.ConfigPath)
	if err != nil {
		return err
	}

	provider, err := appconfig.BuildProvider(cfg, flags.Model, flags.BaseURL, flags.APIKey)
	if err != nil {
		return err
	}

	var runCfg *headless.Config
	if flags.RunConfig != "" {
		runCfg, err = headless.LoadConfig(flags.RunConfig)
		if err != nil {
			return err
		}
	}

	allowedDomains := cfg.Browser.AllowedDomains
	deniedDomains := cfg.Browser.DeniedDomains
	if runCfg != nil && (len(runCfg.AllowedDomains) > 0 || len(runCfg.DeniedDomains) > 0) {
		allowedDomains = runCfg.AllowedDomains
		deniedDomains = runCfg.DeniedDomains
	}
	allowlist, err := navigation.New(allowedDomains, deniedDomains)
	if err != nil {
		return fmt.Errorf("invalid navigation allowlist: %w", err)
	}

	headlessBrowser := cfg.Browser.Headless
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "headless" {
			headlessBrowser = flags.Headless
		}
	})
	if runCfg != nil {
		// Unattended runs never get a visible window.
		headlessBrowser = true
	}
	sessions := browser.NewSessionManager(allowlist, browser.SessionOptions{Headless: headlessBrowser})
	defer sessions.Shutdown()

	budgetManager, err := budget.NewManager(
		provider,
		cfg.LLM.MaxContextTokens,
		budget.NewThresholdStrategy(budgetThreshold),
	)
	if err != nil {
		return fmt.Errorf("creating budget manager: %w", err)
	}

	opts := []agent.Option{
		agent.WithBudgetManager(budgetManager),
		agent.WithStateObserver(sessions),
		agent.WithHumanInputTimeout(cfg.HumanInputTimeout.Std()),
		agent.WithAllowedDomains(allowlist.Patterns()),
	}
	if cfg.CustomInstructions != "" {
		opts = append(opts, agent.WithCustomInstructions(cfg.CustomInstructions))
	}
	if limits, ok := configuredLimits(cfg); ok {
		opts = append(opts, agent.WithLimits(limits))
	}

	engine := agent.NewEngine(provider, opts...)
	if err := browser.RegisterAll(engine, sessions); err != nil {
		return fmt.Errorf("registering browser tools: %w", err)
	}
	if err := scratchpad.RegisterAll(engine, findings.NewManager()); err != nil {
		return fmt.Errorf("registering scratchpad tools: %w", err)
	}

	if runCfg != nil {
		executor, err := headless.NewExecutor(engine, runCfg)
		if err != nil {
			return err
		}
		return executor.Run(ctx)
	}

	metadata, err := loadPlan(flags.PlanPath)
	if err != nil {
		return err
	}

	if flags.Plain {
		executor := cli.NewExecutor(engine)
		return executor.RunTask(ctx, task, metadata)
	}
	executor := tui.NewExecutor(engine)
	return executor.RunTask(ctx, task, metadata)
}

// configuredLimits builds engine limits from the config file, keeping
// engine defaults for any unset value.
func configuredLimits(cfg *appconfig.Config) (agent.Limits, bool) {
	limits := agent.DefaultLimits()
	set := false
	if cfg.Limits.SimpleMaxAttempts > 0 {
		limits.SimpleMaxAttempts = cfg.Limits.SimpleMaxAttempts
		set = true
	}
	if cfg.Limits.OuterMaxCycles > 0 {
		limits.OuterMaxCycles = cfg.Limits.OuterMaxCycles
		set = true
	}
	if cfg.Limits.InnerMaxTurns > 0 {
		limits.InnerMaxTurns = cfg.Limits.InnerMaxTurns
		set = true
	}
	if cfg.Limits.PlanMaxSteps > 0 {
		limits.PlanMaxSteps = cfg.Limits.PlanMaxSteps
		set = true
	}
	return limits, set
}

// loadPlan reads a predefined plan file, turning it into task metadata
// that seeds the first planning cycle.
func loadPlan(path string) (*types.TaskMetadata, error) {
	if path == "" {
		return nil, nil
	}
	plan, err := types.LoadPredefinedPlan(path)
	if err != nil {
		return nil, fmt.Errorf("loading plan %s: %w", path, err)
	}
	return &types.TaskMetadata{Mode: types.ModePredefined, Plan: plan}, nil
}
