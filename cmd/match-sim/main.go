package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/affinity/internal/matchsim"
	"github.com/okian/affinity/pkg/logger"
)

// Default configuration constants.
const (
	defaultClients     = 200
	defaultEmployees   = 12
	defaultLeadRatio   = 0.4
	defaultTimeout     = 2 * time.Minute
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		clients    = flag.Int("clients", defaultClients, "Number of clients to generate")
		employees  = flag.Int("employees", defaultEmployees, "Number of employees to generate")
		leads      = flag.Float64("leads", defaultLeadRatio, "Share of clients generated as leads")
		kind       = flag.String("kind", "all", "Kind filter: customer, lead or all")
		refresh    = flag.Bool("refresh", false, "Also call /refresh and verify")
		seed       = flag.Int64("seed", 0, "Generator seed, 0 for a random one")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Write the generated dataset to this file")
		verbose    = flag.Bool("verbose", false, "Log per-employee load")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		matchsim.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	cfg := &matchsim.Config{
		BaseURL:    *baseURL,
		Clients:    *clients,
		Employees:  *employees,
		LeadRatio:  *leads,
		Kind:       *kind,
		Refresh:    *refresh,
		Seed:       *seed,
		Timeout:    *timeout,
		OutputFile: *outputFile,
		Verbose:    *verbose,
	}

	if _, err := matchsim.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
