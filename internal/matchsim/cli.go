package matchsim

import "os"

// ShowHelp prints usage information for the simulation tool.
func ShowHelp() {
	os.Stdout.WriteString(`Affinity Match Simulator
========================

Generates synthetic clients and employees, posts them to a running
affinity service and verifies that every client is assigned exactly once
within the per-employee quota.

Usage:
  go run ./cmd/match-sim [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -clients int
        Number of clients to generate (default 200)
  -employees int
        Number of employees to generate (default 12)
  -leads float
        Share of clients generated as leads (default 0.4)
  -kind string
        Kind filter: customer, lead or all (default all)
  -refresh
        Also call /refresh and verify the fresh result
  -seed int
        Generator seed, 0 for a random one
  -timeout duration
        HTTP request timeout (default 2m)
  -output string
        Write the generated dataset to this file
  -verbose
        Log per-employee load
  -help
        Show this help message

Examples:
  go run ./cmd/match-sim -clients 1000 -employees 25
  go run ./cmd/match-sim -kind lead -refresh -seed 42 -output data/leads.json
`)
}
