// Package matchsim generates synthetic clients and employees, drives a
// running service through its HTTP API and verifies the returned
// assignments.
package matchsim

import (
	"time"

	"github.com/okian/affinity/internal/domain/model"
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Clients    int           // Number of clients to generate
	Employees  int           // Number of employees to generate
	LeadRatio  float64       // Share of generated clients that are leads
	Kind       string        // Kind filter sent with the request
	Refresh    bool          // Also exercise /refresh
	Seed       int64         // Generator seed; 0 picks one from the clock
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Output file for the generated dataset
	Verbose    bool          // Log every employee's load
}

// Dataset is one generated population.
type Dataset struct {
	Clients   []model.Client   `json:"clients"`
	Employees []model.Employee `json:"employees"`
}

// Stats holds run statistics.
type Stats struct {
	ClientsGenerated   int
	EmployeesGenerated int
	Matched            int
	Overflow           int
	Mode               model.Mode
	Quota              int
	MaxLoad            int
	MinLoad            int
	AverageScore       float64
	StartTime          time.Time
	Duration           time.Duration
}
