package matchsim

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/okian/affinity/internal/domain/model"
	"github.com/okian/affinity/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
)

// Run executes one simulation against a running service.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := logger.Named("matchsim")
	stats := &Stats{StartTime: time.Now()}

	kind, ok := model.ParseKind(cfg.Kind)
	if !ok {
		return nil, fmt.Errorf("invalid kind %q", cfg.Kind)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	log.Info(ctx, "starting match simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("clients", cfg.Clients),
		logger.Int("employees", cfg.Employees),
		logger.String("kind", string(kind)),
		logger.Int64("seed", seed),
		logger.Duration("timeout", cfg.Timeout))

	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	// Step 1: Check service health
	if err := client.health(ctx); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate dataset
	ds := NewGenerator(seed).Generate(cfg.Clients, cfg.Employees, cfg.LeadRatio)
	stats.ClientsGenerated = len(ds.Clients)
	stats.EmployeesGenerated = len(ds.Employees)
	expected := model.FilterByKind(ds.Clients, kind)

	// Step 3: Match and verify
	result, err := client.match(ctx, "/match", cfg.Kind, ds)
	if err != nil {
		return nil, fmt.Errorf("match failed: %w", err)
	}
	if err := Verify(result, expected, ds.Employees, stats); err != nil {
		return nil, err
	}
	log.Info(ctx, "match verified", logger.String("runID", result.RunID), logger.String("mode", string(result.Mode)))
	if cfg.Verbose {
		logLoads(ctx, log, result)
	}

	// Step 4: Refresh and verify again
	if cfg.Refresh {
		refreshed, err := client.match(ctx, "/refresh", cfg.Kind, ds)
		if err != nil {
			return nil, fmt.Errorf("refresh failed: %w", err)
		}
		if err := Verify(refreshed, expected, ds.Employees, stats); err != nil {
			return nil, fmt.Errorf("after refresh: %w", err)
		}
		log.Info(ctx, "refresh verified", logger.String("runID", refreshed.RunID))
	}

	// Step 5: Save dataset
	if cfg.OutputFile != "" {
		if err := saveDataset(cfg.OutputFile, ds); err != nil {
			log.Warn(ctx, "failed to save dataset", logger.Error(err))
		} else {
			log.Info(ctx, "dataset saved", logger.String("filename", cfg.OutputFile))
		}
	}

	stats.Duration = time.Since(stats.StartTime)
	log.Info(ctx, "final statistics",
		logger.Int("matched", stats.Matched),
		logger.Int("overflow", stats.Overflow),
		logger.String("mode", string(stats.Mode)),
		logger.Int("quota", stats.Quota),
		logger.Int("minLoad", stats.MinLoad),
		logger.Int("maxLoad", stats.MaxLoad),
		logger.Float64("averageScore", stats.AverageScore),
		logger.Duration("duration", stats.Duration))
	return stats, nil
}

func logLoads(ctx context.Context, log logger.Logger, result model.AssignmentResult) {
	keys := make([]string, 0, len(result.Assignments))
	for k := range result.Assignments {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		list := result.Assignments[k]
		top := 0.0
		if len(list) > 0 {
			top = list[0].Score.TotalScore
		}
		log.Info(ctx, "employee load", logger.String("employee", k), logger.Int("clients", len(list)), logger.Float64("topScore", top))
	}
}

// saveDataset writes the generated population as indented JSON.
func saveDataset(filename string, ds Dataset) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal dataset: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("failed to write dataset: %w", err)
	}
	return nil
}
