// Package doctor provides health checks for attestor configuration and
// runtime. Used by `attestor doctor` before wiring attestor into an agent
// pipeline.
package doctor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/attestor-io/attestor/internal/classifier"
	"github.com/attestor-io/attestor/internal/config"
	"github.com/attestor-io/attestor/internal/storage"
)

// CheckResult is a single doctor check outcome.
type CheckResult struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Status   string `json:"status"` // pass, warn, fail
	Message  string `json:"message"`
	Fix      string `json:"fix,omitempty"`
}

// Summary tallies pass/warn/fail counts.
type Summary struct {
	Pass int `json:"pass"`
	Warn int `json:"warn"`
	Fail int `json:"fail"`
}

// Report is the complete doctor output.
type Report struct {
	Status  string        `json:"status"` // worst of all checks
	Checks  []CheckResult `json:"checks"`
	Summary Summary       `json:"summary"`
}

// Run executes all doctor checks and returns a report.
func Run(ctx context.Context) *Report {
	report := &Report{}

	cfg, err := config.Load()
	if err != nil {
		report.Checks = append(report.Checks, CheckResult{
			Name: "config_load", Category: "config", Status: "fail",
			Message: fmt.Sprintf("Cannot load config: %v", err),
			Fix:     "Check ATTESTOR_DATA_DIR and the config file",
		})
	} else {
		report.Checks = append(report.Checks,
			checkDataDir(cfg),
			checkSigningKey(cfg),
			checkReceiptsDB(ctx, cfg),
			checkRegimeRegistry(cfg),
		)
	}

	for _, c := range report.Checks {
		switch c.Status {
		case "pass":
			report.Summary.Pass++
		case "warn":
			report.Summary.Warn++
		case "fail":
			report.Summary.Fail++
		}
	}

	report.Status = "pass"
	if report.Summary.Warn > 0 {
		report.Status = "warn"
	}
	if report.Summary.Fail > 0 {
		report.Status = "fail"
	}
	return report
}

func checkDataDir(cfg *config.Config) CheckResult {
	if err := cfg.EnsureDataDir(); err != nil {
		return CheckResult{
			Name: "data_dir_writable", Category: "config", Status: "fail",
			Message: fmt.Sprintf("%s — %v", cfg.DataDir, err),
			Fix:     "Ensure the directory exists and is writable",
		}
	}
	testFile := filepath.Join(cfg.DataDir, ".doctor-write-test")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return CheckResult{
			Name: "data_dir_writable", Category: "config", Status: "fail",
			Message: fmt.Sprintf("%s not writable — %v", cfg.DataDir, err),
		}
	}
	_ = os.Remove(testFile)
	return CheckResult{
		Name: "data_dir_writable", Category: "config", Status: "pass",
		Message: fmt.Sprintf("%s (writable)", cfg.DataDir),
	}
}

func checkSigningKey(cfg *config.Config) CheckResult {
	if cfg.UsingDefaultSigningKey() {
		return CheckResult{
			Name: "signing_key", Category: "crypto", Status: "warn",
			Message: "Signing key is the derived per-machine default",
			Fix:     "Set ATTESTOR_SIGNING_KEY for production receipts",
		}
	}
	return CheckResult{
		Name: "signing_key", Category: "crypto", Status: "pass",
		Message: "Explicit signing key configured",
	}
}

func checkReceiptsDB(ctx context.Context, cfg *config.Config) CheckResult {
	db, err := storage.NewSQLite(cfg.ReceiptsDBPath())
	if err != nil {
		return CheckResult{
			Name: "receipts_db", Category: "storage", Status: "fail",
			Message: fmt.Sprintf("Cannot open %s — %v", cfg.ReceiptsDBPath(), err),
		}
	}
	defer db.Close()

	if err := db.HealthCheck(ctx); err != nil {
		return CheckResult{
			Name: "receipts_db", Category: "storage", Status: "fail",
			Message: fmt.Sprintf("Database unreachable — %v", err),
		}
	}
	n, err := db.Size(ctx, "receipts")
	if err != nil {
		return CheckResult{
			Name: "receipts_db", Category: "storage", Status: "fail",
			Message: fmt.Sprintf("Cannot count receipts — %v", err),
		}
	}
	return CheckResult{
		Name: "receipts_db", Category: "storage", Status: "pass",
		Message: fmt.Sprintf("%s (%d receipts)", cfg.ReceiptsDBPath(), n),
	}
}

func checkRegimeRegistry(cfg *config.Config) CheckResult {
	if cfg.RegimeRegistry == "" {
		return CheckResult{
			Name: "regime_registry", Category: "config", Status: "pass",
			Message: "Using built-in regime aliases only",
		}
	}
	rf, err := classifier.LoadRegimeFile(cfg.RegimeRegistry)
	if err != nil {
		return CheckResult{
			Name: "regime_registry", Category: "config", Status: "fail",
			Message: fmt.Sprintf("%s — %v", cfg.RegimeRegistry, err),
			Fix:     "Fix the YAML or unset ATTESTOR_REGIME_REGISTRY",
		}
	}
	if rf == nil {
		return CheckResult{
			Name: "regime_registry", Category: "config", Status: "warn",
			Message: fmt.Sprintf("%s does not exist; built-in aliases only", cfg.RegimeRegistry),
		}
	}
	return CheckResult{
		Name: "regime_registry", Category: "config", Status: "pass",
		Message: fmt.Sprintf("%s (%d regimes)", cfg.RegimeRegistry, len(rf.Regimes)),
	}
}
