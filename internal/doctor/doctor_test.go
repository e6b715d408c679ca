package doctor

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkByName(t *testing.T, report *Report, name string) CheckResult {
	t.Helper()
	for _, c := range report.Checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("check %q not in report", name)
	return CheckResult{}
}

func TestRunHealthyEnvironment(t *testing.T) {
	t.Setenv("ATTESTOR_DATA_DIR", t.TempDir())
	t.Setenv("ATTESTOR_SIGNING_KEY", "0123456789abcdef0123456789abcdef")

	report := Run(context.Background())

	assert.Equal(t, "pass", checkByName(t, report, "data_dir_writable").Status)
	assert.Equal(t, "pass", checkByName(t, report, "signing_key").Status)
	assert.Equal(t, "pass", checkByName(t, report, "receipts_db").Status)
	assert.Equal(t, "pass", checkByName(t, report, "regime_registry").Status)
	assert.Equal(t, "pass", report.Status)
	assert.Zero(t, report.Summary.Fail)
}

func TestRunWarnsOnDefaultSigningKey(t *testing.T) {
	t.Setenv("ATTESTOR_DATA_DIR", t.TempDir())
	t.Setenv("ATTESTOR_SIGNING_KEY", "")

	report := Run(context.Background())

	assert.Equal(t, "warn", checkByName(t, report, "signing_key").Status)
	assert.Equal(t, "warn", report.Status)
}

func TestRunFlagsMissingRegistryFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ATTESTOR_DATA_DIR", dir)
	t.Setenv("ATTESTOR_SIGNING_KEY", "0123456789abcdef0123456789abcdef")
	t.Setenv("ATTESTOR_REGIME_REGISTRY", filepath.Join(dir, "absent.yaml"))

	report := Run(context.Background())

	c := checkByName(t, report, "regime_registry")
	assert.Equal(t, "warn", c.Status)
	require.NotEqual(t, "fail", report.Status)
}
