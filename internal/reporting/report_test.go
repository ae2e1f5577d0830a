package reporting

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secureshred/internal/config"
	"secureshred/internal/job"
	"secureshred/internal/wipe"
)

func sampleResult() *job.Result {
	results := []wipe.Result{
		{Target: wipe.Target{Handle: "/d/a.bin", Name: "a.bin", Size: 100}, Outcome: wipe.OutcomeSuccess, PassesCompleted: 3},
		{Target: wipe.Target{Handle: "/d/b.bin", Name: "b.bin", Size: 50}, Outcome: wipe.OutcomeDeleteFailed, PassesCompleted: 3,
			Message: "Failed to delete b.bin"},
	}
	return &job.Result{
		Record: job.CompletionRecord{
			ID:        "6f1c2d7e-0000-4000-8000-000000000001",
			Timestamp: time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC),
			Subject:   "my dir (old)",
			Passes:    3,
			Status:    job.StatusCompletedWithError,
			Cipher:    "aes-256-cbc",
			Items:     2,
			Failed:    1,
			Bytes:     150,
		},
		Targets: results,
		Summary: job.Summarize(results),
	}
}

func TestRenderText(t *testing.T) {
	text := RenderText(New(sampleResult(), false), "/tmp/cert.txt")
	assert.Contains(t, text, "UUID:              6f1c2d7e-0000-4000-8000-000000000001")
	assert.Contains(t, text, "Timestamp:         2026-05-04 10:30:00 UTC")
	assert.Contains(t, text, "Item Name:         my dir (old)")
	assert.Contains(t, text, "Overwrite Passes:  3")
	assert.Contains(t, text, "Status:            Completed with errors")
	assert.Contains(t, text, "Saved At:          /tmp/cert.txt")
	assert.Contains(t, text, "  - 1 file destroyed but not deleted")
}

func TestSanitizeSubject(t *testing.T) {
	assert.Equal(t, "my_dir__old_", SanitizeSubject("my dir (old)"))
	assert.Equal(t, "report-v1.2.pdf", SanitizeSubject("report-v1.2.pdf"))
	assert.Equal(t, "unnamed", SanitizeSubject(""))
}

func TestSaveBoth(t *testing.T) {
	fs := afero.NewMemMapFs()
	cert := New(sampleResult(), true)

	paths, err := Save(fs, config.ReportingConfig{Enabled: true, LocalPath: "/certs", Format: "both"}, cert)
	require.NoError(t, err)

	millis := cert.Record.Timestamp.UnixMilli()
	base := filepath.Join("/certs", "Shred_Certificate_my_dir__old__"+itoa(millis))
	assert.Equal(t, []string{base + ".json", base + ".txt"}, paths)

	data, err := afero.ReadFile(fs, base+".json")
	require.NoError(t, err)
	var decoded Certificate
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, cert.Record.ID, decoded.Record.ID)
	require.Len(t, decoded.Targets, 2)
	assert.Equal(t, "delete_failed", decoded.Targets[1].Outcome)
	assert.Equal(t, "a.bin", decoded.Targets[0].Name)
	assert.NotContains(t, string(data), "/d/")
}

func TestNewOmitsTargetsByDefault(t *testing.T) {
	cert := New(sampleResult(), false)
	assert.Empty(t, cert.Targets)
	assert.Equal(t, 2, cert.Record.Items)

	data, err := RenderJSON(cert)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "a.bin")
	assert.NotContains(t, string(data), "/d/")
}

func TestSaveDisabled(t *testing.T) {
	fs := afero.NewMemMapFs()
	paths, err := Save(fs, config.ReportingConfig{Enabled: false, LocalPath: "/certs", Format: "txt"}, New(sampleResult(), false))
	require.NoError(t, err)
	assert.Empty(t, paths)
	exists, _ := afero.DirExists(fs, "/certs")
	assert.False(t, exists)
}

func itoa(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
