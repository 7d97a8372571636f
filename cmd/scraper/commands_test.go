package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go-linkedin-scraper/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlags_OnlySetFlagsOverrideConfig(t *testing.T) {
	f := &flags{}
	cmd := buildRootCmd(f)
	require.NoError(t, cmd.ParseFlags([]string{"-o", "/tmp/jobs", "--no-headless", "--concurrency", "3", "--timeout", "45s"}))

	cfg := config.Default()
	cfg.Retries = 4
	cfg.MarkdownDir = "/notes"
	f.apply(cmd, cfg)

	assert.Equal(t, "/tmp/jobs", cfg.OutputDir)
	assert.False(t, cfg.Headless)
	assert.Equal(t, 3, cfg.Concurrency)
	assert.Equal(t, 45*time.Second, cfg.Timeout)
	assert.Equal(t, 4, cfg.Retries)
	assert.Equal(t, "/notes", cfg.MarkdownDir)
	assert.True(t, cfg.UseProfile)
}

func TestFlags_RunOptions(t *testing.T) {
	cfg := config.Default()
	cfg.WriteMarkdown = true
	cfg.MarkdownDir = "/md"
	f := &flags{batchFile: "urls.txt"}

	ro := f.runOptions(cfg, []string{"https://www.linkedin.com/jobs/view/4100000001/"})
	assert.Equal(t, "https://www.linkedin.com/jobs/view/4100000001/", ro.URL)
	assert.Equal(t, "urls.txt", ro.BatchFile)
	assert.True(t, ro.Markdown)
	assert.Equal(t, "/md", ro.MarkdownTarget())
	assert.Equal(t, filepath.Join(cfg.OutputDir, "jobs.json"), ro.JobsFile())
}

func TestResetProfile_RemovesProfile(t *testing.T) {
	dir := t.TempDir()
	profile := filepath.Join(dir, "state.json")
	require.NoError(t, os.WriteFile(profile, []byte(`{"cookies":[]}`), 0600))
	t.Setenv("SCRAPER_PROFILE_PATH", profile)

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"reset-profile", "--config", filepath.Join(dir, "missing.yaml")})
	require.NoError(t, cmd.Execute())

	_, err := os.Stat(profile)
	assert.True(t, os.IsNotExist(err))
}

func TestRoot_NoURLPrintsHelp(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "setup-profile")
}
