package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/gcodesolid/config"
)

const cube = `; CHANGE_LAYER
; Z_HEIGHT: 0.2
; LAYER_HEIGHT: 0.2
; LINE_WIDTH: 0.42
G1 X0 Y0 F12000
G1 X10 Y0 E0.5
G1 X10 Y10 E0.5
; CHANGE_LAYER
; Z_HEIGHT: 0.4
G1 X0 Y10 E0.5
`

func TestRootCommandConvertsFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "cube.gcode")
	require.NoError(t, os.WriteFile(input, []byte(cube), 0o644))
	out := filepath.Join(dir, "out")
	prom := filepath.Join(dir, "gcodesolid.prom")

	cmd := newRootCmd()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{input, "--out-dir", out, "--format", "pdf", "--metrics", prom, "--log-level", "error"})
	require.NoError(t, cmd.Execute())

	assert.FileExists(t, filepath.Join(out, "cube-1.pdf"))
	assert.NoFileExists(t, filepath.Join(out, "cube-2.pdf"))
	assert.Contains(t, stdout.String(), "cube.gcode")
	assert.Contains(t, stdout.String(), "已导出 1 层")
	assert.FileExists(t, prom)
}

func TestHeightFallbackFlagKeepsLayer(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "cube.gcode")
	require.NoError(t, os.WriteFile(input, []byte(cube), 0o644))

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{input, "--height-fallback", "--layer-height", "0.3", "--log-level", "error"})
	require.NoError(t, cmd.Execute())

	assert.FileExists(t, filepath.Join(dir, "cube-1.svg"))
	assert.FileExists(t, filepath.Join(dir, "cube-2.svg"))
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gcodesolid.yaml")
	require.NoError(t, os.WriteFile(path, []byte("accuracy: chamfer\nworkers: 3\neps: 0.001\n"), 0o644))

	cmd := newRootCmd()
	flags := config.Default()
	fs := cmd.Flags()
	require.NoError(t, fs.Parse([]string{"--config", path, "--workers", "8"}))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	flags.Workers = 8
	applyFlags(fs, flags, &cfg)

	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, "chamfer", cfg.Accuracy, "flags not given keep the file value")
	assert.Equal(t, 0.001, cfg.Eps)
}

func TestRootCommandRejectsBadInput(t *testing.T) {
	for name, args := range map[string][]string{
		"no input":  {},
		"bad mode":  {"part.gcode", "--accuracy", "smooth"},
		"missing":   {filepath.Join(t.TempDir(), "missing.gcode")},
		"bad level": {"part.gcode", "--log-level", "loud"},
	} {
		cmd := newRootCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(args)
		assert.Error(t, cmd.Execute(), name)
	}
}
