package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeINI(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "s63.ini")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadValid(t *testing.T) {
	path := writeINI(t, "HW_ID = 12348\nM_KEY = 98765\nM_ID = 01\ninput_dir = /enc/in\noutput_dir = /enc/out\npermit_file = /enc/PERMIT.TXT\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "12348", cfg.HWID)
	assert.Equal(t, "98765", cfg.MKey)
	assert.Equal(t, "01", cfg.MID)
	assert.Equal(t, "/enc/in", cfg.InputDir)
}

func TestLoadRejectsBadHwIdLength(t *testing.T) {
	path := writeINI(t, "HW_ID = 123\nM_KEY = 98765\nM_ID = 01\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.ini"))
	assert.Error(t, err)
}
