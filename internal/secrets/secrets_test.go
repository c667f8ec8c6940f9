// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yingkitw/anycli/pkg/types"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(t *testing.T) string
		want   map[string]string
		errMsg string
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, KeyWatsonxAPIKey, "  wx_abc123  \n")
				writeFile(t, dir, KeyWatsonxProjectID, "proj-42\n")
				return dir
			},
			want: map[string]string{
				KeyWatsonxAPIKey:    "wx_abc123",
				KeyWatsonxProjectID: "proj-42",
			},
		},
		{
			name: "returns empty map for nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: map[string]string{},
		},
		{
			name: "skips empty files",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, KeyWatsonxAPIKey, "valid-key")
				writeFile(t, dir, "empty-key", "")
				writeFile(t, dir, "whitespace-only", "   \n\t  ")
				return dir
			},
			want: map[string]string{
				KeyWatsonxAPIKey: "valid-key",
			},
		},
		{
			name: "skips dotfiles",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, ".gitkeep", "")
				writeFile(t, dir, ".hidden-key", "secret")
				writeFile(t, dir, KeyWatsonxAPIKey, "wx_real")
				return dir
			},
			want: map[string]string{
				KeyWatsonxAPIKey: "wx_real",
			},
		},
		{
			name: "skips subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, KeyWatsonxProjectID, "proj-1")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
				return dir
			},
			want: map[string]string{
				KeyWatsonxProjectID: "proj-1",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := tt.setup(t)
			got, err := Load(dir)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyWatsonx(t *testing.T) {
	loaded := map[string]string{
		KeyWatsonxAPIKey:    "wx_from_file",
		KeyWatsonxProjectID: "proj_from_file",
	}

	filled := ApplyWatsonx(types.WatsonxConfig{}, loaded)
	assert.Equal(t, "wx_from_file", filled.APIKey)
	assert.Equal(t, "proj_from_file", filled.ProjectID)

	// Explicit config wins over the secrets directory.
	explicit := ApplyWatsonx(types.WatsonxConfig{APIKey: "wx_flag"}, loaded)
	assert.Equal(t, "wx_flag", explicit.APIKey)
	assert.Equal(t, "proj_from_file", explicit.ProjectID)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
