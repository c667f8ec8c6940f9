// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Supported key files: watsonx-api-key, watsonx-project-id.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yingkitw/anycli/pkg/types"
)

// Key file names.
const (
	KeyWatsonxAPIKey    = "watsonx-api-key"
	KeyWatsonxProjectID = "watsonx-project-id"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files produce a warning on stderr but do not abort.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// ApplyWatsonx fills the credential fields of cfg from loaded secrets.
// Values already present in cfg win, so config-file and flag settings
// override the secrets directory.
func ApplyWatsonx(cfg types.WatsonxConfig, secrets map[string]string) types.WatsonxConfig {
	if cfg.APIKey == "" {
		cfg.APIKey = secrets[KeyWatsonxAPIKey]
	}
	if cfg.ProjectID == "" {
		cfg.ProjectID = secrets[KeyWatsonxProjectID]
	}
	return cfg
}
