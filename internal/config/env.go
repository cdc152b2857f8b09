package config

import (
	"errors"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

// ErrEnvFileNotFound is returned when an explicitly requested .env file does not exist.
var ErrEnvFileNotFound = errors.New("env file not found")

// LoadEnvFile reads KEY=VALUE pairs from a .env file.
// The process environment is left untouched; callers decide where the
// variables go.
func LoadEnvFile(path string) (map[string]string, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrEnvFileNotFound
		}
		return nil, err
	}
	return godotenv.Read(path)
}

// MergeEnv returns base extended with extra. Keys already present in base
// keep their value, so the parent environment always wins over file values.
// Added entries are sorted by key.
func MergeEnv(base []string, extra map[string]string) []string {
	present := make(map[string]bool, len(base))
	for _, kv := range base {
		if k, _, ok := strings.Cut(kv, "="); ok {
			present[k] = true
		}
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		if !present[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	merged := make([]string, 0, len(base)+len(keys))
	merged = append(merged, base...)
	for _, k := range keys {
		merged = append(merged, k+"="+extra[k])
	}
	return merged
}
