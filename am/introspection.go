package am

import (
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// ConfigSource represents where a configuration value came from
type ConfigSource string

const (
	SourceDefault     ConfigSource = "default"
	SourceSystem      ConfigSource = "system"      // /etc/ontomap/ontomap.toml
	SourceUser        ConfigSource = "user"        // ~/.ontomap/ontomap.toml
	SourceProject     ConfigSource = "project"     // nearest ontomap.toml
	SourceEnvironment ConfigSource = "environment" // ONTOMAP_* env vars
)

// SourceInfo tracks where a configuration value originated
type SourceInfo struct {
	Source ConfigSource
	Path   string // file path or environment variable name
}

// SettingInfo describes one effective setting
type SettingInfo struct {
	Key        string       `json:"key"`
	Value      interface{}  `json:"value"`
	Source     ConfigSource `json:"source"`
	SourcePath string       `json:"source_path,omitempty"`
}

var (
	sourcesMu     sync.Mutex
	configSources = map[string]SourceInfo{}
)

func recordSource(key string, info SourceInfo) {
	sourcesMu.Lock()
	defer sourcesMu.Unlock()
	configSources[key] = info
}

func resetSources() {
	sourcesMu.Lock()
	defer sourcesMu.Unlock()
	configSources = map[string]SourceInfo{}
}

func sourceOf(key string) (SourceInfo, bool) {
	sourcesMu.Lock()
	defer sourcesMu.Unlock()
	info, ok := configSources[key]
	return info, ok
}

// Settings returns every effective setting of v, sorted by key, with the
// source that supplied it.
func Settings(v *viper.Viper) []SettingInfo {
	keys := v.AllKeys()
	sort.Strings(keys)

	settings := make([]SettingInfo, 0, len(keys))
	for _, key := range keys {
		info := SourceInfo{Source: SourceDefault, Path: "built-in default"}
		if si, ok := sourceOf(key); ok {
			info = si
		}

		envKey := "ONTOMAP_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if os.Getenv(envKey) != "" {
			info = SourceInfo{Source: SourceEnvironment, Path: envKey}
		}

		settings = append(settings, SettingInfo{
			Key:        key,
			Value:      v.Get(key),
			Source:     info.Source,
			SourcePath: info.Path,
		})
	}
	return settings
}
