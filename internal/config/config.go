// Package config binds the engine's CLI flags and environment variables
// through viper, and persists a small client-identity/local-defaults file
// in TOML alongside each workspace the CLI has touched.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "RENTIKPRO"

var v = viper.New()

// Initialize (re)builds the viper instance with defaults and environment
// bindings. Safe to call more than once, e.g. between test cases.
func Initialize() error {
	v = viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault("webdav-url", "")
	v.SetDefault("webdav-user", "")
	v.SetDefault("webdav-pass", "")
	v.SetDefault("slug", "")
	v.SetDefault("force", false)
	v.SetDefault("quiet", false)
	v.SetDefault("yes", false)
	v.SetDefault("lock-wait", 10*time.Second)

	return nil
}

func init() {
	_ = Initialize()
}

// GetString, GetBool, and GetDuration read a bound value from viper.
func GetString(key string) string          { return v.GetString(key) }
func GetBool(key string) bool              { return v.GetBool(key) }
func GetDuration(key string) time.Duration { return v.GetDuration(key) }

// V returns the underlying viper instance for callers (the CLI layer) that
// need to call BindPFlag directly against a cobra command's flag set.
func V() *viper.Viper { return v }
