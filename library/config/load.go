package config

import (
	"os"
	"path/filepath"

	"github.com/openmlhub/model-registry/library/log"

	gconfig "github.com/Laisky/go-config/v2"
	"github.com/Laisky/zap"
)

// LoadFromFile loads the settings file into the shared config.
// A missing file is not fatal: every setting has an env fallback,
// so the server can run from environment variables alone.
func LoadFromFile(cfgPath string) {
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		log.Logger.Info("no configuration file, rely on env",
			zap.String("config", cfgPath))
		return
	}

	gconfig.Shared.Set("cfg_dir", filepath.Dir(cfgPath))
	if err := gconfig.Shared.LoadFromFile(cfgPath); err != nil {
		log.Logger.Panic("load configuration",
			zap.Error(err),
			zap.String("config", cfgPath))
	}

	log.Logger.Info("load configuration",
		zap.String("config", cfgPath))
}

// BindEnv back-fills settings from the environment when the settings
// file (or flags) did not provide them. DATABASE_URL / DATABASE_NAME /
// PORT are what deployment platforms inject.
func BindEnv() {
	if addr := os.Getenv("DATABASE_URL"); addr != "" && gconfig.Shared.GetString("settings.db.registry.addr") == "" {
		gconfig.Shared.Set("settings.db.registry.addr", addr)
	}
	if name := os.Getenv("DATABASE_NAME"); name != "" && gconfig.Shared.GetString("settings.db.registry.db") == "" {
		gconfig.Shared.Set("settings.db.registry.db", name)
	}
	if port := os.Getenv("PORT"); port != "" {
		gconfig.Shared.Set("listen", "0.0.0.0:"+port)
	}
}
