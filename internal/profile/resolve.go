package profile

import "github.com/matheus3301/meshchat/internal/config"

// DefaultName is used when neither a flag nor the config names a profile.
const DefaultName = "main"

// Resolve picks the active profile: the --profile flag, then MESH_PROFILE,
// then default_profile from config.toml, then DefaultName.
func Resolve(flagOverride string) string {
	if flagOverride != "" {
		return flagOverride
	}
	if cfg, _ := config.Load(ConfigPath()); cfg != nil && cfg.DefaultProfile != "" {
		return cfg.DefaultProfile
	}
	return DefaultName
}
