package config

// mergeConfigs merges override configuration into base. Neither argument is
// modified.
func mergeConfigs(base, override *Config) *Config {
	result := *base
	result.Sources = append([]string(nil), base.Sources...)

	if override.Version != "" {
		result.Version = override.Version
	}

	result.Repository = mergeRepository(result.Repository, override.Repository)
	result.Watch = mergeWatch(result.Watch, override.Watch)

	// Scripts are replaced as a unit; mixing commands from two layers would
	// produce a script nobody wrote.
	if !override.Build.Empty() {
		result.Build = override.Build
	}
	if !override.Test.ScriptConfig.Empty() {
		result.Test.ScriptConfig = override.Test.ScriptConfig
	}
	if override.Test.Enabled != nil {
		enabled := *override.Test.Enabled
		result.Test.Enabled = &enabled
	}

	result.Extensions = mergeExtensions(base.Extensions, override.Extensions)
	return &result
}

func mergeRepository(base, override RepositoryConfig) RepositoryConfig {
	result := base
	if override.URL != "" {
		result.URL = override.URL
	}
	if override.Root != "" {
		result.Root = override.Root
	}
	if override.Remote != "" {
		result.Remote = override.Remote
	}
	return result
}

func mergeWatch(base, override WatchConfig) WatchConfig {
	result := base
	if override.Interval != "" {
		result.Interval = override.Interval
	}
	if override.KillOnStop {
		result.KillOnStop = override.KillOnStop
	}
	if override.KillGrace != "" {
		result.KillGrace = override.KillGrace
	}
	if override.CommandTimeout != "" {
		result.CommandTimeout = override.CommandTimeout
	}
	return result
}

// mergeExtensions merges extension sections one level deep: when both sides
// hold a map for the same key, override keys win.
func mergeExtensions(base, override map[string]interface{}) map[string]interface{} {
	if base == nil && override == nil {
		return nil
	}
	result := make(map[string]interface{}, len(base)+len(override))
	for k, v := range base {
		result[k] = v
	}
	for key, value := range override {
		if baseMap, ok := result[key].(map[string]interface{}); ok {
			if overrideMap, ok := value.(map[string]interface{}); ok {
				merged := make(map[string]interface{}, len(baseMap)+len(overrideMap))
				for k, v := range baseMap {
					merged[k] = v
				}
				for k, v := range overrideMap {
					merged[k] = v
				}
				result[key] = merged
				continue
			}
		}
		result[key] = value
	}
	return result
}
