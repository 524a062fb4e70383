package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/kexley/chromakeyd/pkg/configdef"
	"github.com/kexley/chromakeyd/pkg/log"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/tauraamui/xerror"
)

func load() (configdef.Values, error) {
	var values configdef.Values

	configPath, err := resolveConfigPath()
	if err != nil {
		return configdef.Values{}, err
	}

	log.Info("Resolved config file location: %s", configPath)
	file, err := readConfigFile(configPath)
	if err != nil {
		return configdef.Values{}, err
	}

	if err := unmarshal(file, &values); err != nil {
		return configdef.Values{}, err
	}

	applyDefaults(&values)

	if err = values.RunValidate(); err != nil {
		return configdef.Values{}, err
	}

	return values, nil
}

func applyDefaults(values *configdef.Values) {
	if len(values.BindAddress) == 0 {
		values.BindAddress = defaultSettings[BINDADDRESS].(string)
	}
	if len(values.Keying.MatchMode) == 0 {
		values.Keying.MatchMode = defaultSettings[MATCHMODE].(string)
	}
	if len(values.Keying.Substitution) == 0 {
		values.Keying.Substitution = defaultSettings[SUBSTITUTION].(string)
	}
	// nil means the field was absent; an explicit zero stays zero
	if values.Keying.Tolerance == nil {
		tolerance := defaultSettings[TOLERANCE].(uint32)
		values.Keying.Tolerance = &tolerance
	}
}

var readConfigFile = func(path string) ([]byte, error) {
	return afero.ReadFile(fs, path)
}

func unmarshal(content []byte, values *configdef.Values) error {
	err := json.Unmarshal(content, values)
	if err != nil {
		return errors.Errorf("parsing configuration error: %v", err)
	}
	return nil
}

func resolveConfigPath() (string, error) {
	configPath := os.Getenv("CHROMAKEYD_CONFIG")
	if len(configPath) > 0 {
		return configPath, nil
	}

	configParentDir, err := userConfigDir()
	if err != nil {
		return "", xerror.Errorf("unable to resolve %s location: %w", configFileName, err)
	}

	return filepath.Join(
		configParentDir,
		vendorName,
		appName,
		configFileName), nil
}

var userConfigDir = func() (string, error) {
	return os.UserConfigDir()
}
