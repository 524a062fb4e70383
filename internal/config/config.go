package config

import (
	"github.com/spf13/afero"
)

const (
	vendorName     = "kexley"
	appName        = "chromakeyd"
	configFileName = "config.json"
)

var fs afero.Fs = afero.NewOsFs()
