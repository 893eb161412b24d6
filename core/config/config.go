package config

import (
	_ "embed"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

var (
	//go:embed default/pipegate.yaml
	defaultConfigData []byte
)

const (
	ConfigurationName = "pipegate.yaml"
)

type Configuration struct {
	configFs afero.Fs

	// Debug keeps the error stream open. When off, diagnostics are discarded
	// and stages get the null device as stderr.
	Debug bool `json:"debug"`

	// OutputMode is requested when the output file is created; umask applies.
	OutputMode uint32 `json:"output_mode" validate:"lte=511"`

	EventLog string `json:"event_log"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})

	return validate.Struct(c)
}

func (c *Configuration) fs() afero.Fs {
	return c.configFs
}

// FileMode returns OutputMode as permission bits.
func (c *Configuration) FileMode() os.FileMode {
	return os.FileMode(c.OutputMode).Perm()
}

// OpenEventLog opens the event log in an append only state. It returns nil if
// no event log is configured.
func (c *Configuration) OpenEventLog() (afero.File, error) {
	if c.EventLog == "" {
		return nil, nil
	}
	return c.fs().OpenFile(c.EventLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
}

// ReadEventLog opens the event log for reading. It returns nil if no event log
// is configured.
func (c *Configuration) ReadEventLog() (afero.File, error) {
	if c.EventLog == "" {
		return nil, nil
	}
	return c.fs().Open(c.EventLog)
}

func defaultConfig() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}
