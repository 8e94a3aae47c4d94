package gallery

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/abworrall/hi-gallery/pkg/spectral"
	"github.com/abworrall/hi-gallery/pkg/survey"
)

type StoreConfig struct {
	Kind   string `yaml:"kind"` // "local" or "s3"
	Bucket string `yaml:"bucket,omitempty"`
	Prefix string `yaml:"prefix,omitempty"`
	Region string `yaml:"region,omitempty"`
}

type Config struct {
	Verbosity int `yaml:"verbosity"`

	OptView      float64   `yaml:"optview"` // arcmin
	HSTView      float64   `yaml:"hstview"` // arcsec
	Suffix       string    `yaml:"suffix"`
	SofiaVersion int       `yaml:"sofia"`
	Beam         []float64 `yaml:"beam,omitempty"` // arcsec, arcsec, deg
	Surveys      []string  `yaml:"surveys"`
	SNRRange     []float64 `yaml:"snrrange"`
	Workers      int       `yaml:"workers"`
	IDs          []int     `yaml:"ids,omitempty"` // only these sources; all if empty

	RestFrequency float64 `yaml:"restfrequency"` // Hz
	SpeedOfLight  float64 `yaml:"speedoflight"`  // m/s

	HTTPTimeoutSeconds int              `yaml:"httptimeoutseconds"`
	Endpoints          survey.Endpoints `yaml:"endpoints"`

	Store       StoreConfig `yaml:"store"`
	MetricsFile string      `yaml:"metricsfile,omitempty"`
	LogFormat   string      `yaml:"logformat"` // "console" or "json"
	LogLevel    string      `yaml:"loglevel"`
}

func NewConfig() Config {
	return Config{
		OptView:            6.0,
		HSTView:            40.0,
		Suffix:             "png",
		SofiaVersion:       2,
		Surveys:            []string{"DSS2 Blue"},
		SNRRange:           []float64{2, 3},
		Workers:            1,
		RestFrequency:      spectral.HIRestFrequency,
		SpeedOfLight:       spectral.SpeedOfLight,
		HTTPTimeoutSeconds: 60,
		Endpoints:          survey.DefaultEndpoints(),
		Store:              StoreConfig{Kind: "local"},
		LogFormat:          "console",
		LogLevel:           "info",
	}
}

func newConfigFromYaml(b []byte) (Config, error) {
	c := NewConfig()
	err := yaml.Unmarshal(b, &c)
	return c, err
}

func (c Config) AsYaml() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("# can't marshal config yaml: %v\n", err)
	}
	return string(b)
}

// Finalize fills in anything left empty, and checks the values make sense.
func (c *Config) Finalize() error {
	def := NewConfig()

	if c.OptView == 0 {
		c.OptView = def.OptView
	}
	if c.HSTView == 0 {
		c.HSTView = def.HSTView
	}
	if c.Suffix == "" {
		c.Suffix = def.Suffix
	}
	c.Suffix = strings.TrimPrefix(strings.ToLower(c.Suffix), ".")
	if c.SofiaVersion == 0 {
		c.SofiaVersion = def.SofiaVersion
	}
	if len(c.Surveys) == 0 {
		c.Surveys = def.Surveys
	}
	if len(c.SNRRange) == 0 {
		c.SNRRange = def.SNRRange
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.RestFrequency == 0 {
		c.RestFrequency = def.RestFrequency
	}
	if c.SpeedOfLight == 0 {
		c.SpeedOfLight = def.SpeedOfLight
	}
	if c.HTTPTimeoutSeconds <= 0 {
		c.HTTPTimeoutSeconds = def.HTTPTimeoutSeconds
	}
	c.Endpoints = c.Endpoints.WithDefaults()
	if c.Store.Kind == "" {
		c.Store.Kind = "local"
	}
	if c.LogFormat == "" {
		c.LogFormat = def.LogFormat
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}

	switch {
	case c.OptView < 0 || c.HSTView < 0:
		return fmt.Errorf("config: fields of view must be positive (optview=%v, hstview=%v)", c.OptView, c.HSTView)
	case c.SofiaVersion != 1 && c.SofiaVersion != 2:
		return fmt.Errorf("config: sofia version must be 1 or 2, not %d", c.SofiaVersion)
	case len(c.Beam) > 3:
		return fmt.Errorf("config: beam takes 1-3 values, got %v", c.Beam)
	case len(c.SNRRange) != 2 || !(c.SNRRange[0] < c.SNRRange[1]):
		return fmt.Errorf("config: snrrange must be two increasing values, got %v", c.SNRRange)
	case c.Suffix != "png" && c.Suffix != "jpg" && c.Suffix != "jpeg":
		return fmt.Errorf("config: suffix '%s' not supported (png, jpg)", c.Suffix)
	case c.Store.Kind != "local" && c.Store.Kind != "s3":
		return fmt.Errorf("config: store kind '%s' not supported (local, s3)", c.Store.Kind)
	case c.Store.Kind == "s3" && c.Store.Bucket == "":
		return fmt.Errorf("config: s3 store needs a bucket")
	case c.LogFormat != "console" && c.LogFormat != "json":
		return fmt.Errorf("config: logformat '%s' not supported (console, json)", c.LogFormat)
	}

	return c.Converter().Validate()
}

func (c Config) Converter() spectral.Converter {
	return spectral.Converter{RestFrequency: c.RestFrequency, C: c.SpeedOfLight}
}

func (c Config) Band() [2]float64 { return [2]float64{c.SNRRange[0], c.SNRRange[1]} }

// HSTViewArcmin is the HST field in the same units as OptView.
func (c Config) HSTViewArcmin() float64 { return c.HSTView / 60.0 }

func (c Config) WantID(id int) bool {
	if len(c.IDs) == 0 {
		return true
	}
	for _, want := range c.IDs {
		if want == id {
			return true
		}
	}
	return false
}
