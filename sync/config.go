package sync

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/config"
)

// DefaultIntervalDays bounds a single message-activity request when the
// config does not say otherwise. Windowing is a correctness requirement:
// the service truncates or times out unbounded date ranges.
const DefaultIntervalDays = 365

type Config struct {
	API APISettings
	// StartDate is the initial low watermark (RFC3339) used when a stream
	// has no bookmark yet.
	StartDate    string
	IntervalDays int
	// Streams holds the selected stream ids. Unknown ids are inert.
	Streams []string
}

type APISettings struct {
	Username string
	Password string
	// Endpoint overrides the production IntegrationService URL, mainly
	// for tests.
	Endpoint string
}

type ConfigUnmarshaler interface {
	Unmarshal(compev CompositeEnvVar, sources ...io.Reader) (Config, error)
}

type CompositeEnvVar interface {
	LookupEnv(child string) (string, bool)
}

// OSEnvVar resolves ${VAR} references in config sources straight from the
// process environment.
type OSEnvVar struct{}

func (OSEnvVar) LookupEnv(child string) (string, bool) {
	return os.LookupEnv(child)
}

type YAMLConfigUnmarshaler struct{}

func (u YAMLConfigUnmarshaler) Unmarshal(compev CompositeEnvVar, sources ...io.Reader) (Config, error) {
	var result Config
	var options []config.YAMLOption
	for _, s := range sources {
		options = append(options, config.Source(s))
	}
	options = append(options, config.Expand(compev.LookupEnv))
	yaml, err := config.NewYAML(options...)
	if err != nil {
		return result, fmt.Errorf("failed to read yaml config %w", err)
	}
	readError := func(key string, cause error) error {
		return fmt.Errorf("failed to read '%s' from yaml config %w", key, cause)
	}
	key := "api"
	err = yaml.Get(key).Populate(&result.API)
	if err != nil {
		return result, readError(key, err)
	}
	key = "startDate"
	if yaml.Get(key).HasValue() {
		err = yaml.Get(key).Populate(&result.StartDate)
		if err != nil {
			return result, readError(key, err)
		}
	}
	key = "intervalDays"
	if yaml.Get(key).HasValue() {
		err = yaml.Get(key).Populate(&result.IntervalDays)
		if err != nil {
			return result, readError(key, err)
		}
	}
	if result.IntervalDays <= 0 {
		result.IntervalDays = DefaultIntervalDays
	}
	key = "streams"
	if yaml.Get(key).HasValue() {
		err = yaml.Get(key).Populate(&result.Streams)
		if err != nil {
			return result, readError(key, err)
		}
	}
	if result.StartDate == "" {
		return result, fmt.Errorf("missing 'startDate' in yaml config")
	}
	return result, nil
}

// LoadConfigFile loads the YAML config at path, expanding ${VAR} references
// from the environment.
func LoadConfigFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to open config %w", err)
	}
	defer f.Close()
	return YAMLConfigUnmarshaler{}.Unmarshal(OSEnvVar{}, f)
}
