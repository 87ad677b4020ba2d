// Package config loads scanmeta settings from defaults, an optional YAML file
// and SCANMETA_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/ChrisMcGann/scanmeta/pkg/filter"
	"github.com/ChrisMcGann/scanmeta/pkg/ingest"
	"github.com/ChrisMcGann/scanmeta/pkg/source"
)

const (
	configName = "scanmeta"
	envPrefix  = "SCANMETA"
)

// Settings is the full runtime configuration.
type Settings struct {
	Database struct {
		Driver string // sqlite or mysql
		DSN    string // full data source name, overrides Path
		Path   string // sqlite database file
		Debug  bool   // log SQL statements
	}

	Log struct {
		Level  string // debug, info, warn or error
		Format string // console or json
	}

	Ingest struct {
		Workers   int    // concurrent scan mappers
		BatchSize int    // scans per transaction
		OnError   string // skip or abort
	}

	Filter struct {
		MsLevels []int   // keep only these levels, empty keeps all
		MinRT    float64 // minutes, 0 disables
		MaxRT    float64 // minutes, 0 disables
		MinPeaks int
		FillTIC  bool
	}

	// Reader holds attributes applied to formats that do not record them.
	Reader struct {
		Analyzer     string
		Dissociation string
	}
}

// New returns a viper instance with defaults and environment binding set up.
// Environment variables use the SCANMETA prefix with dots replaced by
// underscores, for example SCANMETA_DATABASE_PATH.
func New() *viper.Viper {
	v := viper.New()
	setDefaultConfig(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.path", "scanmeta.db")
	v.SetDefault("database.debug", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("ingest.workers", 4)
	v.SetDefault("ingest.batchsize", 500)
	v.SetDefault("ingest.onerror", "skip")

	v.SetDefault("filter.mslevels", []int{})
	v.SetDefault("filter.minrt", 0.0)
	v.SetDefault("filter.maxrt", 0.0)
	v.SetDefault("filter.minpeaks", 0)
	v.SetDefault("filter.filltic", false)

	// MGF files do not record the instrument. Unknown makes their scans fail
	// mapping until the analyzer and dissociation are configured.
	v.SetDefault("reader.analyzer", "Unknown")
	v.SetDefault("reader.dissociation", "Unknown")
}

// Load reads configFile, or when it is empty a scanmeta.yaml from the working
// directory or the user configuration directory, and returns the validated
// settings. A missing file is only an error when configFile was given.
func Load(v *viper.Viper, configFile string) (*Settings, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		for _, path := range defaultConfigPaths() {
			v.AddConfigPath(path)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

func defaultConfigPaths() []string {
	paths := []string{"."}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, configName))
	}
	return paths
}

// Validate checks every setting that can be checked without opening files or
// connections.
func (s *Settings) Validate() error {
	var errs []error

	switch strings.ToLower(s.Database.Driver) {
	case "sqlite", "sqlite3":
		if s.Database.Path == "" && s.Database.DSN == "" {
			errs = append(errs, errors.New("database.path or database.dsn is required for sqlite"))
		}
	case "mysql":
		if s.Database.DSN == "" {
			errs = append(errs, errors.New("database.dsn is required for mysql"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported database driver %q", s.Database.Driver))
	}

	switch s.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("invalid log format %q (want console or json)", s.Log.Format))
	}

	if s.Ingest.Workers < 1 {
		errs = append(errs, fmt.Errorf("ingest.workers must be at least 1, got %d", s.Ingest.Workers))
	}
	if s.Ingest.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("ingest.batchsize must be at least 1, got %d", s.Ingest.BatchSize))
	}
	if _, err := ingest.ParseErrorPolicy(s.Ingest.OnError); err != nil {
		errs = append(errs, err)
	}

	filterConfig := s.FilterConfig()
	if err := filterConfig.Validate(); err != nil {
		errs = append(errs, err)
	}

	if _, err := source.ParseMzAnalyzerType(s.Reader.Analyzer); err != nil {
		errs = append(errs, err)
	}
	if _, err := source.ParseDissociationType(s.Reader.Dissociation); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// FilterConfig converts the filter section.
func (s *Settings) FilterConfig() filter.Config {
	return filter.Config{
		MsLevels:            s.Filter.MsLevels,
		MinRT:               s.Filter.MinRT,
		MaxRT:               s.Filter.MaxRT,
		MinPeaks:            s.Filter.MinPeaks,
		FillTotalIonCurrent: s.Filter.FillTIC,
	}
}

// IngestOptions converts the ingest and filter sections. The logger is left
// for the caller to set.
func (s *Settings) IngestOptions() (ingest.Options, error) {
	policy, err := ingest.ParseErrorPolicy(s.Ingest.OnError)
	if err != nil {
		return ingest.Options{}, err
	}
	filterConfig := s.FilterConfig()
	return ingest.Options{
		Filter:    &filterConfig,
		Workers:   s.Ingest.Workers,
		BatchSize: s.Ingest.BatchSize,
		OnError:   policy,
	}, nil
}

// ReaderAttributes parses the attributes supplied to readers of formats that
// do not record the instrument.
func (s *Settings) ReaderAttributes() (source.MzAnalyzerType, source.DissociationType, error) {
	analyzer, err := source.ParseMzAnalyzerType(s.Reader.Analyzer)
	if err != nil {
		return source.AnalyzerUnknown, source.DissociationUnknown, err
	}
	dissociation, err := source.ParseDissociationType(s.Reader.Dissociation)
	if err != nil {
		return source.AnalyzerUnknown, source.DissociationUnknown, err
	}
	return analyzer, dissociation, nil
}
