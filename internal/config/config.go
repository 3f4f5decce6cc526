// Package config layers prism's settings: explicit flags, then PRISM_*
// environment variables, then an optional YAML config file, then defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jmylchreest/prism/internal/quantize"
)

// EnvPrefix prefixes every environment override, e.g. PRISM_MAX_LEAVES.
const EnvPrefix = "PRISM"

// Setting keys. Flags share these names.
const (
	KeyColours       = "colours"
	KeyAlgorithm     = "algorithm"
	KeyMaxIterations = "max-iterations"
	KeyThreshold     = "threshold"
	KeyMaxLeaves     = "max-leaves"
	KeySeed          = "seed"
	KeyWorkers       = "workers"
	KeyScale         = "scale"
	KeyFormat        = "format"
)

// Output formats.
const (
	FormatHex   = "hex"
	FormatRGB   = "rgb"
	FormatJSON  = "json"
	FormatTable = "table"
)

// ValidFormats returns the accepted output formats.
func ValidFormats() []string {
	return []string{FormatHex, FormatRGB, FormatJSON, FormatTable}
}

// Settings is the resolved configuration for one invocation.
type Settings struct {
	Algorithms []quantize.Algorithm
	Quantizer  quantize.Config

	// Seed fixes K-Means initialisation. Zero means random.
	Seed    uint64
	Workers int
	Scale   float64
	Format  string
}

// QuantizerOptions returns the quantize options implied by s.
func (s Settings) QuantizerOptions() []quantize.Option {
	if s.Seed == 0 {
		return nil
	}
	return []quantize.Option{quantize.WithSeed(s.Seed)}
}

// New returns a viper instance with defaults and environment lookup set up.
func New() *viper.Viper {
	v := viper.New()

	defaults := quantize.DefaultConfig()
	v.SetDefault(KeyColours, defaults.Colours)
	v.SetDefault(KeyAlgorithm, string(quantize.AlgorithmAll))
	v.SetDefault(KeyMaxIterations, defaults.MaxIterations)
	v.SetDefault(KeyThreshold, defaults.Threshold)
	v.SetDefault(KeyMaxLeaves, defaults.MaxLeaves)
	v.SetDefault(KeySeed, 0)
	v.SetDefault(KeyWorkers, runtime.NumCPU())
	v.SetDefault(KeyScale, 0.03)
	v.SetDefault(KeyFormat, FormatHex)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return v
}

// DefaultPath returns $XDG_CONFIG_HOME/prism/config.yaml, falling back to
// ~/.config when XDG_CONFIG_HOME is unset.
func DefaultPath() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := homedir.Dir()
		if err != nil {
			return "", fmt.Errorf("failed to locate home directory: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "prism", "config.yaml"), nil
}

// ReadFile merges the config file at path into v. An explicit path must
// exist; with an empty path the default location is tried and silently
// skipped when absent.
func ReadFile(v *viper.Viper, path string) error {
	explicit := path != ""
	if explicit {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return fmt.Errorf("invalid config path %q: %w", path, err)
		}
		path = expanded
	} else {
		def, err := DefaultPath()
		if err != nil {
			return nil
		}
		path = def
	}

	if _, err := os.Stat(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// BindFlags binds every flag in fs whose name is a setting key. Flags only
// override lower layers when set explicitly.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		if err != nil || !isKey(f.Name) {
			return
		}
		if bindErr := v.BindPFlag(f.Name, f); bindErr != nil {
			err = fmt.Errorf("failed to bind flag %s: %w", f.Name, bindErr)
		}
	})
	return err
}

func isKey(name string) bool {
	switch name {
	case KeyColours, KeyAlgorithm, KeyMaxIterations, KeyThreshold, KeyMaxLeaves,
		KeySeed, KeyWorkers, KeyScale, KeyFormat:
		return true
	}
	return false
}

// Resolve reads the layered values out of v and validates them.
func Resolve(v *viper.Viper) (Settings, error) {
	algorithms, err := quantize.ParseAlgorithms(v.GetString(KeyAlgorithm))
	if err != nil {
		return Settings{}, err
	}

	s := Settings{
		Algorithms: algorithms,
		Quantizer: quantize.Config{
			Colours:       v.GetInt(KeyColours),
			MaxIterations: v.GetInt(KeyMaxIterations),
			Threshold:     v.GetFloat64(KeyThreshold),
			MaxLeaves:     v.GetInt(KeyMaxLeaves),
		},
		Seed:    v.GetUint64(KeySeed),
		Workers: v.GetInt(KeyWorkers),
		Scale:   v.GetFloat64(KeyScale),
		Format:  strings.ToLower(v.GetString(KeyFormat)),
	}

	for _, alg := range s.Algorithms {
		if err := s.Quantizer.Validate(alg); err != nil {
			return Settings{}, err
		}
	}
	if s.Workers < 1 {
		return Settings{}, fmt.Errorf("workers must be at least 1, got %d", s.Workers)
	}
	if s.Scale <= 0 || s.Scale > 1 {
		return Settings{}, fmt.Errorf("scale must be in (0, 1], got %v", s.Scale)
	}
	if !slices.Contains(ValidFormats(), s.Format) {
		return Settings{}, fmt.Errorf("invalid format: %s (valid formats: %s)", s.Format, strings.Join(ValidFormats(), ", "))
	}
	return s, nil
}
