package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/roach88/conform/internal/invoke"
	"github.com/roach88/conform/internal/logging"
)

// EnvPrefix prefixes every environment variable read by conform.
const EnvPrefix = "CONFORM"

// Configuration keys. Flags with the same names are bound automatically.
const (
	KeyConfig   = "config"
	KeySuite    = "suite"
	KeySubject  = "trurl"
	KeyRunner   = "runner"
	KeyMemCheck = "with-valgrind"
	KeyChecker  = "memchecker"
	KeyVerbose  = "verbose"
	KeyFormat   = "format"
	KeyTimeout  = "timeout"
	KeyEncoding = "encoding"
	KeyDB       = "db"
	KeyLogLevel = "log-level"
)

// Keys lists every key bound to a flag.
var Keys = []string{
	KeySuite, KeySubject, KeyRunner, KeyMemCheck, KeyChecker, KeyVerbose,
	KeyFormat, KeyTimeout, KeyEncoding, KeyDB, KeyLogLevel,
}

// DefaultSuite is the suite file used when none is configured.
const DefaultSuite = "tests.json"

// ValidFormats are the accepted output formats.
var ValidFormats = []string{"text", "json"}

//go:embed config_schema.cue
var configSchema string

// Options is the resolved configuration. It is not modified after Load.
type Options struct {
	Suite    string
	Subject  string
	Runner   string
	MemCheck bool
	Checker  string
	Verbose  bool
	Format   string
	Timeout  time.Duration
	Encoding string
	DB       string
	LogLevel string

	// ConfigFile is the config file that was read, if any.
	ConfigFile string
}

// InvokeOptions returns the strategy options for o.
func (o Options) InvokeOptions() invoke.Options {
	return invoke.Options{
		Subject:  o.Subject,
		Runner:   o.Runner,
		MemCheck: o.MemCheck,
		Checker:  o.Checker,
	}
}

// Load resolves Options from flags, the environment and configFile. flags may
// be nil. An empty configFile falls back to CONFORM_CONFIG.
func Load(flags *pflag.FlagSet, configFile string) (Options, error) {
	v := viper.New()

	v.SetDefault(KeySuite, DefaultSuite)
	v.SetDefault(KeySubject, "")
	v.SetDefault(KeyRunner, "")
	v.SetDefault(KeyMemCheck, false)
	v.SetDefault(KeyChecker, invoke.DefaultChecker)
	v.SetDefault(KeyVerbose, false)
	v.SetDefault(KeyFormat, "text")
	v.SetDefault(KeyTimeout, time.Duration(0))
	v.SetDefault(KeyEncoding, "")
	v.SetDefault(KeyDB, "")
	v.SetDefault(KeyLogLevel, logging.DefaultLevel)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for _, key := range Keys {
			if f := flags.Lookup(key); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Options{}, fmt.Errorf("bind flag %s: %w", key, err)
				}
			}
		}
	}

	if configFile == "" {
		configFile = v.GetString(KeyConfig)
	}
	if configFile != "" {
		if err := readConfigFile(v, configFile); err != nil {
			return Options{}, err
		}
	}

	opts := Options{
		Suite:      v.GetString(KeySuite),
		Subject:    v.GetString(KeySubject),
		Runner:     v.GetString(KeyRunner),
		MemCheck:   v.GetBool(KeyMemCheck),
		Checker:    v.GetString(KeyChecker),
		Verbose:    v.GetBool(KeyVerbose),
		Format:     v.GetString(KeyFormat),
		Timeout:    v.GetDuration(KeyTimeout),
		Encoding:   v.GetString(KeyEncoding),
		DB:         v.GetString(KeyDB),
		LogLevel:   v.GetString(KeyLogLevel),
		ConfigFile: configFile,
	}
	if opts.Subject == "" {
		opts.Subject = DefaultSubject(opts.Suite)
	}
	if opts.Checker == "" {
		opts.Checker = invoke.DefaultChecker
	}

	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// Validate checks value constraints that flags and files cannot express.
func (o Options) Validate() error {
	if !isValidFormat(o.Format) {
		return fmt.Errorf("invalid format %q (want %s)", o.Format, strings.Join(ValidFormats, " or "))
	}
	if _, err := logging.ParseLevel(o.LogLevel); err != nil {
		return err
	}
	if o.Timeout < 0 {
		return fmt.Errorf("invalid timeout %s: must not be negative", o.Timeout)
	}
	if o.Suite == "" {
		return fmt.Errorf("suite path must not be empty")
	}
	return nil
}

// DefaultSubject is the subject binary next to the suite file. The result
// always contains a path separator so it is never looked up on PATH.
func DefaultSubject(suitePath string) string {
	name := "trurl"
	if runtime.GOOS == "windows" {
		name = "trurl.exe"
	}
	dir := filepath.Dir(suitePath)
	if dir == "." {
		return "." + string(filepath.Separator) + name
	}
	return filepath.Join(dir, name)
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func readConfigFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("config file not found: %s", path)
	}
	if strings.EqualFold(filepath.Ext(path), ".cue") {
		return loadCUEIntoViper(v, path)
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return nil
}

// loadCUEIntoViper validates a CUE config file against #Config and merges
// its contents into v.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return fmt.Errorf("%s: %w", path, userValue.Err())
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}
