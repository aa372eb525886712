package model

import (
	"context"
	"io"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/encoding/yaml"

	_ "embed"
)

const (
	LogFormatJSON = "json"
	LogFormatText = "text"

	DefaultEngineTimeout  = 5 * time.Minute
	DefaultVersionTimeout = 30 * time.Second
	DefaultCheckTTL       = 24 * time.Hour
	DefaultCheckTimeout   = 10 * time.Second
	DefaultParallel       = 4

	DefaultReleaseURL = "https://api.github.com/repos/w3c/epubcheck/releases/latest"
)

//go:embed config.cue
var cueSource []byte

var (
	cueCtx *cue.Context
	schema cue.Value
)

func init() {
	if len(cueSource) == 0 {
		panic("variable cueSource is empty")
	}
	cueCtx = cuecontext.New()
	compiled := cueCtx.CompileBytes(cueSource)
	if compiled.Err() != nil {
		panic(compiled.Err())
	}

	if err := compiled.Validate(); err != nil {
		panic(err)
	}

	schema = compiled.LookupPath(cue.ParsePath("#Config"))
	if schema.Err() != nil {
		panic(schema.Err())
	}
	if err := schema.Validate(); err != nil {
		panic(err)
	}
}

type Config struct {
	Version     int          `json:"version" yaml:"version"` // fixed 0 for now
	Engine      *Engine      `json:"engine,omitempty" yaml:"engine,omitempty"`
	Defaults    *Defaults    `json:"defaults,omitempty" yaml:"defaults,omitempty"`
	UpdateCheck *UpdateCheck `json:"update_check,omitempty" yaml:"update_check,omitempty"`
	Log         *Log         `json:"log,omitempty" yaml:"log,omitempty"`
}

// Engine locates and bounds the epubcheck process.
type Engine struct {
	Path           *string   `json:"path,omitempty" yaml:"path,omitempty"` // jar or launcher, EPUBCHECK_PATH wins
	Java           *string   `json:"java,omitempty" yaml:"java,omitempty"`
	ScratchDir     *string   `json:"scratch_dir,omitempty" yaml:"scratch_dir,omitempty"` // nil => os.TempDir
	Timeout        *Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	VersionTimeout *Duration `json:"version_timeout,omitempty" yaml:"version_timeout,omitempty"`
}

// Defaults for requests built by the command line.
type Defaults struct {
	Mode     *string `json:"mode,omitempty" yaml:"mode,omitempty"`
	Profile  *string `json:"profile,omitempty" yaml:"profile,omitempty"`
	Parallel *int    `json:"parallel,omitempty" yaml:"parallel,omitempty"`
}

// UpdateCheck configures the background latest release lookup.
type UpdateCheck struct {
	Enabled  *bool     `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	URL      *string   `json:"url,omitempty" yaml:"url,omitempty"`
	TTL      *Duration `json:"ttl,omitempty" yaml:"ttl,omitempty"`
	Timeout  *Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	CacheDir *string   `json:"cache_dir,omitempty" yaml:"cache_dir,omitempty"` // nil => os.UserCacheDir
}

type Log struct {
	Verbose *bool   `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	Format  *string `json:"format,omitempty" yaml:"format,omitempty"` // "json"|"text"
}

// DefaultConfig returns the configuration stored when no config file exists.
func DefaultConfig(_ context.Context) Config {
	return Config{
		Version: 0,
		Engine: &Engine{
			Timeout:        ptr(Duration(DefaultEngineTimeout)),
			VersionTimeout: ptr(Duration(DefaultVersionTimeout)),
		},
		Defaults: &Defaults{
			Mode:     ptr(string(ModeEPUB)),
			Profile:  ptr(string(ProfileDefault)),
			Parallel: ptr(DefaultParallel),
		},
		UpdateCheck: &UpdateCheck{
			Enabled: ptr(true),
			URL:     ptr(DefaultReleaseURL),
			TTL:     ptr(Duration(DefaultCheckTTL)),
			Timeout: ptr(Duration(DefaultCheckTimeout)),
		},
		Log: &Log{
			Verbose: ptr(false),
			Format:  ptr(LogFormatJSON),
		},
	}
}

// LoadConfig validates YAML from r against CUE schema and decodes to Config.
func LoadConfig(r io.Reader) (Config, error) {
	yamlFile, err := yaml.Extract("config.yaml", r)
	if err != nil {
		return Config{}, err
	}
	yamlValue := cueCtx.BuildFile(yamlFile)

	unified := schema.Unify(yamlValue)
	if err := unified.Validate(
		cue.All(),          // all constraints
		cue.Concrete(true), // no incomplete values
	); err != nil {
		return Config{}, err
	}

	var out Config
	if err := unified.Decode(&out); err != nil {
		return Config{}, err
	}

	return out, nil
}

// accessors below apply the defaults for missing values

func (c Config) EngineTimeout() time.Duration {
	if c.Engine == nil {
		return DefaultEngineTimeout
	}
	return c.Engine.Timeout.Or(DefaultEngineTimeout)
}

func (c Config) VersionTimeout() time.Duration {
	if c.Engine == nil {
		return DefaultVersionTimeout
	}
	return c.Engine.VersionTimeout.Or(DefaultVersionTimeout)
}

func (c Config) EnginePath() string {
	if c.Engine == nil {
		return ""
	}
	return get(c.Engine.Path)
}

func (c Config) JavaPath() string {
	if c.Engine == nil {
		return ""
	}
	return get(c.Engine.Java)
}

func (c Config) ScratchDir() string {
	if c.Engine == nil {
		return ""
	}
	return get(c.Engine.ScratchDir)
}

func (c Config) DefaultMode() Mode {
	if c.Defaults == nil || c.Defaults.Mode == nil {
		return ModeEPUB
	}
	return Mode(*c.Defaults.Mode)
}

func (c Config) DefaultProfile() Profile {
	if c.Defaults == nil || c.Defaults.Profile == nil {
		return ProfileDefault
	}
	return Profile(*c.Defaults.Profile)
}

func (c Config) Parallel() int {
	if c.Defaults == nil || c.Defaults.Parallel == nil {
		return DefaultParallel
	}
	return *c.Defaults.Parallel
}

// UpdateCheckEnabled is true unless explicitly disabled.
func (c Config) UpdateCheckEnabled() bool {
	if c.UpdateCheck == nil || c.UpdateCheck.Enabled == nil {
		return true
	}
	return *c.UpdateCheck.Enabled
}

func (c Config) ReleaseURL() string {
	if c.UpdateCheck == nil || c.UpdateCheck.URL == nil {
		return DefaultReleaseURL
	}
	return *c.UpdateCheck.URL
}

func (c Config) CheckTTL() time.Duration {
	if c.UpdateCheck == nil {
		return DefaultCheckTTL
	}
	return c.UpdateCheck.TTL.Or(DefaultCheckTTL)
}

func (c Config) CheckTimeout() time.Duration {
	if c.UpdateCheck == nil {
		return DefaultCheckTimeout
	}
	return c.UpdateCheck.Timeout.Or(DefaultCheckTimeout)
}

func (c Config) CacheDir() string {
	if c.UpdateCheck == nil {
		return ""
	}
	return get(c.UpdateCheck.CacheDir)
}

func (c Config) Verbose() bool {
	if c.Log == nil {
		return false
	}
	return get(c.Log.Verbose)
}

func (c Config) LogFormat() string {
	if c.Log == nil || c.Log.Format == nil {
		return LogFormatJSON
	}
	return *c.Log.Format
}

func get[T any](pt *T) T {
	var zero T
	if pt == nil {
		return zero
	}
	return *pt
}

func ptr[T any](v T) *T {
	return &v
}
