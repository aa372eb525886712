package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/analekt/epubcheck-mcp/internal/log"
	"github.com/analekt/epubcheck-mcp/internal/model"
	"gopkg.in/yaml.v3"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	configFileName = "epubcheckctl.yaml"
	envConfig      = "EPUBCHECKCTL_CONFIG"
)

var (
	userConfigPath string // /default/config/path/epubcheckctl on given OS
	configPath     string // actual config file used
	config         model.Config

	flagConfigFilePath string // value of --config flag
	flagVerbose        bool   // value of --verbose flag
	flagEnvFile        string // value of --env-file flag
)

func init() {
	d, err := os.UserConfigDir()
	if err != nil {
		panic(err)
	}
	userConfigPath = filepath.Join(d, "epubcheckctl")
}

func main() {
	// root flags
	rootCmd.PersistentFlags().StringVar(&flagConfigFilePath, "config", "", "Config file to load - default is "+configFileName+" in "+userConfigPath+" or in current directory")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "verbose logging")
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", "", "dotenv file read before anything else, e.g. to set EPUBCHECK_PATH or JAVA_HOME")

	// validate flags
	validateCmd.Flags().StringVar(&flagMode, "mode", "", "validation mode: epub, exp, opf, xhtml, nav, svg or mo (default from config)")
	validateCmd.Flags().StringVar(&flagProfile, "profile", "", "validation profile: default, edupub, idx, dict or preview (default from config)")
	validateCmd.Flags().StringVarP(&flagTargetVersion, "target-version", "v", "", "EPUB version of a single resource: 2.0 or 3.0")
	validateCmd.Flags().StringVarP(&flagOutput, "output", "o", outputText, "output format: text or json")
	validateCmd.Flags().IntVar(&flagParallel, "parallel", 0, "number of concurrent validations (default from config)")

	// never print messages
	rootCmd.SilenceErrors = true

	// parse or create a config, setup logging
	rootCmd.PersistentPreRunE = initConfig

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(engineVersionCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errProblemsFound) {
			slog.Error("epubcheckctl failed", "err", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "epubcheckctl",
	Short:        "Validates EPUB publications with EPUBCheck",
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "version prints the version of epubcheckctl",
	Run: func(cmd *cobra.Command, args []string) {
		w := cmd.OutOrStdout()
		info, ok := debug.ReadBuildInfo()
		if !ok {
			_, _ = fmt.Fprintln(w, "epubcheckctl: version info not available")
			return
		}

		if configPath != "" {
			_, _ = fmt.Fprintf(w, "config:       %s\n", configPath)
		}
		_, _ = fmt.Fprintf(w, "epubcheckctl: %s\n", info.Main.Version)
		_, _ = fmt.Fprintf(w, "go:           %s\n", info.GoVersion)
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				_, _ = fmt.Fprintf(w, "commit:       %s\n", s.Value)
			case "vcs.time":
				_, _ = fmt.Fprintf(w, "date:         %s\n", s.Value)
			case "vcs.modified":
				_, _ = fmt.Fprintf(w, "dirty:        %s\n", s.Value)
			}
		}
	},
}

// buildVersion is the module version, "dev" for local builds.
func buildVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" || info.Main.Version == "(devel)" {
		return "dev"
	}
	return info.Main.Version
}

func initConfig(cmd *cobra.Command, _ []string) error {
	if err := loadEnvFile(flagEnvFile); err != nil {
		return err
	}
	configPath = findConfig(os.LookupEnv, flagConfigFilePath, userConfigPath, ".")

	// store default configuration
	if configPath == "" {
		config = model.DefaultConfig(context.Background())
		configPath = filepath.Join(userConfigPath, configFileName)
		if err := storeConfig(configPath, config); err != nil {
			return err
		}
	} else {
		var err error
		config, err = loadConfig(configPath)
		if err != nil {
			for _, d := range model.CueErrDetails(err) {
				slog.Error(d.String())
			}
			return fmt.Errorf("parsing config: %w", err)
		}
	}

	// --verbose has a precedence over config file
	if flagVerbose {
		if config.Log == nil {
			config.Log = &model.Log{}
		}
		verbose := true
		config.Log.Verbose = &verbose
	}

	slog.SetDefault(log.New(os.Stderr, config.Verbose(), config.LogFormat()))

	slog.Debug("epubcheckctl run", "configPath", configPath)
	slog.Debug("epubcheckctl run", "config", config)
	return nil
}

// findConfig returns the config file path: the environment variable wins
// over --config, then the first existing file in dirs. Empty if nothing found.
func findConfig(lookupEnv func(string) (string, bool), flagPath string, dirs ...string) string {
	if path, ok := lookupEnv(envConfig); ok && path != "" {
		return path
	}
	if flagPath != "" {
		return flagPath
	}
	for _, d := range dirs {
		path := filepath.Join(d, configFileName)
		if exists(path) {
			return path
		}
	}
	return ""
}

// loadEnvFile sets variables from a dotenv file. Variables already present
// in the environment are kept.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

func loadConfig(path string) (model.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Config{}, fmt.Errorf("opening config file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	return model.LoadConfig(f)
}

func storeConfig(path string, cfg model.Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", filepath.Dir(path), err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()
	enc := yaml.NewEncoder(f)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("storing configuration: %w", err)
	}
	return enc.Close()
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
