package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/dotcommander/clinscale/internal/config"
	"github.com/dotcommander/clinscale/internal/engine"
	"github.com/dotcommander/clinscale/internal/output"
	"github.com/dotcommander/clinscale/internal/project"
	"github.com/dotcommander/clinscale/internal/schema"
	"github.com/dotcommander/clinscale/internal/scoring"
	"github.com/dotcommander/clinscale/internal/validator"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is the release version, overridden at build time with -ldflags.
var Version = "dev"

// exitFunc is swapped out in tests.
var exitFunc = os.Exit

var (
	rootPath     string
	configFile   string
	quiet        bool
	verbose      bool
	outputFormat string
	outputFile   string
	failOn       string
	concurrency  int
)

var rootCmd = &cobra.Command{
	Use:   "clinscale",
	Short: "Validate clinical scale templates and score administrations",
	Long: `clinscale validates clinical scale templates (PHQ-9, GAD-7, BDI-II and
similar instruments) for structural and clinical consistency, and scores
completed response sets against them.

Run "clinscale validate" to check every template under the project root.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       Version,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitFunc(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	output.Version = Version

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&rootPath, "root", "r", "", "Root directory to search for templates (auto-detected if not specified)")
	flags.StringVar(&configFile, "config", "", "Config file (default .clinscalerc.{json,yaml,yml})")
	flags.BoolVarP(&quiet, "quiet", "q", false, "Suppress non-essential output")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	flags.StringVarP(&outputFormat, "format", "f", "console", "Output format (console|json|markdown)")
	flags.StringVarP(&outputFile, "output", "o", "", "Write the report to a file instead of stdout")
	flags.StringVar(&failOn, "fail-on", "error", "Exit non-zero at this level (critical|error|warning)")
	flags.IntVar(&concurrency, "concurrency", 10, "Templates validated in parallel")

	_ = viper.BindPFlag("quiet", flags.Lookup("quiet"))
	_ = viper.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("format", flags.Lookup("format"))
	_ = viper.BindPFlag("output", flags.Lookup("output"))
	_ = viper.BindPFlag("failOn", flags.Lookup("fail-on"))
	_ = viper.BindPFlag("concurrency", flags.Lookup("concurrency"))
}

// initConfig makes an explicit --config file the only one LoadConfig reads.
// Otherwise LoadConfig searches the working directory.
func initConfig() {
	if configFile == "" {
		return
	}
	config.ConfigFiles = []string{configFile}
	viper.SetConfigFile(configFile)
	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		exitFunc(1)
	}
}

// loadConfig loads configuration and switches on verbose logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(rootPath)
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}
	if rootPath == "" && cfg.Root == "." {
		if cfg.Root, err = project.FindProjectRoot("."); err != nil {
			return nil, fmt.Errorf("error detecting project root: %w", err)
		}
	}
	if cfg.Verbose {
		log.SetFlags(0)
		log.SetPrefix("clinscale: ")
		log.Printf("root=%s format=%s failOn=%s concurrency=%d", cfg.Root, cfg.Format, cfg.FailOn, cfg.Concurrency)
	}
	return cfg, nil
}

// newEngine wires the schema registry, validator and scoring hooks.
// Custom scoring hooks are registered on hooks by embedding programs; the CLI
// ships none.
func newEngine(cfg *config.Config) (*engine.Engine, *validator.Validator, error) {
	reg, err := schema.NewRegistry()
	if err != nil {
		return nil, nil, fmt.Errorf("error loading template schema: %w", err)
	}
	hooks := scoring.NewHookRegistry()
	v := validator.New(reg, hooks)
	return engine.New(v, hooks, cfg.EngineOptions()), v, nil
}
