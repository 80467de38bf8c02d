package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/muurk/toonapp/internal/config"
	"github.com/muurk/toonapp/internal/logging"
	"github.com/muurk/toonapp/internal/toon"
	"github.com/muurk/toonapp/internal/ui"
)

// Command flags
var (
	configPath   string
	logLevel     string
	timeoutFlag  time.Duration
	endpointFlag string
	outputFormat string
	centiFlag    int
)

func init() {
	// Persistent flags shared by every command
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/toonapp/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides "+logging.LogLevelEnvVar)
	rootCmd.PersistentFlags().DurationVar(&timeoutFlag, "timeout", 0, "Per-request timeout (default 10s)")
	rootCmd.PersistentFlags().StringVar(&endpointFlag, "endpoint", "", "Service base URL request paths are appended to")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "detailed", "Output format (detailed, compact, json)")

	rootCmd.AddCommand(appVersionCmd)
	rootCmd.AddCommand(presetCmd)
	rootCmd.AddCommand(temperatureCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(configCmd)

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

// setup validates global flags and initializes logging before any command runs
func setup(cmd *cobra.Command, args []string) error {
	switch outputFormat {
	case "detailed", "compact", "json":
	default:
		return fmt.Errorf("invalid --format %q (want detailed, compact or json)", outputFormat)
	}
	if timeoutFlag < 0 {
		return fmt.Errorf("--timeout must not be negative")
	}
	return logging.Initialize(logLevel)
}

// loadSettings reads the config file and applies environment and flag overrides
func loadSettings() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}

	if endpointFlag != "" {
		cfg.Endpoint = endpointFlag
	}
	if timeoutFlag > 0 {
		cfg.Timeout = config.Duration(timeoutFlag)
	}

	// The file's log level applies only when neither the flag nor the env var is set
	if logLevel == "" && os.Getenv(logging.LogLevelEnvVar) == "" && cfg.LogLevel != "" {
		if err := logging.Initialize(cfg.LogLevel); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// newClient builds a toon client from the effective settings
func newClient() (*toon.Client, error) {
	cfg, err := loadSettings()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	password, err := readPassword(cfg.Username)
	if err != nil {
		return nil, err
	}

	return toon.New(cfg.ToonOptions(password))
}

// readPassword takes the password from the environment or prompts without echo
func readPassword(username string) (string, error) {
	if pw := os.Getenv(config.EnvPassword); pw != "" {
		return pw, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no password available: set %s", config.EnvPassword)
	}

	fmt.Fprintf(os.Stderr, "Password for %s: ", username)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if len(pw) == 0 {
		return "", fmt.Errorf("password must not be empty")
	}
	return string(pw), nil
}

// call runs one client operation behind the spinner
func call(cmd *cobra.Command, label string, op func(context.Context) (*toon.Response, error)) (*toon.Response, error) {
	var resp *toon.Response
	err := ui.RunWithSpinner(cmd.Context(), label, func(ctx context.Context) error {
		var err error
		resp, err = op(ctx)
		return err
	})
	return resp, err
}

// reportedError marks a failure that was already rendered for the user
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// report renders a failed operation and returns it as a reportedError
func report(title string, err error) error {
	short := toon.GetShortErrorMessage(err)
	logging.Error("Operation failed", zap.String("operation", title), zap.Error(err))

	if outputFormat == "detailed" {
		ui.NewPrinter(os.Stderr).PrintError(title+": "+short, err, toon.GetTroubleshootingHint(err))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", short, err)
	}

	return &reportedError{err: err}
}

// printJSON pretty-prints a response body
func printJSON(resp *toon.Response) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, resp.Body, "", "  "); err != nil {
		return fmt.Errorf("failed to format JSON: %w", err)
	}
	fmt.Println(buf.String())
	return nil
}

// dataDetails lists the top-level fields of a response in key order
func dataDetails(data map[string]any) []ui.Detail {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	details := make([]ui.Detail, 0, len(keys))
	for _, k := range keys {
		details = append(details, ui.Detail{Key: k, Value: fmt.Sprint(data[k])})
	}
	return details
}

// appVersionCmd fetches the web app version
var appVersionCmd = &cobra.Command{
	Use:   "app-version",
	Short: "Show the Toon web service version",
	Long: `Fetch the version information published by the Toon web service.

This call does not log in. The configured credentials are still required
because the client is built from them.`,
	Example: `  toonctl app-version
  toonctl app-version --format json`,
	Args: cobra.NoArgs,
	RunE: runAppVersion,
}

func runAppVersion(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	resp, err := call(cmd, "Fetching service version", client.GetVersion)
	if err != nil {
		return report("Could not fetch version", err)
	}

	switch outputFormat {
	case "json":
		return printJSON(resp)
	case "compact":
		for _, d := range dataDetails(resp.Data) {
			fmt.Printf("%s=%s\n", d.Key, d.Value)
		}
	default:
		ui.NewPrinter(os.Stdout).PrintSuccess("Toon service version", dataDetails(resp.Data))
	}
	return nil
}

// presetCmd switches the active temperature preset
var presetCmd = &cobra.Command{
	Use:   "preset <name|id>",
	Short: "Activate a temperature preset",
	Long: `Activate one of the thermostat's temperature presets.

Presets:
  comfort  (0)
  home     (1)
  sleep    (2)
  away     (3)

A numeric id is passed to the thermostat unchanged.`,
	Example: `  toonctl preset comfort
  toonctl preset 2`,
	Args: cobra.ExactArgs(1),
	RunE: runPreset,
}

func runPreset(cmd *cobra.Command, args []string) error {
	preset, err := toon.ParsePreset(args[0])
	if err != nil {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}

	resp, err := call(cmd, "Activating preset "+preset.String(), func(ctx context.Context) (*toon.Response, error) {
		return client.SetPreset(ctx, preset)
	})
	if err != nil {
		return report("Could not activate preset", err)
	}

	switch outputFormat {
	case "json":
		return printJSON(resp)
	case "compact":
		fmt.Printf("preset=%s\n", preset)
	default:
		ui.NewPrinter(os.Stdout).PrintSuccess("Preset activated", []ui.Detail{
			{Key: "Preset", Value: fmt.Sprintf("%s (%d)", preset, int(preset))},
		})
	}
	return nil
}

// temperatureCmd sets a manual target temperature
var temperatureCmd = &cobra.Command{
	Use:   "temperature <celsius>",
	Short: "Set a manual target temperature",
	Long: `Set a manual target temperature in degrees Celsius.

The value is sent in hundredths of a degree (18.47 becomes 1847). The
thermostat display rounds to its own precision. Use --centi to pass the
raw value instead.`,
	Example: `  toonctl temperature 19.5
  toonctl temperature --centi 1847`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTemperature,
}

func init() {
	temperatureCmd.Flags().IntVar(&centiFlag, "centi", 0, "Target in hundredths of a degree Celsius (1847 = 18.47°C)")
}

// temperatureArg resolves the target from the argument or --centi
func temperatureArg(centiSet bool, centi int, args []string) (int, error) {
	if centiSet {
		if len(args) > 0 {
			return 0, fmt.Errorf("give either <celsius> or --centi, not both")
		}
		return centi, nil
	}
	if len(args) != 1 {
		return 0, fmt.Errorf("a temperature is required (e.g. 19.5 or --centi 1950)")
	}
	return toon.ParseCelsius(args[0])
}

func runTemperature(cmd *cobra.Command, args []string) error {
	centi, err := temperatureArg(cmd.Flags().Changed("centi"), centiFlag, args)
	if err != nil {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}

	label := "Setting temperature to " + toon.FormatCentiCelsius(centi)
	resp, err := call(cmd, label, func(ctx context.Context) (*toon.Response, error) {
		return client.SetTemperature(ctx, centi)
	})
	if err != nil {
		return report("Could not set temperature", err)
	}

	switch outputFormat {
	case "json":
		return printJSON(resp)
	case "compact":
		fmt.Printf("setpoint=%s\n", toon.FormatCentiCelsius(centi))
	default:
		ui.NewPrinter(os.Stdout).PrintSuccess("Temperature set", []ui.Detail{
			{Key: "Target", Value: toon.FormatCentiCelsius(centi)},
			{Key: "Sent value", Value: fmt.Sprintf("%d", centi)},
		})
	}
	return nil
}

// stateCmd shows the thermostat state
var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show the thermostat state",
	Long: `Fetch the current thermostat state.

The detailed and compact formats show the measured temperature, the target,
the active preset and the schedule. The json format prints the full state
as returned by the service.`,
	Example: `  toonctl state
  toonctl state --format compact
  toonctl state --format json`,
	Args: cobra.NoArgs,
	RunE: runState,
}

func runState(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	resp, err := call(cmd, "Fetching thermostat state", client.GetState)
	if err != nil {
		return report("Could not fetch state", err)
	}

	summary := toon.SummarizeState(resp)

	switch outputFormat {
	case "json":
		return printJSON(resp)
	case "compact":
		fmt.Println(summary.FormatCompact())
	default:
		ui.NewPrinter(os.Stdout).PrintSuccess("Thermostat state", stateDetails(summary))
	}
	return nil
}

// stateDetails lists the summary fields the state reported
func stateDetails(s toon.StateSummary) []ui.Detail {
	var details []ui.Detail
	if s.HasCurrentTemp {
		details = append(details, ui.Detail{Key: "Temperature", Value: toon.FormatCentiCelsius(s.CurrentTemp)})
	}
	if s.HasCurrentSetpoint {
		details = append(details, ui.Detail{Key: "Target", Value: toon.FormatCentiCelsius(s.CurrentSetpoint)})
	}
	if label := s.PresetLabel(); label != "" {
		details = append(details, ui.Detail{Key: "Preset", Value: label})
	}
	if label := s.ProgramLabel(); label != "" {
		details = append(details, ui.Detail{Key: "Schedule", Value: label})
	}
	if s.StateCount > 0 {
		details = append(details, ui.Detail{Key: "Presets defined", Value: fmt.Sprintf("%d", s.StateCount)})
	}
	return details
}

// configCmd groups the config file subcommands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change the configuration file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after environment and flag overrides.

The password is never stored and is not shown.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}

	path := configPath
	if path == "" {
		if path, err = config.GetConfigPath(); err != nil {
			return err
		}
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = toon.DefaultEndpoint + " (default)"
	}
	password := "prompted when needed"
	if os.Getenv(config.EnvPassword) != "" {
		password = "from " + config.EnvPassword
	}

	details := []ui.Detail{
		{Key: "File", Value: path},
		{Key: "Username", Value: cfg.Username},
		{Key: "Password", Value: password},
		{Key: "Endpoint", Value: endpoint},
		{Key: "Timeout", Value: time.Duration(cfg.Timeout).String()},
		{Key: "Log level", Value: cfg.LogLevel},
	}
	if cfg.Referer != "" {
		details = append(details, ui.Detail{Key: "Referer", Value: cfg.Referer})
	}

	switch outputFormat {
	case "json":
		data, err := json.MarshalIndent(map[string]string{
			"file":      path,
			"username":  cfg.Username,
			"endpoint":  cfg.Endpoint,
			"referer":   cfg.Referer,
			"timeout":   time.Duration(cfg.Timeout).String(),
			"log_level": cfg.LogLevel,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(data))
	case "compact":
		for _, d := range details {
			fmt.Printf("%s: %s\n", d.Key, d.Value)
		}
	default:
		ui.NewPrinter(os.Stdout).PrintSuccess("Configuration", details)
	}
	return nil
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting in the configuration file",
	Long: `Change one setting in the configuration file.

Keys: username, endpoint, referer, timeout, log_level.
The timeout accepts a duration ("5s") or milliseconds ("5000").`,
	Example: `  toonctl config set username johndoe
  toonctl config set timeout 15s`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	// Only file values are saved, never env or flag overrides
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Set(args[0], args[1]); err != nil {
		return err
	}
	if err := cfg.Save(configPath); err != nil {
		return err
	}

	if outputFormat == "detailed" {
		ui.NewPrinter(os.Stdout).PrintSuccess("Setting saved", []ui.Detail{
			{Key: args[0], Value: args[1]},
		})
	}
	return nil
}
