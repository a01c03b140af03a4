package cli

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var configSchema string

// ValidationError is one schema violation in a configuration file.
type ValidationError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds the outcome of a validate run.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config.yaml>",
		Short: "Validate an embed configuration file",
		Long: `Validate a beacon embed configuration YAML against the SDK's schema.

Checks required fields, value ranges, and the platform name, and rejects
unknown fields so typos fail loudly before the snippet ships.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	data, err := os.ReadFile(path)
	if err != nil {
		formatter.Error(ErrCodeNotFound, fmt.Sprintf("cannot read config file: %v", err), nil)
		return NewExitError(ExitCommandError, "config file not readable")
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		formatter.Error(ErrCodeParse, fmt.Sprintf("cannot parse YAML: %v", err), nil)
		return NewExitError(ExitFailure, "config file is not valid YAML")
	}
	if raw == nil {
		raw = map[string]any{}
	}

	validationErrors := validateConfig(raw)
	if len(validationErrors) > 0 {
		result := ValidationResult{Valid: false, Errors: validationErrors}
		if opts.Format == "json" {
			formatter.Success("", result)
		} else {
			for _, ve := range validationErrors {
				fmt.Fprintf(cmd.OutOrStdout(), "Error [%s]: %s\n", ErrCodeSchema, ve.Message)
			}
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%d validation error(s)", len(validationErrors)))
	}

	formatter.VerboseLog("Validated %s against embedded schema", path)
	return formatter.Success("Configuration is valid", ValidationResult{Valid: true})
}

// validateConfig unifies the parsed configuration with the closed #Config
// definition and collects every violation.
func validateConfig(raw map[string]any) []ValidationError {
	ctx := cuecontext.New()

	schema := ctx.CompileString(configSchema)
	if err := schema.Err(); err != nil {
		return []ValidationError{{Field: "schema", Message: err.Error()}}
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))
	if !def.Exists() {
		return []ValidationError{{Field: "schema", Message: "#Config definition missing"}}
	}

	unified := def.Unify(ctx.Encode(raw))
	err := unified.Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	var out []ValidationError
	for _, e := range cueerrors.Errors(err) {
		ve := ValidationError{Message: e.Error()}
		if path := e.Path(); len(path) > 0 {
			ve.Field = path[len(path)-1]
		}
		if pos := e.Position(); pos.IsValid() {
			ve.Line = pos.Line()
		}
		out = append(out, ve)
	}
	return out
}
