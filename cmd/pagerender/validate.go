package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pagerender/pagerender/internal/config"
	"github.com/pagerender/pagerender/internal/schemas"
)

var validateSchema string

var validateConfigCmd = &cobra.Command{
	Use:   "validate-config <config.json>",
	Short: "Check a render config file without rendering",
	Long: `Checks a render config file against the built-in JSON Schema and the value rules
applied by "render --config". With --schema, the file is checked against that schema file instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateConfigFile(args[0], validateSchema); err != nil {
			return err
		}
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s: valid\n", args[0])
		return err
	},
}

func init() {
	validateConfigCmd.Flags().StringVar(&validateSchema, "schema", "", "Path to a JSON Schema file to check against")
	rootCmd.AddCommand(validateConfigCmd)
}

// validateConfigFile checks path against schemaPath, or against the embedded
// render config schema and value rules when schemaPath is empty.
func validateConfigFile(path, schemaPath string) error {
	if schemaPath != "" {
		if err := schemas.ValidateJSON(schemaPath, path); err != nil {
			return fmt.Errorf("%s does not match %s: %w", path, schemaPath, err)
		}
		return nil
	}

	_, err := config.LoadConfig(path)
	return err
}
