package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bnema/vidpipe/internal/application/usecase"
	"github.com/bnema/vidpipe/internal/cli/styles"
	"github.com/bnema/vidpipe/internal/infrastructure/config"
)

var (
	configKeysJSON    bool
	configKeysSection string
	configSchemaOut   string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
	Long:  `Show the effective configuration, its keys and its JSON schema.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as TOML",
	RunE:  runConfigShow,
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List every configuration key with its default",
	RunE:  runConfigKeys,
}

var configSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of the config file",
	Long: `Print the JSON schema of config.toml. With --write the schema is saved
next to the config file (or at the given path) for editor completion.`,
	RunE: runConfigSchema,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file in use",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd, configKeysCmd, configSchemaCmd, configPathCmd)
	configKeysCmd.Flags().BoolVar(&configKeysJSON, "json", false, "output as JSON")
	configKeysCmd.Flags().StringVarP(&configKeysSection, "section", "s", "", "only keys of this section (video, limits, logging, simulation)")
	configSchemaCmd.Flags().StringVar(&configSchemaOut, "write", "", "write the schema to a file instead of stdout")
	configSchemaCmd.Flags().Lookup("write").NoOptDefVal = "-"
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	app := GetApp()
	if app == nil {
		return fmt.Errorf("app not initialized")
	}
	return config.Encode(cmd.OutOrStdout(), app.Config)
}

func runConfigKeys(cmd *cobra.Command, _ []string) error {
	app := GetApp()
	if app == nil {
		return fmt.Errorf("app not initialized")
	}

	uc := usecase.NewGetConfigSchemaUseCase(config.NewSchemaProvider())
	out, err := uc.Execute(app.Ctx(), usecase.GetConfigSchemaInput{Section: configKeysSection})
	if err != nil {
		return err
	}
	if len(out.Keys) == 0 {
		return fmt.Errorf("no configuration keys in section %q", configKeysSection)
	}

	renderer := styles.NewConfigSchemaRenderer(app.Theme)
	if configKeysJSON {
		js, err := renderer.RenderJSON(out.Keys)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), js)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderer.Render(out.Keys))
	return nil
}

func runConfigSchema(cmd *cobra.Command, _ []string) error {
	app := GetApp()
	if app == nil {
		return fmt.Errorf("app not initialized")
	}

	if configSchemaOut == "" {
		data, err := config.GenerateSchema()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	path := configSchemaOut
	if path == "-" {
		dir, err := config.GetConfigDir()
		if err != nil {
			return fmt.Errorf("resolve config directory: %w", err)
		}
		path = filepath.Join(dir, "config.schema.json")
	}
	if err := config.WriteSchemaFile(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote schema to %s\n", path)
	return nil
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	app := GetApp()
	if app == nil {
		return fmt.Errorf("app not initialized")
	}
	path := app.Manager.GetConfigFile()
	if path == "" {
		path = "(none, using defaults)"
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
