package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/reloquent/schemair/internal/config"
	"github.com/reloquent/schemair/internal/dialect"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Display the resolved config (secrets masked)",
	Long: `Load the config file, resolve secret references and defaults, validate it
and print the result with the password masked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		d, err := dialect.Get(cfg.Source.Dialect)
		if err != nil {
			return err
		}

		data, err := yaml.Marshal(cfg.Masked())
		if err != nil {
			return fmt.Errorf("marshaling config: %w", err)
		}
		fmt.Print(string(data))
		fmt.Println()
		fmt.Printf("# driver: %s, schema: %s\n", d.DriverName(), d.DefaultSchema(cfg.Source))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
