package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reloquent/schemair/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file interactively",
	Long:  `Walk through prompts to create a schemair configuration file at ~/.schemair/schemair.yaml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reader := bufio.NewReader(os.Stdin)

		fmt.Println("schemair configuration setup")
		fmt.Println("============================")
		fmt.Println()

		fmt.Println("Source database")
		fmt.Println("---------------")
		dialectName := prompt(reader, "Dialect ("+strings.Join(config.Dialects, "/")+")", "postgresql")
		host := prompt(reader, "Host", "localhost")
		portStr := prompt(reader, "Port", defaultPort(dialectName))
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid port: %s", portStr)
		}
		database := prompt(reader, "Database (service name for Oracle)", "")
		schema := prompt(reader, "Schema (leave empty for default)", defaultSchema(dialectName))
		username := prompt(reader, "Username", "")
		fmt.Printf("  Password is read from $%s or a ${VAULT:...} / ${AWS_SM:...} reference.\n", config.PasswordEnv)
		password := prompt(reader, "Password reference", "${ENV:"+config.PasswordEnv+"}")
		fmt.Println()

		fmt.Println("Output")
		fmt.Println("------")
		outDir := prompt(reader, "Artifact directory", "output/ir")
		genCmd := prompt(reader, "Generator command ({table} and {artifact} are substituted, empty for none)", "")
		fmt.Println()

		cfg := &config.Config{
			Version: config.CurrentVersion,
			Source: config.SourceConfig{
				Dialect:  dialectName,
				Host:     host,
				Port:     port,
				Database: database,
				Schema:   schema,
				Username: username,
				Password: password,
			},
			Output: config.OutputConfig{Directory: outDir},
		}
		if genCmd != "" {
			cfg.Generator.Command = strings.Fields(genCmd)
		}

		cfgPath := config.ExpandHome(config.DefaultPath)
		if cfgFile != "" {
			cfgPath = cfgFile
		}

		if err := cfg.Save(cfgPath); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}

		fmt.Printf("Config written to %s\n", cfgPath)
		fmt.Println()
		fmt.Println("Next steps:")
		fmt.Println("  schemair config        Show the resolved configuration")
		fmt.Println("  schemair               Process every table in the schema")
		fmt.Println("  schemair USERS ORDERS  Process the named tables only")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func prompt(reader *bufio.Reader, label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("  %s [%s]: ", label, defaultVal)
	} else {
		fmt.Printf("  %s: ", label)
	}
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultVal
	}
	return input
}

func defaultPort(dialectName string) string {
	switch dialectName {
	case "oracle":
		return "1521"
	case "sqlserver":
		return "1433"
	default:
		return "5432"
	}
}

func defaultSchema(dialectName string) string {
	switch dialectName {
	case "postgresql":
		return "public"
	case "sqlserver":
		return "dbo"
	default:
		return ""
	}
}
