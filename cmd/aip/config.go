package main

import (
	"os"

	"github.com/aipdata/aip/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Show the effective configuration after merging defaults, the config file
and AIP_* environment variables. S3 credentials are never printed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := mustLoadConfig()

		path := configPath
		if path == "" {
			path = config.Path()
		}

		if humanOutput {
			shown := *cfg
			shown.S3.AccessKey, shown.S3.SecretKey = redact(shown.S3.AccessKey), redact(shown.S3.SecretKey)
			outputHuman("# %s\n", path)
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(shown)
		}
		return outputJSON(struct {
			Path string `json:"path"`
			*config.Config
		}{path, cfg})
	},
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}
