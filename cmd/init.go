package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// starterConfig mirrors the keys config.Load reads. Tagged separately because
// the config structs carry mapstructure tags for viper, not yaml tags.
type starterConfig struct {
	Store struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"store"`
	Places struct {
		APIKey string `yaml:"api_key"`
	} `yaml:"places"`
	Discovery struct {
		CacheTTL           string `yaml:"cache_ttl"`
		MaxProviderResults int    `yaml:"max_provider_results"`
		ExportDir          string `yaml:"export_dir"`
	} `yaml:"discovery"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Long:  "Writes a config.yaml with the default settings, ready to be edited with a Places API key.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, _ := cmd.Flags().GetString("path")
		force, _ := cmd.Flags().GetBool("force")

		if !force {
			if _, err := os.Stat(path); err == nil {
				return eris.Errorf("%s already exists, use --force to overwrite", path)
			}
		}

		var sc starterConfig
		sc.Store.Driver = "sqlite"
		sc.Store.DSN = "thriftscout.db"
		sc.Places.APIKey = ""
		sc.Discovery.CacheTTL = "24h"
		sc.Discovery.MaxProviderResults = 60
		sc.Discovery.ExportDir = "exports"
		sc.Server.Addr = ":8080"
		sc.Log.Level = "info"
		sc.Log.Format = "json"

		data, err := yaml.Marshal(sc)
		if err != nil {
			return eris.Wrap(err, "marshal config")
		}

		if err := os.WriteFile(path, data, 0o644); err != nil {
			return eris.Wrap(err, "write config")
		}

		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

func init() {
	initCmd.Flags().String("path", "config.yaml", "where to write the config file")
	initCmd.Flags().Bool("force", false, "overwrite an existing file")
	rootCmd.AddCommand(initCmd)
}
