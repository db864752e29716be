package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"

	"github.com/attacca/attacca/internal/config"
)

const defaultConfig = `# content server
server:
  # base URL of the content server
  url: ""
  # bearer token for API access
  token: ""

cache:
  # cache directory, empty for the platform default
  dir: ""
  # per-file fetch timeout in milliseconds
  fetch_timeout_ms: 12000

ui:
  theme: "default"
  show_artist: true
  # external viewer for cached files, empty for the system default
  viewer: ""

logging:
  # empty for the platform default log path
  file: ""
  # debug, info, warn, or error
  level: "info"
`

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Edit the attacca config file",
	Long:    "Edit the attacca config file. EDITOR determines which editor to use. If the config file doesn't exist, it will be created.",
	Example: "attacca config\nattacca config --config path/to/config.yaml",
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("attacca", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Args:  cobra.NoArgs,
	Run: func(*cobra.Command, []string) {
		if configFile != "" {
			fmt.Println(configFile)
			return
		}
		fmt.Println(config.ConfigFilePath())
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = config.ConfigFilePath()
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable to create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}

func init() {
	configCmd.AddCommand(configPathCmd)
}
