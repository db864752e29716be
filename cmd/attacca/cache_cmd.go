package main

import (
	"fmt"

	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/attacca/attacca/internal/config"
	"github.com/attacca/attacca/internal/logging"
	"github.com/attacca/attacca/internal/store"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the performance file cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache entry count and size on disk",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		st, err := openCacheStore()
		if err != nil {
			return err
		}
		defer st.Close()

		count, bytes := st.Stats()
		fmt.Printf("entries: %d\nsize:    %s\n", count, humanize.Bytes(uint64(bytes)))
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all cached files",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		st, err := openCacheStore()
		if err != nil {
			return err
		}
		defer st.Close()

		count, bytes := st.Stats()
		st.Clear()
		fmt.Printf("cleared %d entries (%s)\n", count, humanize.Bytes(uint64(bytes)))
		return nil
	},
}

func openCacheStore() (*store.Store, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	st, err := store.New(cfg.CacheDir(), logging.NullLogger())
	if err != nil {
		return nil, fmt.Errorf("opening cache store: %w", err)
	}
	return st, nil
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd)
}
