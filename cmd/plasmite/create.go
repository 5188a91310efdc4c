package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sandover/plasmite/pool"
)

var createArgs struct {
	SizeBytes     uint64
	IndexCapacity uint64
	NoIndex       bool
}

var createCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a new pool file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer log.Sync()

		registry := registryWithLogger(cfg, log)

		sizeBytes := createArgs.SizeBytes
		if sizeBytes == 0 {
			sizeBytes = cfg.DefaultSizeBytes
		}

		p, err := registry.Create("name:"+args[0], pool.CreateOptions{
			SizeBytes:       sizeBytes,
			IndexCapacity:   createArgs.IndexCapacity,
			ExplicitNoIndex: createArgs.NoIndex,
		})
		if err != nil {
			return err
		}
		defer p.Close()

		fmt.Printf("created %s (%s)\n", args[0], p.Path())
		return nil
	},
}

func init() {
	createCmd.Flags().Uint64Var(&createArgs.SizeBytes, "size-bytes", 0, "total file size in bytes (0 = default_size_bytes from config)")
	createCmd.Flags().Uint64Var(&createArgs.IndexCapacity, "index-capacity", 0, "inline index slot count (0 = auto-size)")
	createCmd.Flags().BoolVar(&createArgs.NoIndex, "no-index", false, "disable the inline index (scan-only lookups)")
}
