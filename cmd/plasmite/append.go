package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sandover/plasmite/pool"
)

var appendArgs struct {
	Flush bool
}

var appendCmd = &cobra.Command{
	Use:   "append NAME",
	Short: "Append stdin to a pool as a single message",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, log, err := openRegistry()
		if err != nil {
			return err
		}
		defer log.Sync()

		payload, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}

		p, err := registry.Open("name:" + args[0])
		if err != nil {
			return err
		}
		defer p.Close()

		durability := pool.Fast
		if appendArgs.Flush {
			durability = pool.Flush
		}

		res, err := p.Append(context.Background(), payload, durability)
		if err != nil {
			return err
		}

		fmt.Printf("seq=%d timestamp_ns=%d\n", res.Seq, res.TimestampNs)
		return nil
	},
}

func init() {
	appendCmd.Flags().BoolVar(&appendArgs.Flush, "flush", false, "fsync before and after publishing (spec Flush durability)")
}
