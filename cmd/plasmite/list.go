package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listArgs struct {
	Verbose bool
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List pool names in the registry directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, log, err := openRegistry()
		if err != nil {
			return err
		}
		defer log.Sync()

		names, err := registry.List()
		if err != nil {
			return err
		}
		for _, n := range names {
			if !listArgs.Verbose {
				fmt.Println(n)
				continue
			}
			p, err := registry.Open("name:" + n)
			if err != nil {
				return err
			}
			s, err := p.Stat()
			p.Close()
			if err != nil {
				return err
			}
			fmt.Printf("%s\toldest=%d\tnewest=%d\tcount=%d\tring_util=%.1f%%\tindex_load=%.2f\n",
				n, s.Oldest, s.Newest, s.MessageCount, s.RingUtilizationPct, s.IndexLoadFactor)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVarP(&listArgs.Verbose, "verbose", "v", false, "show per-pool stats")
}
