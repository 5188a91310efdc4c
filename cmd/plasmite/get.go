package main

import (
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get NAME SEQ",
	Short: "Print one message's payload to stdout",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		seq, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return err
		}

		registry, log, err := openRegistry()
		if err != nil {
			return err
		}
		defer log.Sync()

		p, err := registry.Open("name:" + args[0])
		if err != nil {
			return err
		}
		defer p.Close()

		msg, err := p.Get(seq)
		if err != nil {
			return err
		}

		_, err = os.Stdout.Write(msg.Payload)
		return err
	},
}
