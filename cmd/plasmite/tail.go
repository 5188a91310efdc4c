package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var tailArgs struct {
	Since   uint64
	Max     int
	Follow  bool
	WaitSec int
}

var tailCmd = &cobra.Command{
	Use:   "tail NAME",
	Short: "Print messages in order, optionally following new appends",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
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

		stream := p.OpenStream(tailArgs.Since)
		ctx := context.Background()

		for {
			msgs, err := stream.Next(tailArgs.Max)
			if err != nil {
				return err
			}
			for _, m := range msgs {
				fmt.Printf("%d\t%d\t%s\n", m.Seq, m.TimestampNs, m.Payload)
			}
			if !tailArgs.Follow {
				return nil
			}
			if len(msgs) == 0 {
				waitCtx, cancel := context.WithTimeout(ctx, time.Duration(tailArgs.WaitSec)*time.Second)
				err := stream.Wait(waitCtx)
				cancel()
				if err != nil && err != context.DeadlineExceeded {
					return err
				}
			}
		}
	},
}

func init() {
	tailCmd.Flags().Uint64Var(&tailArgs.Since, "since", 0, "start after this sequence number")
	tailCmd.Flags().IntVar(&tailArgs.Max, "max", 100, "max messages per batch")
	tailCmd.Flags().BoolVarP(&tailArgs.Follow, "follow", "f", false, "keep waiting for new messages")
	tailCmd.Flags().IntVar(&tailArgs.WaitSec, "wait-seconds", 5, "how long to wait between follow polls before re-checking")
}
