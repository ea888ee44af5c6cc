package main

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"

	"github.com/cykyes/textwire/frame"
	"github.com/cykyes/textwire/transport"
)

func (a *app) udpCmd() *cobra.Command {
	var (
		timeout time.Duration
		reply   string
		count   int
	)
	cmd := &cobra.Command{
		Use:   "udp <listen-addr>",
		Short: "Wait for UDP datagrams with an optional deadline",
		Long: `Listen on listen-addr and print each datagram as "sender: text".
With --timeout every receive gives up after that long; --reply answers
each sender.`,
		Example: `  textwire udp 127.0.0.1:9999 --timeout 2s --reply ACK`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := transport.ListenUDP(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer conn.Close()
			a.logger.Info("waiting for datagrams on %s", conn.LocalAddr())

			d := frame.NewDatagram(conn, a.frame)
			out := cmd.OutOrStdout()

			for i := 0; count == 0 || i < count; i++ {
				msg, from, res := receiveDatagram(cmd.Context(), d, timeout)
				switch {
				case res.OK():
				case res.TimedOut():
					return fmt.Errorf("no datagram within %v", timeout)
				case res.Status == frame.StatusCanceled:
					return nil
				default:
					return resultErr("receive", res)
				}

				fmt.Fprintf(out, "%s: %s\n", from, msg)
				if reply != "" {
					if err := resultErr("reply", d.SendTo(reply, from)); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "give up a receive after this long (0 waits forever)")
	cmd.Flags().StringVarP(&reply, "reply", "r", "", "datagram to send back to each sender")
	cmd.Flags().IntVarP(&count, "count", "n", 1, "datagrams to receive, 0 for no limit")
	return cmd
}

// receiveDatagram waits at most timeout when it is positive, otherwise
// until a datagram arrives or ctx is canceled.
func receiveDatagram(ctx context.Context, d *frame.Datagram, timeout time.Duration) (string, net.Addr, frame.Result) {
	if timeout > 0 {
		return d.ReceiveWithDeadline(timeout)
	}
	return d.ReceiveContext(ctx)
}
