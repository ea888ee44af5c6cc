package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cykyes/textwire/frame"
	"github.com/cykyes/textwire/protocol"
)

func (a *app) lineCmd() *cobra.Command {
	var (
		send        string
		expect      string
		count       int
		skip        int
		untilLine   string
		untilSuffix string
	)
	cmd := &cobra.Command{
		Use:   "line <addr>",
		Short: "Read lines from a server",
		Long: `Connect to addr and print lines. By default one line is printed;
--count prints more, --until-line prints every line up to a marker line and
--until-suffix prints the first line ending with a suffix.`,
		Example: `  textwire line pop.example.com:110 --send "STAT" --skip 1
  textwire line localhost:7000 --expect "login: " --send guest --count 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("--count must be at least 1")
			}
			conn, f, err := a.dial(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer conn.Close()
			out := cmd.OutOrStdout()

			if send != "" {
				msg, err := unescape(send)
				if err != nil {
					return err
				}
				if expect != "" {
					prompt, err := unescape(expect)
					if err != nil {
						return err
					}
					if err := resultErr("wait for prompt", f.SendAfter(prompt, msg)); err != nil {
						return err
					}
				} else if err := resultErr("send", f.Send(msg)); err != nil {
					return err
				}
			}

			if skip > 0 {
				if err := resultErr("skip", f.SkipLines(skip)); err != nil {
					return err
				}
			}

			switch {
			case untilLine != "":
				lines, res := f.ReadLinesUntil(untilLine)
				for _, line := range lines {
					fmt.Fprintln(out, line)
				}
				return resultErr("read lines", res)
			case untilSuffix != "":
				line, res := f.ReadUntilLineSuffix(untilSuffix)
				if err := resultErr("read lines", res); err != nil {
					return err
				}
				fmt.Fprintln(out, line)
				return nil
			}

			for i := 0; i < count; i++ {
				line, res := f.ReadLine()
				if err := resultErr("read line", res); err != nil {
					return err
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&send, "send", "s", "", "line to send after connecting (escapes allowed)")
	cmd.Flags().StringVar(&expect, "expect", "", "wait for a chunk ending with this prompt before sending")
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of lines to print")
	cmd.Flags().IntVar(&skip, "skip", 0, "lines to discard before printing")
	cmd.Flags().StringVar(&untilLine, "until-line", "", "print lines until one equals this marker")
	cmd.Flags().StringVar(&untilSuffix, "until-suffix", "", "print the first line ending with this suffix")
	return cmd
}

func (a *app) untilCmd() *cobra.Command {
	var (
		send string
		dot  bool
	)
	cmd := &cobra.Command{
		Use:   "until <addr> [sentinel]",
		Short: "Receive until the data ends with a sentinel",
		Long: `Connect to addr and receive chunks until one ends with sentinel
(escapes allowed). Without a sentinel, or with --dot, the POP3 end-of-body
line is used.`,
		Example: `  textwire until pop.example.com:110 --send "LIST" --dot
  textwire until localhost:7000 'END\r\n'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, f, err := a.dial(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer conn.Close()

			if send != "" {
				req, err := unescape(send)
				if err != nil {
					return err
				}
				if err := resultErr("send", f.Send(req)); err != nil {
					return err
				}
			}

			var (
				msg string
				res frame.Result
			)
			if dot || len(args) == 1 {
				msg, res = f.ReceiveUntilDot()
			} else {
				sentinel, err := unescape(args[1])
				if err != nil {
					return err
				}
				msg, res = f.ReceiveUntil(sentinel)
			}
			// print what arrived even when the sentinel never did
			fmt.Fprint(cmd.OutOrStdout(), msg)
			return resultErr("receive", res)
		},
	}
	cmd.Flags().StringVarP(&send, "send", "s", "", "line to send after connecting (escapes allowed)")
	cmd.Flags().BoolVar(&dot, "dot", false, "stop at the POP3 end-of-body line")
	return cmd
}

func (a *app) allCmd() *cobra.Command {
	var (
		send string
		raw  bool
	)
	cmd := &cobra.Command{
		Use:   "all <addr>",
		Short: "Receive everything until the server closes",
		Example: `  textwire all example.com:80 --raw --send 'GET / HTTP/1.0\r\nHost: example.com\r\n\r\n'`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, f, err := a.dial(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer conn.Close()

			if send != "" {
				req, err := unescape(send)
				if err != nil {
					return err
				}
				var res frame.Result
				if raw {
					res = f.SendRaw(req)
				} else {
					res = f.Send(req)
				}
				if err := resultErr("send", res); err != nil {
					return err
				}
			}

			msg, res := f.ReceiveAll()
			if err := resultErr("receive", res); err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), msg)
			return nil
		},
	}
	cmd.Flags().StringVarP(&send, "send", "s", "", "request to send after connecting (escapes allowed)")
	cmd.Flags().BoolVar(&raw, "raw", false, "send the request without appending a line terminator")
	return cmd
}

func (a *app) replyCmd() *cobra.Command {
	var (
		send     string
		greeting bool
	)
	cmd := &cobra.Command{
		Use:   "reply <addr>",
		Short: "Read SMTP or FTP numeric replies",
		Example: `  textwire reply smtp.example.com:25 --send "EHLO client.example.com"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, f, err := a.dial(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer conn.Close()
			out := cmd.OutOrStdout()

			if greeting {
				reply, res := protocol.ReadReply(f)
				if err := resultErr("read greeting", res); err != nil {
					return err
				}
				printReply(cmd, reply)
			}
			if send == "" {
				return nil
			}

			req, err := unescape(send)
			if err != nil {
				return err
			}
			if err := resultErr("send", f.Send(req)); err != nil {
				return err
			}
			reply, res := protocol.ReadReply(f)
			if err := resultErr("read reply", res); err != nil {
				return err
			}
			printReply(cmd, reply)
			if !reply.Positive() {
				fmt.Fprintf(out, "negative reply %d\n", reply.Code)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&send, "send", "s", "", "command to send (escapes allowed)")
	cmd.Flags().BoolVar(&greeting, "greeting", true, "read the server greeting first")
	return cmd
}

func printReply(cmd *cobra.Command, reply *protocol.Reply) {
	for _, line := range reply.Lines {
		fmt.Fprintf(cmd.OutOrStdout(), "%d %s\n", reply.Code, line)
	}
}
