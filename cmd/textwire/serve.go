package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cykyes/textwire/frame"
	"github.com/cykyes/textwire/log"
	"github.com/cykyes/textwire/transport"
)

const (
	echoGreeting = "+OK textwire echo ready"
	echoBye      = "+OK bye"
)

func (a *app) serveCmd() *cobra.Command {
	var maxSessions int
	cmd := &cobra.Command{
		Use:   "serve <listen-addr>",
		Short: "Run a line echo server",
		Long: `Accept connections on listen-addr and echo every line back. Each
session is greeted with "` + echoGreeting + `" and ends on QUIT or when the
client goes away. At most --max-sessions sessions run at once; further
clients wait in the accept queue.`,
		Example: `  textwire serve 127.0.0.1:7000 --max-sessions 8
  textwire --transport kcp serve 0.0.0.0:7000`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if maxSessions < 1 {
				return fmt.Errorf("--max-sessions must be at least 1")
			}
			ctx := cmd.Context()
			ln, err := a.tr.Listen(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "listening on %s/%s\n", a.tr.Protocol(), ln.Addr())
			return a.serve(ctx, ln, maxSessions)
		},
	}
	cmd.Flags().IntVar(&maxSessions, "max-sessions", 16, "sessions served concurrently")
	return cmd
}

// serve accepts until ctx is done, then waits for running sessions.
func (a *app) serve(ctx context.Context, ln transport.Listener, maxSessions int) error {
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	g := new(errgroup.Group)
	g.SetLimit(maxSessions)

	var acceptErr error
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() == nil {
				acceptErr = fmt.Errorf("accept: %w", err)
			}
			break
		}
		g.Go(func() error {
			a.echo(ctx, conn)
			return nil
		})
	}

	g.Wait()
	return acceptErr
}

// echo runs one session with its own Framer, logging under the peer address.
func (a *app) echo(ctx context.Context, conn *transport.Conn) {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	peer := conn.RemoteAddr()
	a.logger.Info("session %s started", peer)

	cfg := *a.frame
	cfg.Logger = log.Tagged(a.logger, peer.String())
	f := frame.New(conn, &cfg)
	if res := f.Send(echoGreeting); !res.OK() {
		return
	}
	for {
		line, res := f.ReadLine()
		if !res.OK() {
			a.logger.Info("session %s ended: %s", peer, res.Status)
			return
		}
		if strings.EqualFold(strings.TrimSpace(line), "QUIT") {
			f.Send(echoBye)
			a.logger.Info("session %s quit", peer)
			return
		}
		if res := f.Send(line); !res.OK() {
			return
		}
	}
}
