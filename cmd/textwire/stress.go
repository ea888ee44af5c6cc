package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
)

// stressCounts is what a stress run reports.
type stressCounts struct {
	sessions   atomic.Int64
	dialFailed atomic.Int64
	badGreet   atomic.Int64
	mismatched atomic.Int64
	exchanges  atomic.Int64
}

func (a *app) stressCmd() *cobra.Command {
	var (
		total       int
		concurrency int
		lines       int
		hold        time.Duration
	)
	cmd := &cobra.Command{
		Use:   "stress <addr>",
		Short: "Open many echo sessions against a textwire server",
		Long: `Dial addr --total times using --concurrency workers. Every session
expects the echo greeting, sends --lines requests that must come back
unchanged, optionally holds the connection and then sends QUIT.`,
		Example: `  textwire stress 127.0.0.1:7000 --total 500 --concurrency 50 --lines 10`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if total < 1 || lines < 0 {
				return fmt.Errorf("--total must be at least 1 and --lines not negative")
			}
			workers := concurrency
			if workers < 1 {
				workers = 1
			}
			if workers > total {
				workers = total
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "stress target: %s over %s\n", args[0], a.tr.Protocol())
			fmt.Fprintf(out, "total=%d concurrency=%d lines=%d hold=%s\n", total, workers, lines, hold)

			var counts stressCounts
			start := time.Now()
			jobs := make(chan int, total)
			var wg sync.WaitGroup
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for id := range jobs {
						a.stressSession(cmd.Context(), args[0], id, lines, hold, &counts)
					}
				}()
			}
			for i := 0; i < total; i++ {
				jobs <- i
			}
			close(jobs)
			wg.Wait()

			fmt.Fprintf(out, "elapsed=%s\n", time.Since(start).Round(time.Millisecond))
			fmt.Fprintf(out, "sessions=%d dial-failed=%d bad-greeting=%d mismatched=%d exchanges=%d\n",
				counts.sessions.Load(), counts.dialFailed.Load(), counts.badGreet.Load(),
				counts.mismatched.Load(), counts.exchanges.Load())

			if failed := counts.dialFailed.Load() + counts.badGreet.Load() + counts.mismatched.Load(); failed > 0 {
				return fmt.Errorf("%d of %d sessions failed", failed, total)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&total, "total", 100, "sessions to open")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 10, "sessions open at once")
	cmd.Flags().IntVar(&lines, "lines", 5, "echo requests per session")
	cmd.Flags().DurationVar(&hold, "hold", 0, "keep each session open this long before QUIT")
	return cmd
}

func (a *app) stressSession(ctx context.Context, addr string, id, lines int, hold time.Duration, c *stressCounts) {
	conn, f, err := a.dial(ctx, addr)
	if err != nil {
		a.logger.Debug("session %d: dial: %v", id, err)
		c.dialFailed.Add(1)
		return
	}
	defer conn.Close()
	c.sessions.Add(1)

	if greet, res := f.ReadLine(); !res.OK() || greet != echoGreeting {
		a.logger.Debug("session %d: greeting %q (%s)", id, greet, res)
		c.badGreet.Add(1)
		return
	}

	for i := 0; i < lines; i++ {
		want := fmt.Sprintf("session %d line %d", id, i)
		got, res := f.Request(want)
		if !res.OK() || got != want {
			a.logger.Debug("session %d: sent %q, got %q (%s)", id, want, got, res)
			c.mismatched.Add(1)
			return
		}
		c.exchanges.Add(1)
	}

	if hold > 0 {
		select {
		case <-time.After(hold):
		case <-ctx.Done():
		}
	}

	if bye, res := f.Request("QUIT"); res.OK() && !strings.HasPrefix(bye, "+OK") {
		a.logger.Warn("session %d: unexpected reply to QUIT: %q", id, bye)
	}
}
