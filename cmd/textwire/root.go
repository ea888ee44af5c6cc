package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cykyes/textwire/frame"
	"github.com/cykyes/textwire/log"
	"github.com/cykyes/textwire/metrics"
	"github.com/cykyes/textwire/transport"
)

// app holds the global flags and the state built from them before a
// subcommand runs.
type app struct {
	cfgFile   string
	transport string
	lf        bool
	encoding  string
	verbose   bool
	logLevel  string
	stats     bool

	cfg    *Config
	logger log.Logger
	frame  *frame.Config
	tr     transport.Transport
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "textwire",
		Short: "Talk to line-based text protocols over TCP, KCP or UDP",
		Long: `textwire connects to servers that speak text protocols such as POP3,
SMTP, FTP or HTTP/1.0 and prints what they send, cut into lines, sentinel
terminated messages or whole streams. It can also wait for UDP datagrams
with a deadline and run a small line echo server.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.stats {
				printStats(cmd.ErrOrStderr(), metrics.Global.GetSnapshot())
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is ~/.textwire/config.yaml)")
	pf.StringVarP(&a.transport, "transport", "t", "", "stream transport: tcp or kcp")
	pf.BoolVar(&a.lf, "lf", false, "use LF line endings instead of CRLF")
	pf.StringVarP(&a.encoding, "encoding", "e", "", "text encoding (us-ascii, utf-8, iso-8859-1, ...)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "echo all traffic")
	pf.StringVar(&a.logLevel, "log-level", "", "debug, info, warn, error or silent")
	pf.BoolVar(&a.stats, "stats", false, "print framing counters to stderr when done")

	root.AddCommand(
		a.lineCmd(),
		a.untilCmd(),
		a.allCmd(),
		a.replyCmd(),
		a.udpCmd(),
		a.serveCmd(),
		a.stressCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	path := a.cfgFile
	if path == "" {
		path = DefaultConfigPath()
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("transport") {
		cfg.Transport = a.transport
	}
	if flags.Changed("lf") && a.lf {
		cfg.Terminator = "lf"
	}
	if flags.Changed("encoding") {
		cfg.Encoding = a.encoding
	}
	if flags.Changed("verbose") {
		cfg.Verbose = a.verbose
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	zl := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.TimeOnly}).
		Level(log.ZerologLevel(level)).
		With().Timestamp().Logger()
	a.logger = log.NewZerolog(zl)

	a.frame, err = cfg.FrameConfig(a.logger, cmd.OutOrStdout())
	if err != nil {
		return fmt.Errorf("invalid framing settings: %w", err)
	}

	kcfg, err := cfg.KCPConfig()
	if err != nil {
		return err
	}
	a.tr, err = transport.NewTransport(cfg.Transport,
		transport.WithKCPConfig(kcfg),
		transport.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}

	a.cfg = cfg
	return nil
}

// dial connects to addr with the configured transport and wraps the
// connection in a Framer.
func (a *app) dial(ctx context.Context, addr string) (*transport.Conn, *frame.Framer, error) {
	if a.cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.DialTimeout)
		defer cancel()
	}
	conn, err := a.tr.Dial(ctx, addr)
	if err != nil {
		return nil, nil, err
	}
	a.logger.Debug("connected to %s over %s", addr, a.tr.Protocol())
	return conn, frame.New(conn, a.frame), nil
}

// resultErr turns a failed Result into a command error.
func resultErr(op string, res frame.Result) error {
	if res.OK() {
		return nil
	}
	if res.Err != nil {
		return fmt.Errorf("%s: %s: %w", op, res.Status, res.Err)
	}
	return fmt.Errorf("%s: %s", op, res.Status)
}

// unescape interprets Go escapes such as \r\n in flag values.
func unescape(s string) (string, error) {
	out, err := strconv.Unquote(`"` + s + `"`)
	if err != nil {
		return "", fmt.Errorf("bad escape in %q: %w", s, err)
	}
	return out, nil
}

func printStats(w io.Writer, s metrics.Snapshot) {
	fmt.Fprintf(w, "lines=%d chunks=%d bytes_in=%d sentinels=%d sent=%d bytes_out=%d\n",
		s.LinesRead, s.ChunksRead, s.BytesReceived, s.SentinelMatches, s.MessagesSent, s.BytesSent)
	fmt.Fprintf(w, "datagrams_in=%d datagrams_out=%d late=%d closes=%d resets=%d timeouts=%d errors=%d\n",
		s.DatagramsReceived, s.DatagramsSent, s.LateDatagrams, s.Closes, s.Resets, s.Timeouts, s.Errors)
}
