package frame

import (
	"bytes"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"
)

func TestReadLineCRLF(t *testing.T) {
	cfg, m := testConfig()
	f := New(newScript("HELLO\r\nWORLD\r\n"), cfg)

	for _, want := range []string{"HELLO", "WORLD"} {
		line, res := f.ReadLine()
		if !res.OK() {
			t.Fatalf("ReadLine: %v", res)
		}
		if line != want {
			t.Errorf("line want %q, got %q", want, line)
		}
	}

	line, res := f.ReadLine()
	if res.Status != StatusClosed {
		t.Errorf("status at end of stream want closed, got %v", res)
	}
	if line != "" {
		t.Errorf("line at end of stream should be empty, got %q", line)
	}

	snap := m.GetSnapshot()
	if snap.LinesRead != 2 || snap.BytesReceived != 14 {
		t.Errorf("counters wrong: lines=%d bytes=%d", snap.LinesRead, snap.BytesReceived)
	}
	if snap.Closes != 1 {
		t.Errorf("Closes want 1, got %d", snap.Closes)
	}
}

func TestReadLineCarriageReturnEndsLine(t *testing.T) {
	cfg, _ := testConfig()
	f := New(newScript("AB\rXCD\r\n"), cfg)

	line, _ := f.ReadLine()
	if line != "AB" {
		t.Errorf("first line want %q, got %q", "AB", line)
	}
	// X was consumed along with the carriage return.
	line, _ = f.ReadLine()
	if line != "CD" {
		t.Errorf("second line want %q, got %q", "CD", line)
	}
}

func TestReadLineLF(t *testing.T) {
	cfg, _ := testConfig(WithTerminator(LF))
	f := New(newScript("a\r\nb\n"), cfg)

	line, _ := f.ReadLine()
	if line != "a\r" {
		t.Errorf("LF mode keeps the carriage return: got %q", line)
	}
	line, _ = f.ReadLine()
	if line != "b" {
		t.Errorf("second line want %q, got %q", "b", line)
	}
}

func TestReadLineDoesNotReadPastTerminator(t *testing.T) {
	cfg, _ := testConfig()
	f := New(newScript("+OK ready\r\nREST OF DATA"), cfg)

	line, _ := f.ReadLine()
	if line != "+OK ready" {
		t.Fatalf("line want %q, got %q", "+OK ready", line)
	}

	chunk, res := f.ReceiveChunk()
	if !res.OK() || chunk != "REST OF DATA" {
		t.Errorf("bytes after the line should still be unread: %q (%v)", chunk, res)
	}
}

func TestReadLinePartialAtEnd(t *testing.T) {
	cfg, _ := testConfig()
	f := New(newScript("TAIL"), cfg)

	line, res := f.ReadLine()
	if !res.OK() || line != "TAIL" {
		t.Errorf("partial last line want (TAIL, ok), got (%q, %v)", line, res)
	}
	if _, res := f.ReadLine(); res.Status != StatusClosed {
		t.Errorf("next read want closed, got %v", res)
	}
}

func TestReadLineEmpty(t *testing.T) {
	cfg, _ := testConfig()
	f := New(newScript("\r\n", "\r"), cfg)

	for i := 0; i < 2; i++ {
		line, res := f.ReadLine()
		if !res.OK() || line != "" {
			t.Errorf("read %d: want empty ok line, got (%q, %v)", i, line, res)
		}
	}
}

func TestReadLineSingleByteReads(t *testing.T) {
	cfg, _ := testConfig()
	s := newScript("OK\r\nNEXT")
	f := New(s, cfg)

	f.ReadLine()
	// one Read per byte of "OK\r\n"
	if s.reads != 4 {
		t.Errorf("reads want 4, got %d", s.reads)
	}
}

func TestReadLineError(t *testing.T) {
	cfg, m := testConfig()
	s := newScript("PART")
	s.err = errors.New("boom")
	f := New(s, cfg)

	// the partial line survives only an orderly end of stream
	_, res := f.ReadLine()
	if res.Status != StatusError {
		t.Errorf("status want error, got %v", res)
	}
	if res.Err == nil || res.Err.Error() != "boom" {
		t.Errorf("Err should carry the cause, got %v", res.Err)
	}
	if m.GetSnapshot().Errors != 1 {
		t.Error("error not counted")
	}
}

func TestReceiveChunk(t *testing.T) {
	cfg, m := testConfig()
	big := strings.Repeat("x", 300)
	f := New(newScript(big), cfg)

	chunk, res := f.ReceiveChunk()
	if !res.OK() {
		t.Fatalf("ReceiveChunk: %v", res)
	}
	if len(chunk) != 256 {
		t.Errorf("chunk length want 256, got %d", len(chunk))
	}

	chunk, _ = f.ReceiveChunk()
	if len(chunk) != 44 {
		t.Errorf("remaining chunk length want 44, got %d", len(chunk))
	}

	if _, res := f.ReceiveChunk(); res.Status != StatusClosed {
		t.Errorf("want closed, got %v", res)
	}

	snap := m.GetSnapshot()
	if snap.ChunksRead != 2 || snap.BytesReceived != 300 {
		t.Errorf("counters wrong: chunks=%d bytes=%d", snap.ChunksRead, snap.BytesReceived)
	}
}

func TestReceiveChunkSize(t *testing.T) {
	cfg, _ := testConfig(WithChunkSize(4))
	f := New(newScript("abcdefgh"), cfg)

	chunk, _ := f.ReceiveChunk()
	if chunk != "abcd" {
		t.Errorf("chunk want %q, got %q", "abcd", chunk)
	}
}

func TestReceiveUntilDot(t *testing.T) {
	cfg, m := testConfig()
	f := New(newScript("+OK 2 messages\r\n", "1 120\r\n2 200\r\n.\r\n", "+OK next"), cfg)

	msg, res := f.ReceiveUntilDot()
	if !res.OK() {
		t.Fatalf("ReceiveUntilDot: %v", res)
	}
	want := "+OK 2 messages\r\n1 120\r\n2 200\r\n.\r\n"
	if msg != want {
		t.Errorf("message want %q, got %q", want, msg)
	}
	if m.GetSnapshot().SentinelMatches != 1 {
		t.Error("sentinel match not counted")
	}

	// the chunk after the sentinel is left for the next read
	next, _ := f.ReceiveChunk()
	if next != "+OK next" {
		t.Errorf("next chunk want %q, got %q", "+OK next", next)
	}
}

func TestReceiveUntilSplitSentinel(t *testing.T) {
	cfg, _ := testConfig()
	f := New(newScript("data\r\n.", "\r\n"), cfg)

	msg, res := f.ReceiveUntil(".\r\n")
	if res.Status != StatusClosed {
		t.Errorf("a sentinel split across chunks is not detected: want closed, got %v", res)
	}
	if msg != "data\r\n.\r\n" {
		t.Errorf("accumulated text want %q, got %q", "data\r\n.\r\n", msg)
	}
}

func TestReceiveUntilBodyDotNotAtEnd(t *testing.T) {
	cfg, _ := testConfig()
	f := New(newScript("a\r\n.\r\nb\r\n", ".\r\n"), cfg)

	msg, res := f.ReceiveUntil(".\r\n")
	if !res.OK() || msg != "a\r\n.\r\nb\r\n.\r\n" {
		t.Errorf("got (%q, %v)", msg, res)
	}
}

func TestReceiveUntilDotLF(t *testing.T) {
	cfg, _ := testConfig(WithTerminator(LF))
	f := New(newScript("1 120\n.\n"), cfg)

	msg, res := f.ReceiveUntilDot()
	if !res.OK() || msg != "1 120\n.\n" {
		t.Errorf("got (%q, %v)", msg, res)
	}
}

func TestReceiveAll(t *testing.T) {
	cfg, _ := testConfig()
	f := New(newScript("HTTP/1.0 200 OK\r\n", "\r\n", "<html></html>"), cfg)

	msg, res := f.ReceiveAll()
	if !res.OK() {
		t.Fatalf("ReceiveAll: %v", res)
	}
	if msg != "HTTP/1.0 200 OK\r\n\r\n<html></html>" {
		t.Errorf("unexpected body %q", msg)
	}
}

func TestReceiveAllNothing(t *testing.T) {
	cfg, _ := testConfig()
	f := New(newScript(), cfg)

	msg, res := f.ReceiveAll()
	if res.OK() || msg != "" {
		t.Errorf("want failure with empty text, got (%q, %v)", msg, res)
	}
}

func TestReceiveAllKeepsTextOnFailure(t *testing.T) {
	cfg, _ := testConfig()
	s := newScript("partial")
	s.err = errors.New("link down")
	f := New(s, cfg)

	msg, res := f.ReceiveAll()
	if !res.OK() || msg != "partial" {
		t.Errorf("text received before the failure counts: got (%q, %v)", msg, res)
	}
}

func TestReceiveAllNotReadablePanics(t *testing.T) {
	cfg, _ := testConfig()
	f := New(&closedStream{}, cfg)

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("ReceiveAll on a closed stream should panic")
		}
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrNotReadable) {
			t.Errorf("panic value want ErrNotReadable, got %v", r)
		}
	}()
	f.ReceiveAll()
}

func TestSkipLines(t *testing.T) {
	cfg, _ := testConfig()
	f := New(newScript("one\r\ntwo\r\nthree\r\n"), cfg)

	if res := f.SkipLines(2); !res.OK() {
		t.Fatalf("SkipLines: %v", res)
	}
	line, _ := f.ReadLine()
	if line != "three" {
		t.Errorf("line after skipping want %q, got %q", "three", line)
	}

	if res := f.SkipLine(); res.Status != StatusClosed {
		t.Errorf("SkipLine at end want closed, got %v", res)
	}
}

func TestSkipLinesStopsAtFailure(t *testing.T) {
	cfg, _ := testConfig()
	f := New(newScript("only\r\n"), cfg)

	if res := f.SkipLines(3); res.Status != StatusClosed {
		t.Errorf("want closed, got %v", res)
	}
}

func TestSkipLinesInvalidCount(t *testing.T) {
	cfg, _ := testConfig()
	f := New(newScript("x\r\n"), cfg)

	for _, n := range []int{0, -1} {
		func() {
			defer func() {
				if r := recover(); r != ErrInvalidCount {
					t.Errorf("SkipLines(%d) panic want ErrInvalidCount, got %v", n, r)
				}
			}()
			f.SkipLines(n)
		}()
	}
}

func TestReadLinesUntil(t *testing.T) {
	cfg, _ := testConfig()
	f := New(newScript("250-mail.example.com\r\n250-SIZE 1000\r\n.\r\nafter\r\n"), cfg)

	lines, res := f.ReadLinesUntil(".")
	if !res.OK() {
		t.Fatalf("ReadLinesUntil: %v", res)
	}
	if len(lines) != 2 || lines[0] != "250-mail.example.com" || lines[1] != "250-SIZE 1000" {
		t.Errorf("unexpected lines %q", lines)
	}

	line, _ := f.ReadLine()
	if line != "after" {
		t.Errorf("marker line should be consumed, next line got %q", line)
	}
}

func TestReadLinesUntilEndOfStream(t *testing.T) {
	cfg, _ := testConfig()
	f := New(newScript("a\r\nb\r\n"), cfg)

	lines, res := f.ReadLinesUntil(".")
	if res.Status != StatusClosed || len(lines) != 2 {
		t.Errorf("want 2 lines and closed, got %q %v", lines, res)
	}
}

func TestReadUntilLineSuffix(t *testing.T) {
	cfg, _ := testConfig()
	f := New(newScript("Trying...\r\nConnected.\r\nlogin: \r\n"), cfg)

	line, res := f.ReadUntilLineSuffix("login: ")
	if !res.OK() || line != "login: " {
		t.Errorf("got (%q, %v)", line, res)
	}
}

func TestSend(t *testing.T) {
	tests := []struct {
		name string
		term Terminator
		want string
	}{
		{"crlf", CRLF, "USER bob\r\n"},
		{"lf", LF, "USER bob\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, m := testConfig(WithTerminator(tt.term))
			s := newScript()
			f := New(s, cfg)

			if res := f.Send("USER bob"); !res.OK() {
				t.Fatalf("Send: %v", res)
			}
			if s.written() != tt.want {
				t.Errorf("written want %q, got %q", tt.want, s.written())
			}
			snap := m.GetSnapshot()
			if snap.MessagesSent != 1 || snap.BytesSent != int64(len(tt.want)) {
				t.Errorf("send counters wrong: %+v", snap)
			}
		})
	}
}

func TestSendRaw(t *testing.T) {
	cfg, _ := testConfig()
	s := newScript()
	f := New(s, cfg)

	f.SendRaw("GET / HTTP/1.0\r\n\r\n")
	if s.written() != "GET / HTTP/1.0\r\n\r\n" {
		t.Errorf("unexpected bytes %q", s.written())
	}
}

func TestSendFailure(t *testing.T) {
	cfg, m := testConfig()
	f := New(&failWriter{err: net.ErrClosed}, cfg)

	res := f.Send("QUIT")
	if res.Status != StatusClosed {
		t.Errorf("want closed, got %v", res)
	}
	if m.GetSnapshot().MessagesSent != 0 {
		t.Error("failed send must not be counted")
	}
}

func TestRequest(t *testing.T) {
	cfg, _ := testConfig()
	s := newScript("+OK 2 320\r\n")
	f := New(s, cfg)

	reply, res := f.Request("STAT")
	if !res.OK() || reply != "+OK 2 320" {
		t.Errorf("got (%q, %v)", reply, res)
	}
	if s.written() != "STAT\r\n" {
		t.Errorf("request bytes %q", s.written())
	}
}

func TestExchange(t *testing.T) {
	cfg, _ := testConfig()
	s := newScript("+OK 1 message\r\n", "1 120\r\n")
	f := New(s, cfg)

	reply, res := f.Exchange("LIST")
	if !res.OK() || reply != "+OK 1 message\r\n" {
		t.Errorf("got (%q, %v)", reply, res)
	}
	if s.written() != "LIST\r\n" {
		t.Errorf("request bytes %q", s.written())
	}
}

func TestExchangeSendFailure(t *testing.T) {
	cfg, _ := testConfig()
	w := &failWriter{err: errors.New("broken")}
	w.chunks = [][]byte{[]byte("unread")}
	f := New(w, cfg)

	if _, res := f.Exchange("RETR 1"); res.Status != StatusError {
		t.Errorf("want error, got %v", res)
	}
	if w.reads != 0 {
		t.Error("nothing should be read after a failed send")
	}
}

func TestSendAfter(t *testing.T) {
	cfg, _ := testConfig()
	s := newScript("Welcome\r\n", "login: ")
	f := New(s, cfg)

	if res := f.SendAfter("login: ", "guest"); !res.OK() {
		t.Fatalf("SendAfter: %v", res)
	}
	if s.written() != "guest\r\n" {
		t.Errorf("written %q", s.written())
	}
}

func TestSendAfterReadFailure(t *testing.T) {
	cfg, _ := testConfig()
	s := newScript("no prompt here")
	f := New(s, cfg)

	if res := f.SendAfter("login: ", "guest"); res.OK() {
		t.Error("SendAfter should fail when the prompt never arrives")
	}
	if s.written() != "" {
		t.Errorf("nothing should be sent, got %q", s.written())
	}
}

func TestVerboseEcho(t *testing.T) {
	var traffic bytes.Buffer
	cfg, _ := testConfig(WithVerbose(true), WithTraffic(&traffic))
	f := New(newScript("+OK hello\r\n", "chunk"), cfg)

	f.ReadLine()
	f.ReceiveChunk()
	f.Send("QUIT")

	want := "<<<< +OK hello\n<<<< chunk\n>>>>> QUIT\r\n\n"
	if traffic.String() != want {
		t.Errorf("traffic want %q, got %q", want, traffic.String())
	}
}

func TestQuietByDefault(t *testing.T) {
	var traffic bytes.Buffer
	cfg, _ := testConfig(WithTraffic(&traffic))
	f := New(newScript("line\r\n"), cfg)

	f.ReadLine()
	f.Send("x")
	if traffic.Len() != 0 {
		t.Errorf("nothing should be echoed, got %q", traffic.String())
	}
}

func TestPipeStream(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	cfg, _ := testConfig()
	f := New(client, cfg)

	go func() {
		server.Write([]byte("+OK POP3 ready\r\n"))
		buf := make([]byte, 64)
		n, _ := server.Read(buf)
		if string(buf[:n]) == "QUIT\r\n" {
			server.Write([]byte("+OK bye\r\n"))
		}
		server.Close()
	}()

	if res := f.SendAfter("ready\r\n", "QUIT"); !res.OK() {
		t.Fatalf("SendAfter: %v", res)
	}
	bye, res := f.ReadLine()
	if !res.OK() || bye != "+OK bye" {
		t.Fatalf("bye: (%q, %v)", bye, res)
	}
	if _, res := f.ReadLine(); res.Status != StatusClosed {
		t.Errorf("after peer close want closed, got %v", res)
	}
}

func TestReadDeadlineTimesOut(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		time.Sleep(300 * time.Millisecond)
		conn.Close()
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(20 * time.Millisecond))

	cfg, m := testConfig()
	f := New(conn, cfg)
	if _, res := f.ReadLine(); !res.TimedOut() {
		t.Errorf("want timeout, got %v", res)
	}
	if m.GetSnapshot().Timeouts != 1 {
		t.Error("timeout not counted")
	}
}

func TestEncodings(t *testing.T) {
	t.Run("ascii decode", func(t *testing.T) {
		cfg, _ := testConfig()
		f := New(newScript("caf\xe9\r\n"), cfg)
		line, _ := f.ReadLine()
		if line != "caf?" {
			t.Errorf("want %q, got %q", "caf?", line)
		}
	})

	t.Run("ascii encode", func(t *testing.T) {
		cfg, _ := testConfig()
		s := newScript()
		New(s, cfg).SendRaw("café")
		if s.written() != "caf?" {
			t.Errorf("want %q, got %q", "caf?", s.written())
		}
	})

	t.Run("latin1", func(t *testing.T) {
		cfg, _ := testConfig(WithEncodingName("iso-8859-1"))
		s := newScript("caf\xe9\r\n")
		f := New(s, cfg)

		line, _ := f.ReadLine()
		if line != "café" {
			t.Errorf("decode want %q, got %q", "café", line)
		}
		f.SendRaw("é")
		if s.written() != "\xe9" {
			t.Errorf("encode want %q, got %q", "\xe9", s.written())
		}
	})

	t.Run("utf8 chunk override", func(t *testing.T) {
		cfg, _ := testConfig()
		f := New(newScript("h\xc3\xa9"), cfg)
		enc, err := LookupEncoding("utf-8")
		if err != nil {
			t.Fatalf("LookupEncoding: %v", err)
		}
		chunk, _ := f.ReceiveChunkEncoding(enc)
		if chunk != "hé" {
			t.Errorf("want %q, got %q", "hé", chunk)
		}
	})
}

func TestNewNilConfig(t *testing.T) {
	f := New(newScript(), nil)
	cfg := f.Config()
	if cfg.Terminator != CRLF || cfg.ChunkSize != 256 || cfg.Encoding != ASCII {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestNewInvalidConfigPanics(t *testing.T) {
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("panic want ErrInvalidConfig, got %v", r)
		}
	}()
	New(newScript(), &Config{ChunkSize: 0, DatagramSize: 10})
}

func TestNewLeavesConfigUntouched(t *testing.T) {
	cfg := &Config{ChunkSize: 16, DatagramSize: 16}
	New(newScript(), cfg)
	if cfg.Logger != nil || cfg.Encoding != nil {
		t.Error("New must not fill defaults into the caller's Config")
	}
}

func TestReadByteNoProgress(t *testing.T) {
	cfg, _ := testConfig()
	f := New(stuckReader{}, cfg)

	_, res := f.ReadLine()
	if res.Status != StatusError || !errors.Is(res.Err, io.ErrNoProgress) {
		t.Errorf("want no-progress error, got %v", res)
	}
}

type stuckReader struct{}

func (stuckReader) Read(p []byte) (int, error)  { return 0, nil }
func (stuckReader) Write(p []byte) (int, error) { return len(p), nil }
