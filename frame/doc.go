// Package frame turns the byte stream of an already-connected transport into
// the messages of text protocols such as HTTP, POP3, SMTP or custom line
// protocols.
//
// A Framer wraps one byte-duplex Stream (a net.Conn, a KCP session, a pipe)
// and offers three ways to cut messages out of it:
//
//   - ReadLine consumes bytes one at a time up to the configured line
//     terminator (CRLF or LF), never reading past it.
//   - ReceiveChunk performs a single bounded read and returns whatever
//     arrived. ReceiveUntil and ReceiveUntilDot repeat it until a chunk ends
//     with a sentinel, ReceiveAll until the peer closes.
//   - Send, Request, Exchange and SendAfter write text in the configured
//     encoding and pair a write with one of the reads above.
//
// A Datagram wraps a connectionless channel (a *net.UDPConn) and adds
// ReceiveWithDeadline, which gives up on a receive after a timeout.
//
// Every I/O call returns a Result instead of an error. Expected conditions
// such as an orderly close or a peer reset only change Result.Status;
// unusual ones are also reported to the configured log.Logger. Invalid usage
// (ReceiveAll on a stream already known to be closed, SkipLines(0), an
// invalid Config) panics.
//
// Basic example:
//
//	conn, _ := net.Dial("tcp", "mail.example.com:110")
//	f := frame.New(conn, nil)
//	greeting, res := f.ReadLine()
//	if !res.OK() {
//		return
//	}
//	f.Send("LIST")
//	listing, res := f.ReceiveUntilDot()
//
// Known limitations, kept on purpose:
//
//   - ReceiveUntil only matches the sentinel against the latest chunk; a
//     sentinel split across two reads is not detected.
//   - In CRLF mode a carriage return ends the line even when the next byte
//     is not a line feed; that byte is consumed.
//   - After ReceiveWithDeadline times out, its receive keeps running and may
//     swallow the next datagram, which is then discarded.
package frame
