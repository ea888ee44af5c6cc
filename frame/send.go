package frame

// Send writes msg followed by the line terminator.
func (f *Framer) Send(msg string) Result {
	return f.write(msg + f.cfg.Terminator.String())
}

// SendRaw writes msg as is.
func (f *Framer) SendRaw(msg string) Result {
	return f.write(msg)
}

func (f *Framer) write(msg string) Result {
	data := f.cfg.encode(msg)
	if _, err := f.s.Write(data); err != nil {
		return f.cfg.report("send", err, true)
	}
	f.cfg.Metrics.AddSent(len(data))
	f.cfg.outbound(msg)
	return Result{}
}

// Request sends msg as a line and reads the one-line reply.
func (f *Framer) Request(msg string) (string, Result) {
	if res := f.Send(msg); !res.OK() {
		return "", res
	}
	return f.ReadLine()
}

// Exchange sends msg as a line and returns the first chunk of the reply.
func (f *Framer) Exchange(msg string) (string, Result) {
	if res := f.Send(msg); !res.OK() {
		return "", res
	}
	return f.ReceiveChunk()
}

// SendAfter receives until a chunk ends with expect, typically a prompt,
// and then sends msg as a line. Nothing is sent when the receive fails.
func (f *Framer) SendAfter(expect, msg string) Result {
	if _, res := f.ReceiveUntil(expect); !res.OK() {
		return res
	}
	return f.Send(msg)
}
