package serial

// Send frames payload and writes it byte by byte to the TX register. It
// blocks until every byte is accepted. Encoding and write errors are not
// reported; they only show up in Stats.
func (l *Link) Send(payload []byte) {
	l.txLock.Lock()
	defer l.txLock.Unlock()
	b, err := l.writer.Frame(payload)
	if err != nil {
		l.txErrors.Inc()
		return
	}
	for _, c := range b {
		if err := l.tx.WriteByte(c); err != nil {
			l.txErrors.Inc()
			return
		}
	}
	l.framesSent.Inc()
}
