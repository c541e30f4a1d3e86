package logsink

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type captureTx struct {
	lock    sync.Mutex
	buf     bytes.Buffer
	failAt  int
	written int
}

func (c *captureTx) WriteByte(b byte) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.written++
	if c.failAt > 0 && c.written == c.failAt {
		return errors.New("uart fault")
	}
	return c.buf.WriteByte(b)
}

func (c *captureTx) String() string {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.buf.String()
}

type haltRecorder struct {
	calls int
}

func (h *haltRecorder) halt() {
	h.calls++
}

func TestLogLine(t *testing.T) {
	tx := &captureTx{}
	s := New(nil)
	require.True(t, s.Start(tx, LevelTrace))
	s.Log(LevelInfo, "serial", "recv: [0xDE, 0xAD]")
	require.Equal(t, "INFO [serial] recv: [0xDE, 0xAD]\r\n", tx.String())
}

func TestLogf(t *testing.T) {
	tx := &captureTx{}
	s := New(nil)
	s.Start(tx, LevelTrace)
	s.Logf(LevelWarn, "l0", "%d bytes %s", 3, "lost")
	require.Equal(t, "WARN [l0] 3 bytes lost\r\n", tx.String())
}

func TestFilter(t *testing.T) {
	testCases := []struct {
		filter Level
		expect string
	}{
		{LevelTrace, "TRACE [t] a\r\nDEBUG [t] b\r\nINFO [t] c\r\nWARN [t] d\r\nERROR [t] e\r\n"},
		{LevelInfo, "INFO [t] c\r\nWARN [t] d\r\nERROR [t] e\r\n"},
		{LevelError, "ERROR [t] e\r\n"},
		{LevelOff, ""},
	}
	for _, tc := range testCases {
		t.Run(tc.filter.String(), func(t *testing.T) {
			tx := &captureTx{}
			s := New(nil)
			s.Start(tx, tc.filter)
			s.Log(LevelTrace, "t", "a")
			s.Log(LevelDebug, "t", "b")
			s.Log(LevelInfo, "t", "c")
			s.Log(LevelWarn, "t", "d")
			s.Log(LevelError, "t", "e")
			require.Equal(t, tc.expect, tx.String())
		})
	}
}

func TestStartOnce(t *testing.T) {
	first, second := &captureTx{}, &captureTx{}
	s := New(nil)
	s.Log(LevelError, "t", "before start")
	require.True(t, s.Start(first, LevelError))
	require.False(t, s.Start(second, LevelTrace))
	s.Log(LevelInfo, "t", "filtered")
	s.Log(LevelError, "t", "kept")
	require.Equal(t, "ERROR [t] kept\r\n", first.String())
	require.Empty(t, second.String())
}

func TestConcurrentLinesDoNotInterleave(t *testing.T) {
	tx := &captureTx{}
	s := New(nil)
	s.Start(tx, LevelTrace)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < 50; n++ {
				s.Log(LevelInfo, "t", "0123456789")
			}
		}()
	}
	wg.Wait()
	lines := bytes.Split([]byte(tx.String()), []byte("\r\n"))
	require.Len(t, lines, 401)
	for _, line := range lines[:400] {
		require.Equal(t, "INFO [t] 0123456789", string(line))
	}
}

func TestWriteFailureIsFatal(t *testing.T) {
	tx := &captureTx{failAt: 3}
	h := &haltRecorder{}
	s := New(h.halt)
	s.Start(tx, LevelTrace)
	s.Log(LevelInfo, "t", "message")
	require.Equal(t, 1, h.calls)
	require.True(t, s.Halted())
	require.Equal(t, "IN"+"ERROR [fault] write diagnostic line: uart fault\r\n", tx.String())

	s.Log(LevelError, "t", "after halt")
	require.Equal(t, 1, h.calls)
}

func TestFault(t *testing.T) {
	tx := &captureTx{}
	h := &haltRecorder{}
	s := New(h.halt)
	s.Start(tx, LevelOff)
	s.Fault(errors.New("alloc error"))
	require.Equal(t, "ERROR [fault] alloc error\r\n", tx.String())
	require.Equal(t, 1, h.calls)

	s.Fault(errors.New("again"))
	require.Equal(t, "ERROR [fault] alloc error\r\n", tx.String())
	require.Equal(t, 2, h.calls)
}

func TestFaultBeforeStart(t *testing.T) {
	h := &haltRecorder{}
	s := New(h.halt)
	s.Fault(nil)
	require.Equal(t, 1, h.calls)
	require.True(t, s.Halted())
}

func TestParseLevel(t *testing.T) {
	for _, lv := range []Level{LevelTrace, LevelDebug, LevelInfo, LevelWarn, LevelError, LevelOff} {
		parsed, err := ParseLevel(lv.String())
		require.NoError(t, err)
		require.Equal(t, lv, parsed)
	}
	parsed, err := ParseLevel("warn")
	require.NoError(t, err)
	require.Equal(t, LevelWarn, parsed)
	_, err = ParseLevel("verbose")
	require.Error(t, err)
	require.Equal(t, "UNKNOWN", Level(42).String())
}
