package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/uartlink/pkg/l0/serial"
)

type fixedStats serial.Stats

func (s *fixedStats) Stats() serial.Stats {
	return serial.Stats(*s)
}

func gather(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	families, err := reg.Gather()
	require.NoError(t, err)
	values := make(map[string]float64)
	for _, mf := range families {
		require.Len(t, mf.GetMetric(), 1)
		values[mf.GetName()] = mf.GetMetric()[0].GetCounter().GetValue()
	}
	return values
}

func TestRegister(t *testing.T) {
	src := &fixedStats{RxBytes: 10, RxDropped: 1, FramesReceived: 2, FramesSent: 3, TxErrors: 4, Discarded: 5, CRCErrors: 6}
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg, src, prometheus.Labels{"port": "ttyUSB0"}))

	require.Equal(t, map[string]float64{
		"uartlink_link_rx_bytes_total":         10,
		"uartlink_link_rx_dropped_bytes_total": 1,
		"uartlink_link_frames_received_total":  2,
		"uartlink_link_frames_sent_total":      3,
		"uartlink_link_tx_errors_total":        4,
		"uartlink_link_discarded_bytes_total":  5,
		"uartlink_link_crc_errors_total":       6,
	}, gather(t, reg))

	src.FramesReceived = 20
	require.Equal(t, float64(20), gather(t, reg)["uartlink_link_frames_received_total"])
}

func TestRegisterTwiceFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg, &fixedStats{}, nil))
	require.Error(t, Register(reg, &fixedStats{}, nil))
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg, &fixedStats{FramesSent: 7}, nil))
	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(body), "uartlink_link_frames_sent_total 7"))
}
