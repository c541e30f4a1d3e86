package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/robotalks/uartlink/pkg/framework"
	"github.com/robotalks/uartlink/pkg/l0/board"
	"github.com/robotalks/uartlink/pkg/l0/hal"
	"github.com/robotalks/uartlink/pkg/l1/uplink"
	"github.com/robotalks/uartlink/pkg/l1/uplink/mqtt"
	"github.com/robotalks/uartlink/pkg/l1/uplink/stream"
	"github.com/robotalks/uartlink/pkg/l1/uplink/websocket"
	"github.com/robotalks/uartlink/pkg/metrics"
)

var (
	appPort    string
	diagPort   = "-"
	baud       = hal.DefaultBaud
	mqttURL    string
	deviceID   string
	listenAddr string
	httpAddr   string
)

func init() {
	if val := os.Getenv("UARTLINK_PORT"); val != "" {
		appPort = val
	}
	if val := os.Getenv("UARTLINK_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&appPort, "port", appPort, "Application serial port.")
	flag.StringVar(&diagPort, "diag", diagPort, "Diagnostic serial port, - for stdout.")
	flag.IntVar(&baud, "baud", baud, "Baud rate of both lines.")
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL for the uplink, e.g. mqtt://localhost:1883/uartlink/.")
	flag.StringVar(&deviceID, "device", deviceID, "Device ID in MQTT topics, machine id by default.")
	flag.StringVar(&listenAddr, "listen", listenAddr, "TCP address accepting stream uplinks.")
	flag.StringVar(&httpAddr, "http", httpAddr, "HTTP address serving /metrics and the /ws uplink.")
	board.SetupFlags()
}

func openDiag() (hal.TxRegister, error) {
	if diagPort == "-" {
		return hal.NewWriterTx(os.Stdout), nil
	}
	return hal.OpenSerial(hal.SerialConfig{Name: diagPort, Baud: baud})
}

func halt() {
	glog.Error("board halted")
	glog.Flush()
	os.Exit(2)
}

func main() {
	flag.Parse()
	if err := run(); err != nil {
		glog.Exitln(err)
	}
}

func run() error {
	if appPort == "" {
		return errors.New("-port is required")
	}
	app, err := hal.OpenSerial(hal.SerialConfig{Name: appPort, Baud: baud})
	if err != nil {
		return err
	}
	diag, err := openDiag()
	if err != nil {
		return err
	}
	led := &hal.VirtualPin{OnChange: func(level bool) {
		glog.V(3).Infof("LED %v", level)
	}}
	b, err := board.Default().NewBoard(board.Devices{Diag: diag, App: app, LED: led}, halt)
	if err != nil {
		return err
	}
	bridge := uplink.NewBridge(b.Link)
	b.Link.Handler = bridge

	runner := framework.NewRunner(
		framework.NamedRun("board", framework.RunFunc(b.Run)),
		framework.NamedRun("port", framework.RunFunc(func(ctx context.Context) error {
			return framework.RunWithContextCloser(ctx, app, func() error {
				return app.Run(ctx, b.HandleInterrupt)
			})
		})),
	)

	if mqttURL != "" {
		if deviceID == "" {
			if deviceID, err = mqtt.DeviceID(); err != nil {
				return err
			}
		}
		opts, topicPrefix, err := mqtt.ClientOptionsFromURL(mqttURL)
		if err != nil {
			return err
		}
		mqtt.SetWill(opts, topicPrefix, deviceID)
		q := mqtt.NewQueue(opts, topicPrefix)
		presence := mqtt.NewPresence(q, deviceID, mqtt.Meta{
			Port:       appPort,
			Baud:       baud,
			HeaderSize: board.Default().HeaderSize,
		})
		if token := q.Connect(); token.Wait() && token.Error() != nil {
			return errors.Wrap(token.Error(), "mqtt connect")
		}
		defer q.Close()
		rw := mqtt.NewPacketReadWriter(q).ForDevice(deviceID)
		glog.Infof("mqtt uplink on %s%s", q.TopicPrefix, deviceID)
		runner.Add(
			framework.NamedRun("mqtt", rw),
			framework.NamedRun("presence", presence),
			framework.NamedRun("mqtt-bridge", framework.RunFunc(func(ctx context.Context) error {
				return bridge.Serve(ctx, "mqtt", rw)
			})),
		)
	}

	if listenAddr != "" {
		ln, err := net.Listen("tcp", listenAddr)
		if err != nil {
			return err
		}
		runner.Add(framework.NamedRun("stream", framework.RunFunc(func(ctx context.Context) error {
			return stream.Serve(ctx, ln, func(ctx context.Context, rw *stream.ReadWriter) {
				if err := bridge.Serve(ctx, "tcp", rw); err != nil {
					glog.Warning(err)
				}
			})
		})))
	}

	if httpAddr != "" {
		reg := prometheus.NewRegistry()
		if err := metrics.Register(reg, b.Link, prometheus.Labels{"port": appPort}); err != nil {
			return err
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(reg))
		srv := &http.Server{Addr: httpAddr, Handler: mux}
		runner.Add(framework.NamedRun("http", framework.RunFunc(func(ctx context.Context) error {
			mux.Handle("/ws", websocket.Handler(func(rw *websocket.ReadWriter) {
				if err := bridge.Serve(ctx, "ws", rw); err != nil {
					glog.Warning(err)
				}
			}))
			return framework.RunWithContextCloser(ctx, srv, srv.ListenAndServe)
		})))
	}

	return runner.HandleSignals().Run(context.Background())
}
