package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/robotalks/uartlink/pkg/framework"
	"github.com/robotalks/uartlink/pkg/l0/serial"
	"github.com/robotalks/uartlink/pkg/l1/uplink/mqtt"
)

var (
	mqttURL  = "mqtt://localhost:1883/uartlink/"
	deviceID = "+"
)

func init() {
	if val := os.Getenv("UARTLINK_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.StringVar(&deviceID, "device", deviceID, "Device ID to monitor, + for all.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}
	defer q.Close()

	printer := func(topic string, payload []byte) {
		if strings.HasSuffix(topic, mqtt.MetaSuffix) {
			log.Printf("%s: %s", topic, string(payload))
			return
		}
		log.Printf("%s: %s", topic, serial.FormatBytes(payload))
	}
	err = framework.NewRunner(framework.RunFunc(func(ctx context.Context) error {
		for _, suffix := range []string{mqtt.RxSuffix, mqtt.TxSuffix, mqtt.MetaSuffix} {
			sub := q.Sub(deviceID+suffix, printer)
			defer sub.Close()
			sub.Token.Wait()
			if err := sub.Token.Error(); err != nil {
				return err
			}
		}
		<-ctx.Done()
		return ctx.Err()
	})).HandleSignals().Run(context.Background())
	if err != nil {
		log.Fatalln(err)
	}
}
