package mqtt

import (
	"context"
	"encoding/json"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// MetaSuffix is the retained topic describing a device.
const MetaSuffix = "/meta"

// Meta describes the line of a device.
type Meta struct {
	Port        string `json:"port"`
	Baud        int    `json:"baud,omitempty"`
	HeaderSize  int    `json:"header_size"`
	Description string `json:"description,omitempty"`
}

// SetWill makes the broker clear the meta of device when the client
// disconnects unexpectedly. It must be applied before NewQueue.
func SetWill(opts *paho.ClientOptions, topicPrefix, device string) {
	opts.SetBinaryWill(topicPrefix+device+MetaSuffix, nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("uartlink:" + device)
	}
}

// Presence announces a device with a retained meta message.
type Presence struct {
	Queue  *Queue
	Device string

	meta []byte
}

// NewPresence creates a Presence and hooks it on q so the meta is
// published again after every reconnect.
func NewPresence(q *Queue, device string, meta Meta) *Presence {
	encoded, err := json.Marshal(&meta)
	if err != nil {
		panic(err)
	}
	p := &Presence{Queue: q, Device: device, meta: encoded}
	q.OnConnect = func(*Queue) { p.Publish() }
	return p
}

// Publish publishes the meta.
func (p *Presence) Publish() paho.Token {
	return p.Queue.PubWith(p.Device+MetaSuffix, p.meta, 1, true)
}

// Run implements Runnable. The meta is cleared when ctx is done.
func (p *Presence) Run(ctx context.Context) error {
	p.Publish()
	<-ctx.Done()
	p.Queue.PubWith(p.Device+MetaSuffix, nil, 1, true).Wait()
	return ctx.Err()
}
