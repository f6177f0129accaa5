package mqtt

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/golang/glog"

	"github.com/robotalks/rove.go/pkg/l0/device"
	"github.com/robotalks/rove.go/pkg/l1/msgs"
)

// CommandSender sends a record to the device links of a kind.
type CommandSender interface {
	SendCommand(kind device.Kind, record []byte) error
}

// Topic conventions, relative to the queue prefix:
//   ID/meta        retained JSON list of devices, cleared when offline
//   ID/KIND/telem  records received from devices
//   ID/KIND/cmd    records to send to devices
const (
	topicMeta  = "meta"
	topicTelem = "telem"
	topicCmd   = "cmd"
)

// TelemTopic returns the topic for records received from kind.
func TelemTopic(id string, kind device.Kind) string {
	return id + "/" + string(kind) + "/" + topicTelem
}

// CommandTopic returns the topic for records sent to kind.
func CommandTopic(id string, kind device.Kind) string {
	return id + "/" + string(kind) + "/" + topicCmd
}

// Bridge publishes telemetry and forwards commands between MQTT and the board.
type Bridge struct {
	Queue    *Queue
	ID       string
	Commands CommandSender

	metaJSON []byte
}

// NewBridge creates a Bridge identified by id.
func NewBridge(brokerURL, id string, devices []device.Descriptor) (*Bridge, error) {
	meta, err := json.Marshal(map[string]interface{}{"devices": devices})
	if err != nil {
		return nil, err
	}
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+id+"/"+topicMeta, nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("rove:" + id)
	}
	b := &Bridge{
		Queue:    NewQueue(opts, topicPrefix),
		ID:       id,
		metaJSON: meta,
	}
	b.Queue.OnConnect = func(q *Queue) {
		q.PubWith(b.ID+"/"+topicMeta, b.metaJSON, 1, true)
	}
	return b, nil
}

// Name implements Named.
func (b *Bridge) Name() string {
	return "mqtt-bridge"
}

// HandleTelemetry implements motherboard.TelemetrySink.
func (b *Bridge) HandleTelemetry(ctx context.Context, kind device.Kind, record []byte) error {
	payload, err := msgs.Wrap(kind, record)
	if err != nil {
		return err
	}
	b.Queue.Pub(TelemTopic(b.ID, kind), payload)
	return nil
}

// Run implements Runnable.
func (b *Bridge) Run(ctx context.Context) error {
	sub := b.Queue.Sub(b.ID+"/+/"+topicCmd, b.handleCommand)
	if token := b.Queue.Connect(); token.Wait() && token.Error() != nil {
		sub.Close()
		return token.Error()
	}
	<-ctx.Done()
	sub.Close()
	b.Queue.PubWith(b.ID+"/"+topicMeta, nil, 1, true).Wait()
	b.Queue.Close()
	return ctx.Err()
}

func (b *Bridge) handleCommand(topic string, payload []byte) {
	items := strings.Split(topic, "/")
	if len(items) < 2 {
		return
	}
	topicKind := device.Kind(items[len(items)-2])
	kind, record, err := msgs.Unwrap(payload)
	if err != nil {
		glog.Warningf("%s: bad command: %v", topic, err)
		return
	}
	if kind != topicKind {
		glog.Warningf("%s: record kind %s mismatch", topic, kind)
		return
	}
	if b.Commands == nil {
		return
	}
	if err = b.Commands.SendCommand(kind, record); err != nil {
		glog.Warningf("%s: send error: %v", topic, err)
	}
}
