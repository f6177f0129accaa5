package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"

	fx "github.com/robotalks/rove.go/pkg/framework"
	"github.com/robotalks/rove.go/pkg/l1/comm/mqtt"
	"github.com/robotalks/rove.go/pkg/l1/msgs"
)

//go-build: CGO_ENABLED=0

var (
	mqttURL = "mqtt://localhost:1883/rove/"
	topic   = "#"
)

func init() {
	if val := os.Getenv("ROVE_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.StringVar(&topic, "topic", topic, "Topic pattern to monitor.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}

	q.Sub(topic, mqtt.Handler(func(topic string, payload []byte) {
		if strings.HasSuffix(topic, "/meta") {
			log.Printf("%s: %s", topic, string(payload))
			return
		}
		kind, record, err := msgs.Unwrap(payload)
		if err != nil {
			log.Printf("%s: bad message: %v", topic, err)
			return
		}
		log.Printf("%s: [%s] % x", topic, kind, record)
	}))
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}
	defer q.Close()

	runner := fx.NewRunner().HandleSignals()
	runner.Go(fx.RunFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))
	runner.Wait()
}
