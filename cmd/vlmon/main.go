package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/robotalks/voicelink/pkg/bridge/mqtt"
)

var (
	mqttURL = "mqtt://localhost:1883/voicelink/"
	filter  = "#"
)

func init() {
	if val := os.Getenv("VOICELINK_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.StringVar(&filter, "topic", filter, "Topic filter under the URL prefix, e.g. DEVICE_ID/#.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	if err := q.Connect(context.Background()); err != nil {
		log.Fatalln(err)
	}

	q.Sub(filter, mqtt.Handler(func(topic string, payload []byte) {
		text, err := mqtt.Describe(topic, payload)
		if err != nil {
			log.Printf("%s: bad message: %v", topic, err)
			return
		}
		log.Printf("%s: %s", topic, text)
	}))
	<-(chan struct{})(nil)
}
