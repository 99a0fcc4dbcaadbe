package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/robotalks/avionics.go/pkg/downlink"
	"github.com/robotalks/avionics.go/pkg/storage"
)

var (
	mqttURL = "mqtt://localhost:1883/avionics/"
	verbose bool
)

func init() {
	if val := os.Getenv("AVIONICS_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.BoolVar(&verbose, "records", verbose, "Print every record.")
}

func printBlock(topic string, payload []byte) {
	block, err := storage.UnmarshalBlock(payload)
	if err != nil {
		log.Printf("%s: bad block: %v", topic, err)
		return
	}
	records, err := block.Decode()
	if err != nil {
		log.Printf("%s: [%d] decode error: %v", topic, block.Seq, err)
		return
	}
	log.Printf("%s: [%d] %d records, %d bytes", topic, block.Seq, len(records), len(block.Data))
	if !verbose {
		return
	}
	for _, rec := range records {
		out, _ := json.Marshal(rec)
		log.Printf("  %s", out)
	}
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := downlink.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}

	q.Sub("+/"+downlink.TopicLog, printBlock)
	q.Sub("+/"+downlink.TopicMeta, func(topic string, payload []byte) {
		log.Printf("%s: %s", topic, string(payload))
	})
	q.Sub("+/"+downlink.TopicStatus, func(topic string, payload []byte) {
		log.Printf("%s: %s", topic, string(payload))
	})
	<-(chan struct{})(nil)
}
