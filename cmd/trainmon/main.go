package main

import (
	"context"
	"flag"
	"log"
	"reflect"

	fx "github.com/brickrail/trainhub/pkg/framework"
	l1env "github.com/brickrail/trainhub/pkg/l1/env"
	"github.com/brickrail/trainhub/pkg/l1/msgs"
	"github.com/brickrail/trainhub/pkg/l1/telemetry"
)

var (
	telemetryURL = l1env.Getenv("TRAINHUB_TELEMETRY_URL", "mqtt://localhost:1883/trainhub/")
	hubName      = "+"
)

func init() {
	flag.StringVar(&telemetryURL, "telemetry", telemetryURL, "Telemetry URL: mqtt://host:port/prefix or file:path")
	flag.StringVar(&hubName, "hub", hubName, "Hub to watch, + for all")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	src, err := telemetry.OpenSource(telemetryURL)
	if err != nil {
		log.Fatalln(err)
	}
	runner := fx.NewRunner().HandleSignals()
	err = src.Watch(runner.Context, hubName, msgs.HandleTypedMsgFunc(
		func(_ context.Context, msg msgs.SerializableMessage, typed *msgs.Typed) error {
			log.Printf("%s #%d: [%s] %s", telemetry.HubOf(msg), typed.Sequence,
				reflect.Indirect(reflect.ValueOf(msg)).Type().Name(), msg.String())
			return nil
		}))
	if err != nil && err != context.Canceled {
		log.Fatalln(err)
	}
}
