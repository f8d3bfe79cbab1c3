package main

import (
	"encoding/json"
	"flag"
	"os"
	"reflect"

	"github.com/golang/glog"

	"github.com/mahendrakumarshinde/iu.go/pkg/bridge"
	"github.com/mahendrakumarshinde/iu.go/pkg/config"
	"github.com/mahendrakumarshinde/iu.go/pkg/framework"
	"github.com/mahendrakumarshinde/iu.go/pkg/l1/comm/mqtt"
	"github.com/mahendrakumarshinde/iu.go/pkg/l1/msgs"
)

var (
	mqttURL    = config.Default().MQTT.URL
	outputJSON bool
)

func init() {
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print messages in JSON.")
}

type record struct {
	Topic string      `json:"topic"`
	Type  string      `json:"type"`
	Msg   interface{} `json:"msg"`
}

func main() {
	flag.Parse()

	q, err := mqtt.NewQueueFromURL(mqttURL, "iumon-"+config.MachineID())
	if err != nil {
		glog.Exit(err)
	}
	enc := json.NewEncoder(os.Stdout)
	handler := func(topic string, payload []byte) {
		msg, err := msgs.DecodeMessage(payload)
		if err != nil {
			glog.Infof("%s: %q (%v)", topic, payload, err)
			return
		}
		name := reflect.Indirect(reflect.ValueOf(msg)).Type().Name()
		if outputJSON {
			enc.Encode(record{Topic: topic, Type: name, Msg: msg})
			return
		}
		glog.Infof("%s: [%s] %s", topic, name, msg.String())
	}
	for _, suffix := range []string{bridge.TopicData, bridge.TopicEvent, bridge.TopicTime} {
		q.Sub("+/"+suffix, handler)
	}
	err = framework.NewRunner().HandleSignals().Go(framework.NamedRun("mqtt", q)).Wait()
	if err != nil {
		glog.Errorf("stopped: %v", err)
	}
}
