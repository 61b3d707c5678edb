package publishers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/chrissnell/meteostick/internal/types"
	"github.com/chrissnell/meteostick/pkg/config"
)

const defaultTopicPrefix = "meteostick"

// MQTTPublisher publishes readings and link-quality summaries to an MQTT
// broker as JSON, one topic per station.
type MQTTPublisher struct {
	client      mqtt.Client
	topicPrefix string
	logger      *zap.SugaredLogger
	readings    chan types.Reading
	quality     chan types.LinkQualitySummary
}

// NewMQTTPublisher connects to the broker and returns a publisher
func NewMQTTPublisher(cfg *config.MQTTData, logger *zap.SugaredLogger) (*MQTTPublisher, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		hostname, _ := os.Hostname()
		clientID = fmt.Sprintf("meteostick-%s-%d", hostname, os.Getpid())
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	p := &MQTTPublisher{
		client:      mqtt.NewClient(opts),
		topicPrefix: cfg.TopicPrefix,
		logger:      logger,
	}
	if p.topicPrefix == "" {
		p.topicPrefix = defaultTopicPrefix
	}

	token := p.client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("could not connect to MQTT broker %s: %v", cfg.Broker, token.Error())
	}
	logger.Infof("connected to MQTT broker %s as %s", cfg.Broker, clientID)

	return p, nil
}

// StartPublisher launches the event-processing goroutine and returns the
// channels that feed it
func (p *MQTTPublisher) StartPublisher(ctx context.Context, wg *sync.WaitGroup) (chan<- types.Reading, chan<- types.LinkQualitySummary) {
	p.readings = make(chan types.Reading, 10)
	p.quality = make(chan types.LinkQualitySummary, 10)

	wg.Add(1)
	go p.processEvents(ctx, wg)

	return p.readings, p.quality
}

func (p *MQTTPublisher) processEvents(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		select {
		case r := <-p.readings:
			p.publish(fmt.Sprintf("%s/%s/reading", p.topicPrefix, r.StationName), r)
		case q := <-p.quality:
			p.publish(fmt.Sprintf("%s/%s/quality", p.topicPrefix, q.StationName), q)
		case <-ctx.Done():
			p.logger.Info("cancellation request received, disconnecting from MQTT broker")
			p.client.Disconnect(250)
			return
		}
	}
}

func (p *MQTTPublisher) publish(topic string, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		p.logger.Errorf("could not marshal payload for %s: %v", topic, err)
		return
	}
	token := p.client.Publish(topic, 0, false, payload)
	if token.Wait() && token.Error() != nil {
		p.logger.Errorf("could not publish to %s: %v", topic, token.Error())
	}
}
