package managers

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/chrissnell/meteostick/internal/publishers"
	"github.com/chrissnell/meteostick/internal/types"
	"github.com/chrissnell/meteostick/pkg/config"
)

// PublisherManager holds our active publishing backends
type PublisherManager struct {
	Backends           []PublisherBackend
	ReadingDistributor chan types.Reading
	QualityDistributor chan types.LinkQualitySummary
}

// PublisherBackend holds a backend publisher's interface as well as the
// channels for passing readings and quality summaries to it
type PublisherBackend struct {
	Publisher publishers.Publisher
	Readings  chan<- types.Reading
	Quality   chan<- types.LinkQualitySummary
}

// NewPublisherManager creates a PublisherManager object, populated with all
// configured publishing backends
func NewPublisherManager(ctx context.Context, wg *sync.WaitGroup, configProvider config.ConfigProvider, logger *zap.SugaredLogger) (*PublisherManager, error) {
	publishersConfig, err := configProvider.GetPublishers()
	if err != nil {
		return nil, fmt.Errorf("error loading publisher configuration: %v", err)
	}

	p := &PublisherManager{
		ReadingDistributor: make(chan types.Reading, 20),
		QualityDistributor: make(chan types.LinkQualitySummary, 20),
	}

	if publishersConfig.MQTT != nil {
		backend, err := publishers.NewMQTTPublisher(publishersConfig.MQTT, logger)
		if err != nil {
			return nil, fmt.Errorf("could not add MQTT publishing backend: %v", err)
		}
		p.addBackend(ctx, wg, backend)
	}

	if publishersConfig.Status != nil {
		p.addBackend(ctx, wg, publishers.NewStatusServer(publishersConfig.Status, logger))
	}

	// Start our distributors to fan received readings and quality summaries
	// out to the backends
	go p.startReadingDistributor(ctx, wg)
	go p.startQualityDistributor(ctx, wg)

	return p, nil
}

func (p *PublisherManager) addBackend(ctx context.Context, wg *sync.WaitGroup, backend publishers.Publisher) {
	b := PublisherBackend{Publisher: backend}
	b.Readings, b.Quality = backend.StartPublisher(ctx, wg)
	p.Backends = append(p.Backends, b)
}

// startReadingDistributor receives readings from stations and fans them out
// to the various publishing backends
func (p *PublisherManager) startReadingDistributor(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	defer wg.Done()

	for {
		select {
		case r := <-p.ReadingDistributor:
			for _, b := range p.Backends {
				b.Readings <- r
			}
		case <-ctx.Done():
			return
		}
	}
}

// startQualityDistributor fans link-quality summaries out to the backends
func (p *PublisherManager) startQualityDistributor(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	defer wg.Done()

	for {
		select {
		case q := <-p.QualityDistributor:
			for _, b := range p.Backends {
				b.Quality <- q
			}
		case <-ctx.Done():
			return
		}
	}
}
