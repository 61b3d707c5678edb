// Package publishers defines interfaces and implementations for the backends
// that fan decoded readings and link-quality reports out of the process.
package publishers

import (
	"context"
	"sync"

	"github.com/chrissnell/meteostick/internal/types"
)

// Publisher is an interface that provides a standardized method for the
// various publishing backends
type Publisher interface {
	StartPublisher(context.Context, *sync.WaitGroup) (chan<- types.Reading, chan<- types.LinkQualitySummary)
}
