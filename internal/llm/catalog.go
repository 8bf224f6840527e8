package llm

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// Catalog lists models on arbitrary Ollama hosts. Concurrent lookups of the
// same endpoint share one request.
type Catalog struct {
	port    int
	timeout time.Duration
	group   singleflight.Group
}

func NewCatalog(port int, timeout time.Duration) *Catalog {
	if timeout <= 0 {
		timeout = DefaultModelsTimeout
	}
	return &Catalog{port: port, timeout: timeout}
}

// ListModels lists the models of the server at hostIP.
func (c *Catalog) ListModels(ctx context.Context, hostIP string) ([]string, error) {
	baseURL := BaseURL(hostIP, c.port)

	v, err, _ := c.group.Do(baseURL, func() (any, error) {
		// detach from the first caller so its cancellation does not fail the others
		client := NewClient(baseURL, WithModelsTimeout(c.timeout))
		return client.ListModels(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}

	names := v.([]string)
	return append([]string(nil), names...), nil
}
