package ollama

import (
	"context"
	"sync"
)

// Holder wraps a Client so the base URL can be reconfigured at runtime
// without rewiring the components holding a transport reference. It exposes
// the same operations as Client and delegates to the current instance.
type Holder struct {
	mutex  sync.RWMutex
	client *Client
}

func NewHolder(client *Client) *Holder {
	return &Holder{client: client}
}

// Swap replaces the underlying client. Streams already opened on the previous
// client keep running until they finish.
func (holder *Holder) Swap(client *Client) {
	holder.mutex.Lock()
	holder.client = client
	holder.mutex.Unlock()
}

func (holder *Holder) current() *Client {
	holder.mutex.RLock()
	defer holder.mutex.RUnlock()

	return holder.client
}

func (holder *Holder) BaseUrl() string {
	return holder.current().BaseUrl()
}

func (holder *Holder) ListModels(ctx context.Context) ([]ModelSummary, error) {
	return holder.current().ListModels(ctx)
}

func (holder *Holder) ShowModel(ctx context.Context, name string) (*ModelDetail, error) {
	return holder.current().ShowModel(ctx, name)
}

func (holder *Holder) PullModel(ctx context.Context, name string, fn PullProgressFunc) error {
	return holder.current().PullModel(ctx, name, fn)
}

func (holder *Holder) ChatStream(ctx context.Context, model string, messages []ChatMessage, fn ChatStreamFunc) error {
	return holder.current().ChatStream(ctx, model, messages, fn)
}
