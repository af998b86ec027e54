package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/botgrid/gateway/pkg/models"
)

// MemoryRegistry is a map-backed Registry used by tests and zero-config
// deployments.
type MemoryRegistry struct {
	mu   sync.RWMutex
	bots map[string]models.Bot
}

// NewMemoryRegistry creates an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		bots: make(map[string]models.Bot),
	}
}

func (r *MemoryRegistry) Resolve(ctx context.Context, name string) (*models.Bot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bot, ok := r.bots[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return &bot, nil
}

func (r *MemoryRegistry) List(ctx context.Context) ([]models.Bot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bots := make([]models.Bot, 0, len(r.bots))
	for _, bot := range r.bots {
		bots = append(bots, bot)
	}
	sort.Slice(bots, func(i, j int) bool { return bots[i].Name < bots[j].Name })
	return bots, nil
}

func (r *MemoryRegistry) Register(ctx context.Context, bot *models.Bot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bots[bot.Name]; exists {
		return fmt.Errorf("bot %q is already registered", bot.Name)
	}
	r.bots[bot.Name] = *bot
	return nil
}

func (r *MemoryRegistry) Ping(ctx context.Context) error {
	return nil
}

func (r *MemoryRegistry) Close() error {
	return nil
}
