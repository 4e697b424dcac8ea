package repository

import (
	"context"
	"strconv"
	"sync"

	"github.com/KunBoy5240/chatgpt-on-wechat/pkg/domain"
)

type generationMemoryRepository struct {
	mu          sync.RWMutex
	lastID      int64
	generations map[string]domain.Generation
}

func NewGenerationMemoryRepository() *generationMemoryRepository {
	return &generationMemoryRepository{
		generations: make(map[string]domain.Generation),
	}
}

func (g *generationMemoryRepository) Save(_ context.Context, generation domain.Generation) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.lastID++
	generation.ID = strconv.FormatInt(g.lastID, 10)
	generation.Params = generation.Params.Clone()
	g.generations[generation.ID] = generation

	return generation.ID, nil
}

func (g *generationMemoryRepository) GetByID(_ context.Context, id string) (*domain.Generation, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	generation, ok := g.generations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	generation.Params = generation.Params.Clone()
	return &generation, nil
}

func (g *generationMemoryRepository) Close() error {
	return nil
}
