package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ewilliams-labs/jamhub/internal/core/domain"
	"github.com/ewilliams-labs/jamhub/internal/core/ports"
	"github.com/ewilliams-labs/jamhub/internal/protocol"
)

// ErrAreaNotFound indicates a command addressed an area id the registry does
// not know.
var ErrAreaNotFound = errors.New("area not found")

// ErrAreaExists indicates an attempt to create an area under a taken id.
var ErrAreaExists = errors.New("area already exists")

// AreaRegistry owns every live area, one explicit instance per area id. All
// entry points resolve an id to its single Area and funnel mutation through
// that instance, so there is no ambient shared state.
type AreaRegistry struct {
	mu    sync.RWMutex
	areas map[string]*Area

	emitter  ports.Broadcaster
	store    ports.SavedSongStore
	analysis ports.AnalysisScheduler
}

// NewAreaRegistry builds an empty registry. Every created area shares the
// given broadcaster and saved-song store.
func NewAreaRegistry(emitter ports.Broadcaster, store ports.SavedSongStore) *AreaRegistry {
	return &AreaRegistry{
		areas:   make(map[string]*Area),
		emitter: emitter,
		store:   store,
	}
}

// SetAnalysisScheduler wires background analysis into the registry and every
// existing area. Called once during startup.
func (r *AreaRegistry) SetAnalysisScheduler(s ports.AnalysisScheduler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.analysis = s
	for _, area := range r.areas {
		area.SetAnalysisScheduler(s)
	}
}

// CreateArea instantiates an area with an empty queue and no current song.
func (r *AreaRegistry) CreateArea(id string) (*Area, error) {
	if id == "" {
		return nil, errors.New("area id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.areas[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrAreaExists, id)
	}
	area := NewArea(id, nil, r.emitter, r.store)
	if r.analysis != nil {
		area.SetAnalysisScheduler(r.analysis)
	}
	r.areas[id] = area
	return area, nil
}

// Get resolves an area id.
func (r *AreaRegistry) Get(id string) (*Area, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	area, ok := r.areas[id]
	return area, ok
}

// List snapshots every live area, ordered by id.
func (r *AreaRegistry) List() []domain.AreaModel {
	r.mu.RLock()
	areas := make([]*Area, 0, len(r.areas))
	for _, area := range r.areas {
		areas = append(areas, area)
	}
	r.mu.RUnlock()

	sort.Slice(areas, func(i, j int) bool { return areas[i].ID() < areas[j].ID() })
	models := make([]domain.AreaModel, 0, len(areas))
	for _, area := range areas {
		models = append(models, area.Model())
	}
	return models
}

// HandleCommand routes a decoded command to its area.
func (r *AreaRegistry) HandleCommand(ctx context.Context, areaID, requester string, cmd protocol.Command) ([]domain.Song, error) {
	area, ok := r.Get(areaID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAreaNotFound, areaID)
	}
	return area.HandleCommand(ctx, requester, cmd)
}

// ApplyAnalysis forwards a finished analysis result to its area. A stale
// area id is dropped.
func (r *AreaRegistry) ApplyAnalysis(areaID, songID string, features *domain.AudioFeatures, genre string) {
	if area, ok := r.Get(areaID); ok {
		area.ApplyAnalysis(songID, features, genre)
	}
}
