package sidechain

import (
	"sort"
	"strings"
	"sync"
)

// BusManager owns sidechain buses, keyed by explicit bus ID.
type BusManager struct {
	mu     sync.RWMutex
	buses  map[string]*Bus
	cfg    BusConfig
	logger Logger
}

// NewBusManager creates a manager whose new buses use cfg.
func NewBusManager(cfg BusConfig) (*BusManager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &BusManager{
		buses:  make(map[string]*Bus),
		cfg:    cfg,
		logger: noopLogger{},
	}, nil
}

// SetLogger sets the logger for the manager.
func (bm *BusManager) SetLogger(logger Logger) {
	bm.logger = logger
}

// GetOrCreateBus returns the bus with id, creating it if needed. created
// reports whether a new bus was made.
func (bm *BusManager) GetOrCreateBus(id, name string) (bus *Bus, created bool, err error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, false, ErrEmptyName
	}

	bm.mu.Lock()
	defer bm.mu.Unlock()

	if b, ok := bm.buses[id]; ok {
		return b, false, nil
	}
	b, err := NewBus(id, name, bm.cfg)
	if err != nil {
		return nil, false, err
	}
	bm.buses[id] = b
	sidechainBuses.Inc()
	bm.logger.Info("sidechain bus created", "bus_id", id, "name", b.Name())
	return b, true, nil
}

// AddBus adds an existing bus. Returns false if its ID is taken.
func (bm *BusManager) AddBus(b *Bus) bool {
	if b == nil {
		return false
	}
	bm.mu.Lock()
	defer bm.mu.Unlock()

	if _, ok := bm.buses[b.id]; ok {
		return false
	}
	bm.buses[b.id] = b
	sidechainBuses.Inc()
	return true
}

// RemoveBus removes a bus. Returns false if it does not exist.
func (bm *BusManager) RemoveBus(id string) bool {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	if _, ok := bm.buses[id]; !ok {
		return false
	}
	delete(bm.buses, id)
	sidechainBuses.Dec()
	bm.logger.Info("sidechain bus removed", "bus_id", id)
	return true
}

// Bus returns the bus with id, or nil.
func (bm *BusManager) Bus(id string) *Bus {
	bm.mu.RLock()
	defer bm.mu.RUnlock()
	return bm.buses[id]
}

// Buses returns every bus sorted by ID.
func (bm *BusManager) Buses() []*Bus {
	bm.mu.RLock()
	buses := make([]*Bus, 0, len(bm.buses))
	for _, b := range bm.buses {
		buses = append(buses, b)
	}
	bm.mu.RUnlock()

	sort.Slice(buses, func(i, j int) bool { return buses[i].id < buses[j].id })
	return buses
}
