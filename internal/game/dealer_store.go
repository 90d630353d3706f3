package game

import (
	"sync"
)

// DealerStore holds the live Dealer instances, keyed by dealer code.
type DealerStore struct {
	mu      sync.Mutex
	dealers map[string]*Dealer
}

func NewDealerStore() *DealerStore {
	return &DealerStore{
		dealers: make(map[string]*Dealer),
	}
}

func (s *DealerStore) AddDealer(d *Dealer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dealers[d.Code] = d
}

func (s *DealerStore) GetDealer(code string) (*Dealer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, exists := s.dealers[code]
	return d, exists
}

func (s *DealerStore) DeleteDealer(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, exists := s.dealers[code]; exists {
		d.Stop()
		delete(s.dealers, code)
	}
}

// Codes returns the codes of all live dealers.
func (s *DealerStore) Codes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	codes := make([]string, 0, len(s.dealers))
	for code := range s.dealers {
		codes = append(codes, code)
	}
	return codes
}
