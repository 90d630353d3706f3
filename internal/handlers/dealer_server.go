// internal/handlers/dealer_server.go
package handlers

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"uno-dealer/internal/cache"
	"uno-dealer/internal/database"
	"uno-dealer/internal/game"
	"uno-dealer/internal/models"
	"uno-dealer/internal/store"
)

// DealerServer holds the live dealers plus the stores they persist into. It
// also owns the per-dealer connection registry used by the broadcast
// closures.
type DealerServer struct {
	Dealers *game.DealerStore
	Desks   *store.DeskStore
	Logf    func(f string, v ...interface{})

	connMu sync.Mutex
	conns  map[string]map[string]*models.Player // dealer code -> player code -> conn
}

func NewDealerServer(desks *store.DeskStore) *DealerServer {
	return &DealerServer{
		Dealers: game.NewDealerStore(),
		Desks:   desks,
		Logf:    log.Printf,
		conns:   make(map[string]map[string]*models.Player),
	}
}

// NewDealerFromMatch fetches the seated players from the master data, builds
// an in-memory Dealer, and wires its persistence and lifecycle hooks.
func (ds *DealerServer) NewDealerFromMatch(ctx context.Context, dealerCode string, cfg game.Config) (*game.Dealer, error) {
	seats, err := database.FetchSeatedPlayers(ctx, dealerCode)
	if err != nil {
		return nil, err
	}
	players := make([]string, 0, len(seats))
	for _, s := range seats {
		players = append(players, s.Player)
	}

	d := game.NewDealer(dealerCode, players, cfg)
	ds.wireDealer(d)
	ds.Dealers.AddDealer(d)
	return d, nil
}

// wireDealer installs the persistence and lifecycle hooks on a Dealer.
func (ds *DealerServer) wireDealer(d *game.Dealer) {
	dealerCode := d.Code

	// Persist every accepted state change to the keyed Desk store. The hook
	// runs with the dealer lock held and the Desk keeps mutating once the
	// lock is released, so marshal synchronously and hand only the bytes to
	// the async write.
	d.OnDeskChange = func(desk *game.Desk) {
		if ds.Desks == nil {
			return
		}
		data, err := json.Marshal(desk)
		if err != nil {
			ds.Logf("failed to marshal desk %s: %v", dealerCode, err)
			return
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := ds.Desks.SetData(ctx, dealerCode, data); err != nil {
				ds.Logf("failed to store desk %s: %v", dealerCode, err)
			}
		}()
	}

	d.OnMatchEnd = func(code, winner string, scores map[string]int) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := database.RecordMatchResult(ctx, code, winner, scores); err != nil {
				ds.Logf("failed to record result for match %s: %v", code, err)
			}
			if ds.Desks != nil {
				if err := ds.Desks.Delete(ctx, code); err != nil {
					ds.Logf("failed to delete desk %s: %v", code, err)
				}
			}
		}()
	}
}

// registerConn binds a player's live connection to a dealer, replacing any
// previous connection for the same seat.
func (ds *DealerServer) registerConn(dealerCode string, p *models.Player) {
	ds.connMu.Lock()
	defer ds.connMu.Unlock()
	if ds.conns[dealerCode] == nil {
		ds.conns[dealerCode] = make(map[string]*models.Player)
	}
	ds.conns[dealerCode][p.Code] = p
}

// unregisterConn drops the registered connection if it still belongs to the
// departing player. A newer connection for the same seat is left alone.
func (ds *DealerServer) unregisterConn(dealerCode string, p *models.Player) {
	ds.connMu.Lock()
	defer ds.connMu.Unlock()
	if cur, ok := ds.conns[dealerCode][p.Code]; ok && cur == p {
		cur.Connected = false
		delete(ds.conns[dealerCode], p.Code)
	}
}

// connectedPlayers returns the currently connected players for a dealer.
func (ds *DealerServer) connectedPlayers(dealerCode string) []*models.Player {
	ds.connMu.Lock()
	defer ds.connMu.Unlock()
	players := make([]*models.Player, 0, len(ds.conns[dealerCode]))
	for _, p := range ds.conns[dealerCode] {
		if p.Connected && p.Conn != nil {
			players = append(players, p)
		}
	}
	return players
}

// connFor returns the live connection for one seat, or nil.
func (ds *DealerServer) connFor(dealerCode, playerCode string) *models.Player {
	ds.connMu.Lock()
	defer ds.connMu.Unlock()
	p := ds.conns[dealerCode][playerCode]
	if p == nil || !p.Connected || p.Conn == nil {
		return nil
	}
	return p
}

// publishAction pushes the accepted action onto the historian queue. Fire and
// forget; a failed publish never blocks play.
func (ds *DealerServer) publishAction(dealerCode, player string, action models.DealerAction, index int) {
	record := cache.DealerActionRecord{
		DealerCode:    dealerCode,
		ActionIndex:   index,
		Player:        player,
		ActionType:    action.ActionType,
		ActionPayload: action.Payload,
		Timestamp:     time.Now().UnixMilli(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := cache.PublishDealerAction(ctx, record); err != nil {
			ds.Logf("failed to publish action log for %s: %v", dealerCode, err)
		}
	}()
}
