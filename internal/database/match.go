package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// SeatRecord is one seated player row for a match, in seat order.
type SeatRecord struct {
	Player string
	Team   string
	Seat   int
}

// CreateMatch inserts the master record for a new match and returns its row ID.
func CreateMatch(ctx context.Context, dealerCode string, totalTurn int) (uuid.UUID, error) {
	id, _ := uuid.NewRandom()
	q := `
		INSERT INTO matches (id, dealer_code, total_turn, status)
		VALUES ($1, $2, $3, 'new')
	`
	if _, err := DB.Exec(ctx, q, id, dealerCode, totalTurn); err != nil {
		return uuid.Nil, fmt.Errorf("insert match %s: %w", dealerCode, err)
	}
	return id, nil
}

// FetchSeatedPlayers loads the seated players for a match in seat order.
func FetchSeatedPlayers(ctx context.Context, dealerCode string) ([]SeatRecord, error) {
	q := `
		SELECT s.player_code, COALESCE(s.team, ''), s.seat_position
		FROM match_seats s
		JOIN matches m ON s.match_id = m.id
		WHERE m.dealer_code = $1
		ORDER BY s.seat_position
	`
	rows, err := DB.Query(ctx, q, dealerCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var seats []SeatRecord
	for rows.Next() {
		var rec SeatRecord
		if err := rows.Scan(&rec.Player, &rec.Team, &rec.Seat); err != nil {
			return nil, err
		}
		seats = append(seats, rec)
	}
	return seats, rows.Err()
}

// SeatPlayer records a player taking a seat at a match.
func SeatPlayer(ctx context.Context, dealerCode, player, team string, seat int) error {
	q := `
		INSERT INTO match_seats (match_id, player_code, team, seat_position)
		SELECT m.id, $2, NULLIF($3, ''), $4 FROM matches m WHERE m.dealer_code = $1
		ON CONFLICT (match_id, player_code) DO NOTHING
	`
	if _, err := DB.Exec(ctx, q, dealerCode, player, team, seat); err != nil {
		return fmt.Errorf("seat player %s at %s: %w", player, dealerCode, err)
	}
	return nil
}

// RecordMatchResult stores the winner and final score table once a match
// finishes.
func RecordMatchResult(ctx context.Context, dealerCode, winner string, scores map[string]int) error {
	scoreJSON, err := json.Marshal(scores)
	if err != nil {
		return fmt.Errorf("marshal scores for %s: %w", dealerCode, err)
	}
	q := `
		UPDATE matches
		SET status = 'finished', winner = $2, scores = $3, finished_at = now()
		WHERE dealer_code = $1
	`
	if _, err := DB.Exec(ctx, q, dealerCode, winner, scoreJSON); err != nil {
		return fmt.Errorf("record result for %s: %w", dealerCode, err)
	}
	return nil
}
