// internal/handlers/dealer_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"uno-dealer/internal/auth"
	"uno-dealer/internal/game"
	"uno-dealer/internal/middleware"
	"uno-dealer/internal/models"
)

// DealerMessage is the envelope for inbound WebSocket messages during play.
type DealerMessage struct {
	Type string `json:"type"`

	// Card is the card being played, for play_card.
	Card *models.Card `json:"card,omitempty"`

	// YellUno declares UNO together with a play_card or play_draw_card.
	YellUno bool `json:"yell_uno,omitempty"`

	// Color carries the colour for color_of_wild, or an eager colour choice
	// bundled with a wild play.
	Color models.Color `json:"color_of_wild,omitempty"`

	// IsPlayCard decides the draw-then-play window for play_draw_card.
	IsPlayCard bool `json:"is_play_card,omitempty"`

	// IsChallenge decides a challenge message.
	IsChallenge bool `json:"is_challenge,omitempty"`

	// Target names the accused player for pointed_not_say_uno.
	Target string `json:"target,omitempty"`

	// Title names the extension hook for special_logic.
	Title string `json:"title,omitempty"`
}

// DealerWSHandler upgrades the HTTP connection to WebSocket for one dealer.
// It authenticates the session token, verifies the seat binding, registers
// the connection, and runs the read loop until the client goes away.
func DealerWSHandler(logger *logrus.Logger, ds *DealerServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// URL path: /dealer/ws/{code}
		code := strings.TrimPrefix(r.URL.Path, "/dealer/ws/")
		if idx := strings.Index(code, "/"); idx != -1 {
			code = code[:idx]
		}
		if code == "" {
			http.Error(w, "Missing dealer code in path (/dealer/ws/{code})", http.StatusBadRequest)
			return
		}

		d, ok := ds.Dealers.GetDealer(code)
		if !ok {
			http.Error(w, "Dealer not found", http.StatusNotFound)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"dealer"},
			OriginPatterns: []string{"*"}, // Adjust for production security.
		})
		if err != nil {
			logger.Warnf("WebSocket accept error for dealer %s: %v", code, err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")

		if c.Subprotocol() != "dealer" {
			logger.Warnf("Client for dealer %s connected with invalid subprotocol: %s", code, c.Subprotocol())
			c.Close(websocket.StatusCode(BadSubprotocolError), "Client must use the 'dealer' subprotocol.")
			return
		}
		middleware.LogSocketConnect(logger, r.RemoteAddr, code)

		// Session token from query param, falling back to cookie.
		token := r.URL.Query().Get("token")
		if token == "" {
			token = extractCookieToken(r.Header.Get("Cookie"), "session_token")
		}
		player, boundDealer, err := auth.AuthenticatePlayerToken(token)
		if err != nil {
			logger.Warnf("Session auth failed for dealer %s: %v", code, err)
			c.Close(websocket.StatusCode(InvalidAuthTokenError), "Authentication failed.")
			return
		}
		if boundDealer != code {
			logger.Warnf("Player %s presented a token for dealer %s at dealer %s.", player, boundDealer, code)
			c.Close(websocket.StatusCode(WrongDealerTokenError), "Token is bound to a different dealer.")
			return
		}

		if !ds.admitPlayer(d, player, logger) {
			logger.Warnf("Player %s is not seated at dealer %s. Closing connection.", player, code)
			c.Close(websocket.StatusPolicyViolation, "You are not seated at this dealer.")
			return
		}

		p := &models.Player{Code: player, Connected: true, Conn: c}
		ds.registerConn(code, p)
		d.HandleReconnect(player)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		readErr := readDealerMessages(ctx, c, ds, d, player, logger)

		ds.unregisterConn(code, p)
		d.HandleDisconnect(player)
		middleware.LogSocketDisconnect(logger, r.RemoteAddr, code, readErr)
	}
}

// admitPlayer checks the seat and installs the broadcast closures in one
// critical section so the dealer state cannot shift between the two. It
// returns false when the player holds no seat at this dealer.
func (ds *DealerServer) admitPlayer(d *game.Dealer, player string, logger *logrus.Logger) bool {
	d.Mu.Lock()
	defer d.Mu.Unlock()
	if !d.Desk.Seated(player) {
		return false
	}
	if d.BroadcastFn == nil {
		d.BroadcastFn = createBroadcastFunc(ds, d.Code, logger)
	}
	if d.BroadcastToPlayerFn == nil {
		d.BroadcastToPlayerFn = createBroadcastToPlayerFunc(ds, d.Code, logger)
	}
	return true
}

// createBroadcastFunc returns a function suitable for Dealer.BroadcastFn.
// It marshals the event and sends it asynchronously to all connected players.
func createBroadcastFunc(ds *DealerServer, dealerCode string, logger *logrus.Logger) func(ev game.Event) {
	return func(ev game.Event) {
		// Called while the dealer lock is held. The connection registry has
		// its own lock, so collecting recipients here cannot block play.
		players := ds.connectedPlayers(dealerCode)

		msgBytes, err := json.Marshal(ev)
		if err != nil {
			logger.Errorf("Failed to marshal broadcast event (%s) for dealer %s: %v", ev.Type, dealerCode, err)
			return
		}

		go func(players []*models.Player, data []byte) {
			for _, pl := range players {
				if pl.Conn == nil {
					continue
				}
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				err := pl.Conn.Write(ctx, websocket.MessageText, data)
				cancel()
				if err != nil {
					logger.Warnf("Failed to write broadcast message to player %s at dealer %s: %v", pl.Code, dealerCode, err)
				}
			}
		}(players, msgBytes)
	}
}

// createBroadcastToPlayerFunc returns a function suitable for
// Dealer.BroadcastToPlayerFn. It finds the target connection and sends the
// event asynchronously.
func createBroadcastToPlayerFunc(ds *DealerServer, dealerCode string, logger *logrus.Logger) func(player string, ev game.Event) {
	return func(player string, ev game.Event) {
		target := ds.connFor(dealerCode, player)
		if target == nil {
			return
		}

		msgBytes, err := json.Marshal(ev)
		if err != nil {
			logger.Errorf("Failed to marshal private event (%s) for player %s at dealer %s: %v", ev.Type, player, dealerCode, err)
			return
		}

		go func(conn *websocket.Conn, data []byte) {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
				logger.Warnf("Failed to write private message to player %s at dealer %s: %v", player, dealerCode, err)
			}
		}(target.Conn, msgBytes)
	}
}

// readDealerMessages reads messages from one client connection, routes them
// to the dealer's action handlers under the dealer lock, and reports the
// outcome back to the sender. Returns the terminal read error, if any.
func readDealerMessages(ctx context.Context, c *websocket.Conn, ds *DealerServer, d *game.Dealer, player string, logger *logrus.Logger) error {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				logger.Infof("WebSocket closed normally for player %s at dealer %s.", player, d.Code)
				return nil
			}
			if strings.Contains(err.Error(), "context canceled") {
				logger.Infof("WebSocket context canceled for player %s at dealer %s.", player, d.Code)
				return nil
			}
			logger.Warnf("Error reading from WebSocket for player %s at dealer %s: %v", player, d.Code, err)
			return err
		}

		if msgType != websocket.MessageText {
			logger.Warnf("Received non-text message type %d from player %s at dealer %s. Ignoring.", msgType, player, d.Code)
			continue
		}

		var msg DealerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warnf("Invalid JSON from player %s at dealer %s: %v. Data: %s", player, d.Code, err, string(data))
			sendWsError(c, game.ErrValidation, "Invalid JSON format.")
			continue
		}

		if msg.Type == "ping" {
			sendWsMessage(c, map[string]string{"type": "pong"})
			continue
		}

		logger.Debugf("Received action '%s' from player %s at dealer %s.", msg.Type, player, d.Code)
		handleDealerMessage(ds, d, c, player, msg, logger)

		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

// handleDealerMessage routes one inbound action under the dealer lock and
// acknowledges or rejects it on the sender's connection.
func handleDealerMessage(ds *DealerServer, d *game.Dealer, c *websocket.Conn, player string, msg DealerMessage, logger *logrus.Logger) {
	var actionErr *game.Error

	d.Mu.Lock()
	actionIndex := d.Desk.NumberTurnPlay

	switch msg.Type {
	case "play_card":
		if msg.Card == nil {
			actionErr = &game.Error{Code: game.ErrValidation, Message: "play_card requires a card"}
		} else {
			actionErr = d.HandlePlayCard(player, *msg.Card, msg.YellUno, msg.Color)
		}
	case "draw_card":
		actionErr = d.HandleDrawCard(player)
	case "play_draw_card":
		actionErr = d.HandlePlayDrawCard(player, msg.IsPlayCard, msg.YellUno, msg.Color)
	case "color_of_wild":
		actionErr = d.HandleColorOfWild(player, msg.Color)
	case "challenge":
		actionErr = d.HandleChallenge(player, msg.IsChallenge)
	case "pointed_not_say_uno":
		actionErr = d.HandlePointedNotSayUno(player, msg.Target)
	case "special_logic":
		actionErr = d.HandleSpecialLogic(player, msg.Title)
	default:
		actionErr = &game.Error{Code: game.ErrValidation, Message: fmt.Sprintf("unknown action type: %s", msg.Type)}
	}
	d.Mu.Unlock()

	if actionErr != nil {
		logger.Debugf("Action '%s' from player %s at dealer %s rejected: %s (%s).", msg.Type, player, d.Code, actionErr.Message, actionErr.Code)
		sendWsError(c, actionErr.Code, actionErr.Message)
		return
	}

	sendWsMessage(c, map[string]interface{}{"type": "ack", "action": msg.Type})
	ds.publishAction(d.Code, player, models.DealerAction{
		ActionType: msg.Type,
		Payload:    actionPayload(msg),
	}, actionIndex)
}

// actionPayload flattens the envelope into the payload map stored on the
// historian queue.
func actionPayload(msg DealerMessage) map[string]interface{} {
	payload := map[string]interface{}{}
	if msg.Card != nil {
		payload["card"] = msg.Card
	}
	if msg.YellUno {
		payload["yell_uno"] = true
	}
	if msg.Color != "" {
		payload["color_of_wild"] = msg.Color
	}
	switch msg.Type {
	case "play_draw_card":
		payload["is_play_card"] = msg.IsPlayCard
	case "challenge":
		payload["is_challenge"] = msg.IsChallenge
	case "pointed_not_say_uno":
		payload["target"] = msg.Target
	case "special_logic":
		payload["title"] = msg.Title
	}
	return payload
}

// sendWsMessage marshals a message and sends it to the WebSocket client with
// a write timeout.
func sendWsMessage(c *websocket.Conn, message interface{}) {
	if c == nil {
		return
	}
	msgBytes, err := json.Marshal(message)
	if err != nil {
		return
	}
	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = c.Write(writeCtx, websocket.MessageText, msgBytes)
}

// sendWsError sends a structured rejection to the client: the stable error
// code plus a human-readable message.
func sendWsError(c *websocket.Conn, code game.ErrorCode, message string) {
	sendWsMessage(c, map[string]interface{}{
		"type":       "error",
		"error_code": code,
		"message":    message,
	})
}
