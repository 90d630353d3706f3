// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the dealer handlers. These give the
// client a more specific reason for closure than the standard codes.
const (
	BadSubprotocolError    = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError  = 3001 // Session token was invalid or expired.
	WrongDealerTokenError  = 3002 // Session token is bound to a different dealer.
	UnknownDealerCodeError = 3003 // Dealer code in the WS URL does not exist.
)
