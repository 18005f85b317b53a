package service

import (
	"context"
	"fmt"

	"github.com/excalisketch/socket/src/auth"
	"github.com/excalisketch/socket/src/hub"
	"github.com/excalisketch/socket/src/store"
	"github.com/excalisketch/socket/src/types"
	"github.com/rs/zerolog"
)

// Service provides the high-level chat socket API used by the transport.
type Service struct {
	hub          *hub.Hub
	verifier     auth.Verifier
	store        store.Store
	historyLimit int
	logger       zerolog.Logger
}

// New creates a service over the hub. historyLimit caps History results.
func New(h *hub.Hub, verifier auth.Verifier, st store.Store, historyLimit int, logger zerolog.Logger) *Service {
	if historyLimit <= 0 {
		historyLimit = 1000
	}
	return &Service{
		hub:          h,
		verifier:     verifier,
		store:        st,
		historyLimit: historyLimit,
		logger:       logger.With().Str("component", "service").Logger(),
	}
}

// Authenticate resolves a connection token to a user id.
func (s *Service) Authenticate(token string) (string, error) {
	userID, err := s.verifier.Verify(token)
	if err != nil {
		s.logger.Debug().Err(err).Msg("token rejected")
		return "", err
	}
	return userID, nil
}

// Serve admits an authenticated connection and runs its pumps. It blocks
// until the connection is gone and the client has been evicted.
func (s *Service) Serve(conn types.Conn, userID string) {
	client := s.hub.Admit(conn, userID)
	go client.WritePump()
	client.ReadPump()
}

// History returns the newest messages of a room. limit is clamped to the
// configured maximum; zero or negative means the maximum.
func (s *Service) History(ctx context.Context, roomID int64, limit int) ([]types.ChatMessage, error) {
	if limit <= 0 || limit > s.historyLimit {
		limit = s.historyLimit
	}
	msgs, err := s.store.History(ctx, roomID, limit)
	if err != nil {
		s.logger.Error().Err(err).Int64("room", roomID).Msg("history query failed")
		return nil, fmt.Errorf("history for room %d: %w", roomID, err)
	}
	return msgs, nil
}

// OnConnection registers a callback for new connections.
func (s *Service) OnConnection(cb func(clientID string)) {
	s.hub.OnConnection(func(c *hub.Client) { cb(c.ID) })
}

// OnDisconnection registers a callback for disconnections.
func (s *Service) OnDisconnection(cb func(clientID string)) {
	s.hub.OnDisconnection(func(c *hub.Client) { cb(c.ID) })
}

// GetConnectedClients returns IDs of all connected clients.
func (s *Service) GetConnectedClients() []string {
	return s.hub.ConnectedClients()
}

// ClientCount returns the number of live connections.
func (s *Service) ClientCount() int {
	return s.hub.ClientCount()
}

// GetRooms returns active rooms with member counts.
func (s *Service) GetRooms() map[string]int {
	return s.hub.Rooms()
}

// GetClientInfo returns info for a connected client, or error.
func (s *Service) GetClientInfo(clientID string) (*types.ClientInfo, error) {
	info := s.hub.ClientInfo(clientID)
	if info == nil {
		return nil, fmt.Errorf("client %s not found", clientID)
	}
	return info, nil
}
