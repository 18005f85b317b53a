// Package transport exposes the chat service over HTTP: the WebSocket
// endpoint on fasthttp and the REST routes on Fiber.
package transport

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/excalisketch/socket/config"
	"github.com/excalisketch/socket/src/service"
	"github.com/excalisketch/socket/src/types"
	"github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

// WebSocketPath is where clients open their socket.
const WebSocketPath = "/ws"

const historyTimeout = 5 * time.Second

// Server routes WebSocket upgrades to the service and everything else to
// the Fiber app.
type Server struct {
	cfg      config.ServerConfig
	svc      *service.Service
	app      *fiber.App
	upgrader websocket.FastHTTPUpgrader
	http     *fasthttp.Server
	origins  map[string]struct{}
	anyOrig  bool
	logger   zerolog.Logger

	// sockets counts reserved upgrade slots, from the limit check until
	// the socket is served out.
	sockets atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
}

// New builds the server and registers its routes.
func New(cfg config.ServerConfig, svc *service.Service, logger zerolog.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:     cfg,
		svc:     svc,
		app:     fiber.New(fiber.Config{AppName: "excalisketch-socket"}),
		origins: make(map[string]struct{}),
		logger:  logger.With().Str("component", "transport").Logger(),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			s.anyOrig = true
			continue
		}
		s.origins[strings.TrimRight(o, "/")] = struct{}{}
	}
	s.upgrader = websocket.FastHTTPUpgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin:     s.checkOrigin,
	}

	s.RegisterRoutes(s.app)

	s.http = &fasthttp.Server{
		Handler: s.Handler(),
		Name:    "excalisketch-socket",
	}
	return s
}

// RegisterRoutes registers the REST routes.
func (s *Server) RegisterRoutes(group fiber.Router) {
	group.Get("/ws/info", s.handleInfo)
	group.Get("/ws/clients", s.handleClients)
	group.Get("/chats/:roomId", s.handleHistory)
	group.Get("/healthz", s.handleHealth)
}

// Handler returns the combined request handler. Fiber v3 does not expose
// the raw *fasthttp.RequestCtx the upgrader needs, so the socket path is
// split off before the app.
func (s *Server) Handler() fasthttp.RequestHandler {
	appHandler := s.app.Handler()
	return func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) == WebSocketPath {
			s.handleSocket(ctx)
			return
		}
		appHandler(ctx)
	}
}

// ListenAndServe serves on the configured address until Shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Info().Str("addr", s.cfg.Addr).Msg("listening")
	return s.http.ListenAndServe(s.cfg.Addr)
}

// Serve serves on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	return s.http.Serve(ln)
}

// Shutdown stops accepting requests and waits for in-flight HTTP requests.
// Upgraded sockets are hijacked and are closed by the hub instead.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	return s.http.ShutdownWithContext(ctx)
}

func (s *Server) handleSocket(ctx *fasthttp.RequestCtx) {
	if !websocket.FastHTTPIsWebSocketUpgrade(ctx) {
		ctx.SetStatusCode(fasthttp.StatusUpgradeRequired)
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"error":"upgrade_required","message":"WebSocket upgrade required"}`)
		return
	}

	userID, err := s.svc.Authenticate(string(ctx.QueryArgs().Peek("token")))
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusUnauthorized)
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"error":"unauthorized","message":"invalid or missing token"}`)
		return
	}

	if !s.reserve() {
		s.logger.Warn().Int("max_connections", s.cfg.MaxConnections).Msg("connection limit reached")
		ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"error":"unavailable","message":"too many connections"}`)
		return
	}

	err = s.upgrader.Upgrade(ctx, func(conn *websocket.Conn) {
		defer s.sockets.Add(-1)
		s.svc.Serve(conn, userID)
	})
	if err != nil {
		s.sockets.Add(-1)
		s.logger.Error().Err(err).Str("user_id", userID).Msg("websocket upgrade failed")
	}
}

// reserve takes a socket slot, or reports false when MaxConnections slots
// are already taken. A non-positive limit never refuses.
func (s *Server) reserve() bool {
	n := s.sockets.Add(1)
	if limit := s.cfg.MaxConnections; limit > 0 && n > int64(limit) {
		s.sockets.Add(-1)
		return false
	}
	return true
}

func (s *Server) checkOrigin(ctx *fasthttp.RequestCtx) bool {
	if s.anyOrig {
		return true
	}
	origin := string(ctx.Request.Header.Peek("Origin"))
	if origin == "" {
		return true
	}
	_, ok := s.origins[strings.TrimRight(origin, "/")]
	return ok
}

func (s *Server) handleInfo(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"websocket": true,
		"endpoint":  WebSocketPath,
		"clients":   s.svc.ClientCount(),
		"rooms":     len(s.svc.GetRooms()),
	})
}

// handleClients lists connected clients with their joined rooms.
func (s *Server) handleClients(c fiber.Ctx) error {
	ids := s.svc.GetConnectedClients()
	clients := make([]*types.ClientInfo, 0, len(ids))
	for _, id := range ids {
		// The client may disconnect between the two calls.
		if info, err := s.svc.GetClientInfo(id); err == nil {
			clients = append(clients, info)
		}
	}
	return c.JSON(fiber.Map{
		"clients": clients,
		"rooms":   s.svc.GetRooms(),
	})
}

func (s *Server) handleHistory(c fiber.Ctx) error {
	roomID, err := strconv.ParseInt(c.Params("roomId"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "bad_room",
			"message": "roomId must be an integer",
		})
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   "bad_limit",
				"message": "limit must be a non-negative integer",
			})
		}
	}

	ctx, cancel := context.WithTimeout(s.ctx, historyTimeout)
	defer cancel()

	msgs, err := s.svc.History(ctx, roomID, limit)
	if err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) {
			status = fiber.StatusGatewayTimeout
		}
		return c.Status(status).JSON(fiber.Map{
			"error":    "history_unavailable",
			"messages": []types.ChatMessage{},
		})
	}
	return c.JSON(fiber.Map{"messages": msgs})
}

func (s *Server) handleHealth(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
