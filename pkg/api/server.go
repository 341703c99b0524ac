package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edgesim/ttn-emulator-sdk-golang/pkg/entities"
	"github.com/edgesim/ttn-emulator-sdk-golang/pkg/gateways/ttn"
)

// Server bundles router and dependencies for the emulator REST API.
type Server struct {
	addr        string
	bearerToken string
	runCtx      context.Context
	emulator    *ttn.Emulator
	registry    *ttn.Registry
	engine      *gin.Engine
}

// New constructs a server with routes and middleware. runCtx scopes the
// lifetime of the emulation timers started through the API.
func New(addr, bearerToken string, runCtx context.Context, emulator *ttn.Emulator, registry *ttn.Registry) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	if bearerToken != "" {
		engine.Use(bearerAuthMiddleware(bearerToken))
	}

	server := &Server{
		addr:        addr,
		bearerToken: bearerToken,
		runCtx:      runCtx,
		emulator:    emulator,
		registry:    registry,
		engine:      engine,
	}
	server.registerRoutes()
	return server
}

// Engine exposes the underlying gin engine (for tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run starts the HTTP server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	s.engine.GET("/emulator", s.handleEmulatorState)
	s.engine.GET("/emulator/logs", s.handleEmulatorLogs)
	s.engine.POST("/emulator/start", s.handleStart)
	s.engine.POST("/emulator/stop", s.handleStop)
	s.engine.POST("/emulator/send", s.handleSend)
	s.engine.POST("/emulator/reset", s.handleReset)

	s.engine.GET("/devices", s.handleListDevices)
	s.engine.POST("/devices", s.handleUpsertDevice)
	s.engine.PUT("/devices/:device_id/status", s.handleSetDeviceStatus)
	s.engine.DELETE("/devices/:device_id", s.handleDeleteDevice)
}

func bearerAuthMiddleware(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		if token != expected {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (s *Server) handleEmulatorState(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         s.emulator.Status(),
		"readings_count": s.emulator.ReadingsCount(),
		"last_error":     s.emulator.LastError(),
		"active_devices": s.emulator.ActiveDeviceCount(),
	})
}

func (s *Server) handleEmulatorLogs(c *gin.Context) {
	logs := s.emulator.Logs()
	c.JSON(http.StatusOK, gin.H{"count": len(logs), "logs": logs})
}

func (s *Server) handleStart(c *gin.Context) {
	if err := s.emulator.StartEmulation(s.runCtx); err != nil {
		if errors.Is(err, ttn.ErrNoActiveDevices) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": s.emulator.Status()})
}

func (s *Server) handleStop(c *gin.Context) {
	s.emulator.StopEmulation()
	c.JSON(http.StatusOK, gin.H{"status": s.emulator.Status()})
}

func (s *Server) handleSend(c *gin.Context) {
	if err := s.emulator.SendSingleReading(s.runCtx); err != nil {
		if errors.Is(err, ttn.ErrNoActiveDevices) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":         s.emulator.Status(),
		"readings_count": s.emulator.ReadingsCount(),
	})
}

func (s *Server) handleReset(c *gin.Context) {
	s.emulator.ResetEmulation()
	c.JSON(http.StatusOK, gin.H{"status": s.emulator.Status()})
}

func (s *Server) handleListDevices(c *gin.Context) {
	devices := s.registry.Devices()
	list := make([]entities.Device, 0, len(devices))
	for _, device := range devices {
		list = append(list, device)
	}
	c.JSON(http.StatusOK, gin.H{"count": len(list), "devices": list})
}

func (s *Server) handleUpsertDevice(c *gin.Context) {
	var device entities.Device
	if err := c.ShouldBindJSON(&device); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.registry.Upsert(device); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.emulator.Reconcile(s.runCtx, s.registry.Devices())
	c.JSON(http.StatusOK, gin.H{"device": device})
}

func (s *Server) handleSetDeviceStatus(c *gin.Context) {
	deviceID := c.Param("device_id")

	var body struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.registry.SetStatus(deviceID, body.Status); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.emulator.Reconcile(s.runCtx, s.registry.Devices())
	c.JSON(http.StatusOK, gin.H{"device_id": deviceID, "status": body.Status})
}

func (s *Server) handleDeleteDevice(c *gin.Context) {
	deviceID := c.Param("device_id")
	if err := s.registry.Delete(deviceID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	s.emulator.Reconcile(s.runCtx, s.registry.Devices())
	c.JSON(http.StatusOK, gin.H{"device_id": deviceID})
}
