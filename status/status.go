// Package status serves the state of the frame loop over HTTP.
package status

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jd3nn1s/handsim"
	log "github.com/sirupsen/logrus"
)

// StaleAfter is how long without a frame before the loop is reported
// unhealthy.
const StaleAfter = 2 * time.Second

type ApiResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

type PoseResponse struct {
	Pos  [3]float64 `json:"pos"`
	Quat [4]float64 `json:"quat"`
}

type StatusResponse struct {
	Frame     uint64       `json:"frame"`
	FPS       float64      `json:"fps"`
	Grip      float64      `json:"grip"`
	Pose      PoseResponse `json:"pose"`
	Qpos      []float64    `json:"qpos"`
	FrameTime time.Time    `json:"frameTime"`
	Uptime    string       `json:"uptime"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Frames    uint64    `json:"frames"`
}

// Server is a Forwarder keeping the last frame for its HTTP handlers.
type Server struct {
	startTime time.Time
	now       func() time.Time

	mu       sync.RWMutex
	frame    *handsim.Frame
	received time.Time
}

func NewServer() *Server {
	return &Server{
		startTime: time.Now(),
		now:       time.Now,
	}
}

func (s *Server) Forward(newFrame *handsim.Frame, prevFrame *handsim.Frame) error {
	f := newFrame.Copy()
	s.mu.Lock()
	s.frame = f
	s.received = s.now()
	s.mu.Unlock()
	return nil
}

func (s *Server) lastFrame() (*handsim.Frame, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frame, s.received
}

// Handler returns the gin engine with every route installed.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Length", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))
	s.SetupRoutes(r)
	return r
}

func (s *Server) SetupRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.GET("/status", s.handleGetStatus)
		api.GET("/health", s.handleHealthCheck)
	}
}

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	log.WithField("addr", addr).Info("status server listening")
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) handleGetStatus(c *gin.Context) {
	frame, _ := s.lastFrame()
	if frame == nil {
		c.JSON(http.StatusServiceUnavailable, ApiResponse{
			Status: "error",
			Error:  "no frame yet",
		})
		return
	}
	c.JSON(http.StatusOK, ApiResponse{
		Status: "success",
		Data: StatusResponse{
			Frame: frame.Number,
			FPS:   frame.FPS,
			Grip:  frame.Sample.Grip,
			Pose: PoseResponse{
				Pos:  frame.Sample.Pose.Pos,
				Quat: frame.Sample.Pose.Quat,
			},
			Qpos:      frame.Qpos,
			FrameTime: frame.Time,
			Uptime:    s.now().Sub(s.startTime).Round(time.Second).String(),
		},
	})
}

func (s *Server) handleHealthCheck(c *gin.Context) {
	frame, received := s.lastFrame()
	now := s.now()
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: now,
	}
	switch {
	case frame == nil:
		response.Status = "starting"
	case now.Sub(received) > StaleAfter:
		response.Status = "stalled"
	}
	if frame != nil {
		response.Frames = frame.Number
	}

	httpStatus := http.StatusOK
	if response.Status != "healthy" {
		httpStatus = http.StatusServiceUnavailable
	}
	c.JSON(httpStatus, ApiResponse{
		Status: "success",
		Data:   response,
	})
}
