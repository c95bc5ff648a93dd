// Copyright 2026 The Andastra Authors. All rights reserved.

package hal

import (
	"fmt"
	"log/slog"
	"time"
)

// FrameStats is the per-frame statistics snapshot published by
// Session.EndFrame.
type FrameStats struct {
	FrameIndex        int
	DrawCalls         int
	Dispatches        int
	RayDispatches     int
	TrianglesRendered int
	// UniqueTextures is the number of distinct textures
	// referenced by lists submitted this frame.
	UniqueTextures int
	// VideoMemoryDelta is the change in the device's video
	// memory estimate across the frame, in bytes.
	VideoMemoryDelta int64
	// CPUTime spans BeginFrame to EndFrame.
	CPUTime time.Duration
	// FrameTime spans the previous EndFrame to this one.
	FrameTime time.Duration
	// GPUTime is estimated as FrameTime - CPUTime until real
	// timestamp-query resolution is wired in.
	GPUTime time.Duration
	// RayTracingTime is the CPU-side submission time of lists
	// containing raytracing work.
	RayTracingTime time.Duration
}

// Session owns one Device and drives per-frame bookkeeping. It
// is the single entry point external renderer code submits
// through; submissions made directly on the device bypass the
// statistics.
type Session struct {
	dev Device
	log *slog.Logger

	inFrame  bool
	shutdown bool

	frameStart time.Time
	prevEnd    time.Time
	memStart   int64

	draws         int
	tris          int
	dispatches    int
	rayDispatches int
	rtTime        time.Duration
	texs          map[Handle]struct{}
}

// NewSession creates a session around dev.
// logger may be nil, in which case slog.Default is used.
func NewSession(dev Device, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("hal: session created", "backend", dev.Backend(),
		"adapter", dev.Capabilities().AdapterName,
		"raytracing", dev.Capabilities().HasRayTracing)
	return &Session{
		dev:  dev,
		log:  logger,
		texs: make(map[Handle]struct{}),
	}
}

// Device returns the owned device.
func (s *Session) Device() Device { return s.dev }

// BeginFrame resets the per-frame counters and starts the CPU
// timer.
func (s *Session) BeginFrame() error {
	if s.shutdown {
		return fmt.Errorf("BeginFrame: %w: session shut down", ErrDisposed)
	}
	if s.inFrame {
		return fmt.Errorf("BeginFrame: %w: frame already open", ErrRecording)
	}
	s.inFrame = true
	s.frameStart = time.Now()
	s.memStart = s.dev.VideoMemoryUsage()
	s.draws = 0
	s.tris = 0
	s.dispatches = 0
	s.rayDispatches = 0
	s.rtTime = 0
	clear(s.texs)
	s.dev.AdvanceFrame()
	return nil
}

// Execute submits closed command lists through the device and
// folds their recording counters into the frame statistics.
func (s *Session) Execute(lists ...CommandList) error {
	if s.shutdown {
		return fmt.Errorf("Execute: %w: session shut down", ErrDisposed)
	}
	start := time.Now()
	if err := s.dev.ExecuteCommandLists(lists...); err != nil {
		return err
	}
	// Rejected submissions must not inflate the frame counters, so
	// the fold happens only once the device accepts the lists.
	hasRays := false
	for _, l := range lists {
		st := l.Stats()
		s.draws += st.DrawCalls
		s.tris += st.Triangles
		s.dispatches += st.Dispatches
		s.rayDispatches += st.RayDispatches
		if st.RayDispatches > 0 {
			hasRays = true
		}
		for _, h := range st.TexturesUsed {
			s.texs[h] = struct{}{}
		}
	}
	if hasRays {
		s.rtTime += time.Since(start)
	}
	return nil
}

// EndFrame finalizes timing and publishes the frame snapshot.
func (s *Session) EndFrame() (FrameStats, error) {
	if s.shutdown {
		return FrameStats{}, fmt.Errorf("EndFrame: %w: session shut down", ErrDisposed)
	}
	if !s.inFrame {
		return FrameStats{}, fmt.Errorf("EndFrame: %w: no open frame", ErrRecording)
	}
	s.inFrame = false
	now := time.Now()
	cpu := now.Sub(s.frameStart)
	frame := cpu
	if !s.prevEnd.IsZero() {
		frame = now.Sub(s.prevEnd)
	}
	s.prevEnd = now
	gpu := frame - cpu
	if gpu < 0 {
		gpu = 0
	}
	return FrameStats{
		FrameIndex:        s.dev.FrameIndex(),
		DrawCalls:         s.draws,
		Dispatches:        s.dispatches,
		RayDispatches:     s.rayDispatches,
		TrianglesRendered: s.tris,
		UniqueTextures:    len(s.texs),
		VideoMemoryDelta:  s.dev.VideoMemoryUsage() - s.memStart,
		CPUTime:           cpu,
		FrameTime:         frame,
		GPUTime:           gpu,
		RayTracingTime:    s.rtTime,
	}, nil
}

// Shutdown waits for the GPU, destroys the device and stops the
// session. It is idempotent.
func (s *Session) Shutdown() {
	if s.shutdown {
		return
	}
	s.shutdown = true
	s.inFrame = false
	if err := s.dev.WaitIdle(); err != nil {
		s.log.Warn("hal: wait idle during shutdown", "err", err)
	}
	if n := s.dev.LiveResources(); n > 0 {
		s.log.Warn("hal: destroying device with live resources", "count", n)
	}
	if err := s.dev.Destroy(); err != nil {
		s.log.Warn("hal: device destroy", "err", err)
	}
	s.log.Info("hal: session shut down", "backend", s.dev.Backend())
}
