// Copyright 2026 The Andastra Authors. All rights reserved.

package hal_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andastra/graphics/hal"
)

func newSession(t *testing.T) *hal.Session {
	t.Helper()
	return hal.NewSession(open(t, nil), slog.Default())
}

func TestSessionFrameStats(t *testing.T) {
	s := newSession(t)
	defer s.Shutdown()
	dev := s.Device()

	require.NoError(t, s.BeginFrame())

	cl, err := dev.CreateCommandList(hal.ListGraphics)
	require.NoError(t, err)
	require.NoError(t, cl.Open())
	// 100 + 200 + 200x3 triangles.
	require.NoError(t, cl.Draw(hal.DrawArgs{VertexCount: 300}))
	require.NoError(t, cl.Draw(hal.DrawArgs{VertexCount: 600}))
	require.NoError(t, cl.Draw(hal.DrawArgs{VertexCount: 600, InstanceCount: 3}))
	require.NoError(t, cl.Close())
	require.NoError(t, s.Execute(cl))

	stats, err := s.EndFrame()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.DrawCalls)
	assert.Equal(t, 900, stats.TrianglesRendered)
	assert.Equal(t, 0, stats.Dispatches)
	assert.GreaterOrEqual(t, stats.FrameTime, stats.CPUTime)
	assert.GreaterOrEqual(t, stats.GPUTime, time.Duration(0))
}

func TestSessionCountersResetPerFrame(t *testing.T) {
	s := newSession(t)
	defer s.Shutdown()
	dev := s.Device()

	record := func() hal.CommandList {
		cl, err := dev.CreateCommandList(hal.ListGraphics)
		require.NoError(t, err)
		require.NoError(t, cl.Open())
		require.NoError(t, cl.Draw(hal.DrawArgs{VertexCount: 3}))
		require.NoError(t, cl.Close())
		return cl
	}

	require.NoError(t, s.BeginFrame())
	require.NoError(t, s.Execute(record()))
	first, err := s.EndFrame()
	require.NoError(t, err)
	assert.Equal(t, 1, first.DrawCalls)

	require.NoError(t, s.BeginFrame())
	second, err := s.EndFrame()
	require.NoError(t, err)
	assert.Equal(t, 0, second.DrawCalls, "counters must reset at BeginFrame")
	assert.Equal(t, first.FrameIndex+1, second.FrameIndex)
}

func TestSessionUniqueTextures(t *testing.T) {
	s := newSession(t)
	defer s.Shutdown()
	dev := s.Device()

	tex, err := dev.CreateTexture(hal.TextureDesc{
		Width: 16, Height: 16, Format: hal.FormatRGBA8Unorm, Usage: hal.TextureShaderResource,
	})
	require.NoError(t, err)

	cl, err := dev.CreateCommandList(hal.ListGraphics)
	require.NoError(t, err)
	require.NoError(t, cl.Open())
	require.NoError(t, cl.ClearTexture(tex, hal.ClearValue{}))
	require.NoError(t, cl.ClearTexture(tex, hal.ClearValue{}))
	require.NoError(t, cl.Close())

	require.NoError(t, s.BeginFrame())
	require.NoError(t, s.Execute(cl))
	stats, err := s.EndFrame()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.UniqueTextures, "one texture referenced twice counts once")
}

func TestSessionRejectedSubmitNotCounted(t *testing.T) {
	s := newSession(t)
	defer s.Shutdown()
	dev := s.Device()

	require.NoError(t, s.BeginFrame())

	cl, err := dev.CreateCommandList(hal.ListGraphics)
	require.NoError(t, err)
	require.NoError(t, cl.Open())
	require.NoError(t, cl.Draw(hal.DrawArgs{VertexCount: 300}))

	// Still open, so the device rejects the submission.
	err = s.Execute(cl)
	require.ErrorIs(t, err, hal.ErrRecording)

	stats, err := s.EndFrame()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.DrawCalls, "rejected submissions must not count")
	assert.Equal(t, 0, stats.TrianglesRendered)
}

func TestSessionFrameMisuse(t *testing.T) {
	s := newSession(t)
	defer s.Shutdown()

	_, err := s.EndFrame()
	assert.ErrorIs(t, err, hal.ErrRecording, "EndFrame without an open frame")

	require.NoError(t, s.BeginFrame())
	err = s.BeginFrame()
	assert.ErrorIs(t, err, hal.ErrRecording, "nested BeginFrame")
}

func TestSessionShutdownIdempotent(t *testing.T) {
	s := newSession(t)
	s.Shutdown()
	s.Shutdown()

	err := s.BeginFrame()
	assert.ErrorIs(t, err, hal.ErrDisposed)
	err = s.Execute()
	assert.ErrorIs(t, err, hal.ErrDisposed)
	_, err = s.EndFrame()
	assert.ErrorIs(t, err, hal.ErrDisposed)
}
