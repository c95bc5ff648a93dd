// Copyright 2026 The Andastra Authors. All rights reserved.

package vk

import (
	"fmt"

	"github.com/andastra/graphics/hal"
)

// The binding exposes no acceleration-structure or raytracing
// pipeline surface, so the capability is reported unavailable and
// every raytracing entry point fails the same way.

func rtErr(op string) error {
	return fmt.Errorf("%s: %w: no raytracing device", op, hal.ErrUnsupported)
}

func (d *device) CreateAccelStruct(desc hal.AccelStructDesc) (hal.AccelStruct, error) {
	if err := d.check("CreateAccelStruct"); err != nil {
		return nil, err
	}
	return nil, rtErr("CreateAccelStruct")
}

func (d *device) CreateRayTracingPipeline(desc hal.RayTracingPipelineDesc) (hal.Pipeline, error) {
	if err := d.check("CreateRayTracingPipeline"); err != nil {
		return nil, err
	}
	return nil, rtErr("CreateRayTracingPipeline")
}

func (l *commandList) SetRayTracingState(state hal.RayTracingState) error {
	if err := l.record("SetRayTracingState"); err != nil {
		return err
	}
	return rtErr("SetRayTracingState")
}

func (l *commandList) DispatchRays(args hal.DispatchRaysArgs) error {
	if err := l.record("DispatchRays"); err != nil {
		return err
	}
	return rtErr("DispatchRays")
}

func (l *commandList) BuildBottomLevel(as hal.AccelStruct, geoms []hal.GeometryDesc) error {
	if err := l.record("BuildBottomLevel"); err != nil {
		return err
	}
	return rtErr("BuildBottomLevel")
}

func (l *commandList) BuildTopLevel(as hal.AccelStruct, instances []hal.InstanceDesc) error {
	if err := l.record("BuildTopLevel"); err != nil {
		return err
	}
	return rtErr("BuildTopLevel")
}

func (l *commandList) CompactAccelStruct(dst, src hal.AccelStruct) error {
	if err := l.record("CompactAccelStruct"); err != nil {
		return err
	}
	return rtErr("CompactAccelStruct")
}
