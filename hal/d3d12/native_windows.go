// Copyright 2026 The Andastra Authors. All rights reserved.

//go:build windows

package d3d12

import (
	"fmt"
	"math"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/andastra/graphics/hal"
)

var (
	d3d12dll = windows.NewLazySystemDLL("d3d12.dll")

	_D3D12CreateDevice           = d3d12dll.NewProc("D3D12CreateDevice")
	_D3D12GetDebugInterface      = d3d12dll.NewProc("D3D12GetDebugInterface")
	_D3D12SerializeRootSignature = d3d12dll.NewProc("D3D12SerializeRootSignature")

	dxgidll = windows.NewLazySystemDLL("dxgi.dll")

	_CreateDXGIFactory1 = dxgidll.NewProc("CreateDXGIFactory1")
)

type GUID struct {
	Data1 uint32
	Data2 uint16
	Data3 uint16
	Data4 [8]uint8
}

var (
	IID_ID3D12Device           = GUID{0x189819f1, 0x1db6, 0x4b57, [8]uint8{0xbe, 0x54, 0x18, 0x21, 0x33, 0x9b, 0x85, 0xf7}}
	IID_ID3D12Device5          = GUID{0x8b4f173b, 0x2fea, 0x4b80, [8]uint8{0x8f, 0x58, 0x43, 0x07, 0x19, 0x1a, 0xb9, 0x5d}}
	IID_ID3D12CommandQueue     = GUID{0x0ec870a6, 0x5d7e, 0x4c22, [8]uint8{0x8c, 0xfc, 0x5b, 0xaa, 0xe0, 0x76, 0x16, 0xed}}
	IID_ID3D12CommandAllocator = GUID{0x6102dee4, 0xaf59, 0x4b09, [8]uint8{0xb9, 0x99, 0xb4, 0x4d, 0x73, 0xf0, 0x9b, 0x24}}
	IID_ID3D12CommandList      = GUID{0x5b160d0f, 0xac1b, 0x4185, [8]uint8{0x8b, 0xa8, 0xb3, 0xae, 0x42, 0xa5, 0xa4, 0x55}}
	IID_ID3D12CommandList4     = GUID{0x8754318e, 0xd3a9, 0x4541, [8]uint8{0x98, 0xcf, 0x64, 0x5b, 0x50, 0xdc, 0x48, 0x74}}
	IID_ID3D12Fence            = GUID{0x0a753dcf, 0xc4d8, 0x4b91, [8]uint8{0xad, 0xf6, 0xbe, 0x5a, 0x60, 0xd9, 0x5a, 0x76}}
	IID_ID3D12Resource         = GUID{0x696442be, 0xa72e, 0x4059, [8]uint8{0xbc, 0x79, 0x5b, 0x5c, 0x98, 0x04, 0x0f, 0xad}}
	IID_ID3D12DescriptorHeap   = GUID{0x8efb471d, 0x616c, 0x4f49, [8]uint8{0x90, 0xf7, 0x12, 0x7b, 0xb7, 0x63, 0xfa, 0x51}}
	IID_ID3D12RootSignature    = GUID{0xc54a6b66, 0x72df, 0x4ee8, [8]uint8{0x8b, 0xe5, 0xa9, 0x46, 0xa1, 0x42, 0x92, 0x14}}
	IID_ID3D12PipelineState    = GUID{0x765a30f3, 0xf624, 0x4c6f, [8]uint8{0xa8, 0x28, 0xac, 0xe9, 0x48, 0x62, 0x24, 0x45}}
	IID_ID3D12StateObject      = GUID{0x47016943, 0xfca8, 0x4594, [8]uint8{0x93, 0xea, 0xaf, 0x25, 0x8b, 0x55, 0x34, 0x6d}}
	IID_ID3D12StateObjectProps = GUID{0xde5fa827, 0x9bf9, 0x4f26, [8]uint8{0x89, 0xff, 0xd7, 0xf5, 0x6f, 0xde, 0x38, 0x60}}
	IID_ID3D12Debug            = GUID{0x344488b7, 0x6846, 0x474b, [8]uint8{0xb9, 0x89, 0xf0, 0x27, 0x44, 0x82, 0x45, 0xe0}}
	IID_IDXGIFactory1          = GUID{0x770aae78, 0xf26f, 0x4dba, [8]uint8{0xa8, 0x29, 0x25, 0x3c, 0x83, 0xd1, 0xb3, 0x87}}
)

const (
	D3D_FEATURE_LEVEL_12_0 = 0xc000

	COMMAND_LIST_TYPE_DIRECT  = 0
	COMMAND_LIST_TYPE_COMPUTE = 2
	COMMAND_LIST_TYPE_COPY    = 3

	DESCRIPTOR_HEAP_TYPE_CBV_SRV_UAV = 0
	DESCRIPTOR_HEAP_TYPE_SAMPLER     = 1
	DESCRIPTOR_HEAP_TYPE_RTV         = 2
	DESCRIPTOR_HEAP_TYPE_DSV         = 3

	DESCRIPTOR_HEAP_FLAG_SHADER_VISIBLE = 0x1

	HEAP_TYPE_DEFAULT  = 1
	HEAP_TYPE_UPLOAD   = 2
	HEAP_TYPE_READBACK = 3

	RESOURCE_DIMENSION_BUFFER    = 1
	RESOURCE_DIMENSION_TEXTURE2D = 3
	RESOURCE_DIMENSION_TEXTURE3D = 4

	TEXTURE_LAYOUT_ROW_MAJOR = 1

	RESOURCE_FLAG_ALLOW_RENDER_TARGET    = 0x1
	RESOURCE_FLAG_ALLOW_DEPTH_STENCIL    = 0x2
	RESOURCE_FLAG_ALLOW_UNORDERED_ACCESS = 0x4

	RESOURCE_STATE_COMMON            = 0
	RESOURCE_STATE_VERTEX_CONSTANT   = 0x1
	RESOURCE_STATE_INDEX_BUFFER      = 0x2
	RESOURCE_STATE_RENDER_TARGET     = 0x4
	RESOURCE_STATE_UNORDERED_ACCESS  = 0x8
	RESOURCE_STATE_DEPTH_WRITE       = 0x10
	RESOURCE_STATE_DEPTH_READ        = 0x20
	RESOURCE_STATE_NON_PIXEL_SRV     = 0x40
	RESOURCE_STATE_PIXEL_SRV         = 0x80
	RESOURCE_STATE_INDIRECT_ARGUMENT = 0x200
	RESOURCE_STATE_COPY_DEST         = 0x400
	RESOURCE_STATE_COPY_SOURCE       = 0x800
	RESOURCE_STATE_GENERIC_READ      = 0xac3
	RESOURCE_STATE_RT_ACCEL_STRUCT   = 0x400000

	RESOURCE_BARRIER_TYPE_TRANSITION  = 0
	RESOURCE_BARRIER_ALL_SUBRESOURCES = 0xffffffff

	PRIMITIVE_TOPOLOGY_TYPE_POINT    = 1
	PRIMITIVE_TOPOLOGY_TYPE_LINE     = 2
	PRIMITIVE_TOPOLOGY_TYPE_TRIANGLE = 3

	PRIMITIVE_TOPOLOGY_POINTLIST     = 1
	PRIMITIVE_TOPOLOGY_LINELIST      = 2
	PRIMITIVE_TOPOLOGY_TRIANGLELIST  = 4
	PRIMITIVE_TOPOLOGY_TRIANGLESTRIP = 5

	CLEAR_FLAG_DEPTH   = 0x1
	CLEAR_FLAG_STENCIL = 0x2

	FEATURE_D3D12_OPTIONS5 = 27
	RAYTRACING_TIER_1_0    = 10

	RAYTRACING_ACCEL_STRUCT_TYPE_TOP_LEVEL    = 0
	RAYTRACING_ACCEL_STRUCT_TYPE_BOTTOM_LEVEL = 1
	RAYTRACING_GEOMETRY_TYPE_TRIANGLES        = 0
	RAYTRACING_GEOMETRY_FLAG_OPAQUE           = 0x1
	RAYTRACING_BUILD_FLAG_ALLOW_UPDATE        = 0x1
	RAYTRACING_BUILD_FLAG_ALLOW_COMPACTION    = 0x2
	RAYTRACING_BUILD_FLAG_PREFER_FAST_TRACE   = 0x4
	RAYTRACING_BUILD_FLAG_PREFER_FAST_BUILD   = 0x8
	RAYTRACING_LAYOUT_ARRAY_OF_POINTERS       = 0 // DXGI_FORMAT irrelevant; instances are an array
	RAYTRACING_COPY_MODE_COMPACT              = 0x1

	STATE_OBJECT_TYPE_RAYTRACING_PIPELINE = 3

	STATE_SUBOBJECT_TYPE_GLOBAL_ROOT_SIGNATURE      = 1
	STATE_SUBOBJECT_TYPE_DXIL_LIBRARY               = 5
	STATE_SUBOBJECT_TYPE_RAYTRACING_SHADER_CONFIG   = 9
	STATE_SUBOBJECT_TYPE_RAYTRACING_PIPELINE_CONFIG = 10
	STATE_SUBOBJECT_TYPE_HIT_GROUP                  = 11

	SHADER_IDENTIFIER_SIZE        = 32
	SHADER_TABLE_RECORD_ALIGNMENT = 32
	SHADER_TABLE_BASE_ALIGNMENT   = 64
)

type _IUnknownVTbl struct {
	QueryInterface uintptr
	AddRef         uintptr
	Release        uintptr
}

type _ID3D12ObjectVTbl struct {
	_IUnknownVTbl
	GetPrivateData          uintptr
	SetPrivateData          uintptr
	SetPrivateDataInterface uintptr
	SetName                 uintptr
}

type IUnknown struct {
	Vtbl *_IUnknownVTbl
}

type ID3D12Device struct {
	Vtbl *struct {
		_ID3D12ObjectVTbl
		GetNodeCount                     uintptr
		CreateCommandQueue               uintptr
		CreateCommandAllocator           uintptr
		CreateGraphicsPipelineState      uintptr
		CreateComputePipelineState       uintptr
		CreateCommandList                uintptr
		CheckFeatureSupport              uintptr
		CreateDescriptorHeap             uintptr
		GetDescriptorHandleIncrementSize uintptr
		CreateRootSignature              uintptr
		CreateConstantBufferView         uintptr
		CreateShaderResourceView         uintptr
		CreateUnorderedAccessView        uintptr
		CreateRenderTargetView           uintptr
		CreateDepthStencilView           uintptr
		CreateSampler                    uintptr
		CopyDescriptors                  uintptr
		CopyDescriptorsSimple            uintptr
		GetResourceAllocationInfo        uintptr
		GetCustomHeapProperties          uintptr
		CreateCommittedResource          uintptr
		CreateHeap                       uintptr
		CreatePlacedResource             uintptr
		CreateReservedResource           uintptr
		CreateSharedHandle               uintptr
		OpenSharedHandle                 uintptr
		OpenSharedHandleByName           uintptr
		MakeResident                     uintptr
		Evict                            uintptr
		CreateFence                      uintptr
		GetDeviceRemovedReason           uintptr
		GetCopyableFootprints            uintptr
		CreateQueryHeap                  uintptr
		SetStablePowerState              uintptr
		CreateCommandSignature           uintptr
		GetResourceTiling                uintptr
		GetAdapterLuid                   uintptr
	}
}

// ID3D12Device5 adds the raytracing entry points. The vtable
// chains through Device1..Device4.
type ID3D12Device5 struct {
	Vtbl *struct {
		_ID3D12ObjectVTbl
		// ID3D12Device
		GetNodeCount                     uintptr
		CreateCommandQueue               uintptr
		CreateCommandAllocator           uintptr
		CreateGraphicsPipelineState      uintptr
		CreateComputePipelineState       uintptr
		CreateCommandList                uintptr
		CheckFeatureSupport              uintptr
		CreateDescriptorHeap             uintptr
		GetDescriptorHandleIncrementSize uintptr
		CreateRootSignature              uintptr
		CreateConstantBufferView         uintptr
		CreateShaderResourceView         uintptr
		CreateUnorderedAccessView        uintptr
		CreateRenderTargetView           uintptr
		CreateDepthStencilView           uintptr
		CreateSampler                    uintptr
		CopyDescriptors                  uintptr
		CopyDescriptorsSimple            uintptr
		GetResourceAllocationInfo        uintptr
		GetCustomHeapProperties          uintptr
		CreateCommittedResource          uintptr
		CreateHeap                       uintptr
		CreatePlacedResource             uintptr
		CreateReservedResource           uintptr
		CreateSharedHandle               uintptr
		OpenSharedHandle                 uintptr
		OpenSharedHandleByName           uintptr
		MakeResident                     uintptr
		Evict                            uintptr
		CreateFence                      uintptr
		GetDeviceRemovedReason           uintptr
		GetCopyableFootprints            uintptr
		CreateQueryHeap                  uintptr
		SetStablePowerState              uintptr
		CreateCommandSignature           uintptr
		GetResourceTiling                uintptr
		GetAdapterLuid                   uintptr
		// ID3D12Device1
		CreatePipelineLibrary                         uintptr
		SetEventOnMultipleFenceCompletion             uintptr
		SetResidencyPriority                          uintptr
		// ID3D12Device2
		CreatePipelineState uintptr
		// ID3D12Device3
		OpenExistingHeapFromAddress     uintptr
		OpenExistingHeapFromFileMapping uintptr
		EnqueueMakeResident             uintptr
		// ID3D12Device4
		CreateCommandList1             uintptr
		CreateProtectedResourceSession uintptr
		CreateCommittedResource1       uintptr
		CreateHeap1                    uintptr
		CreateReservedResource1        uintptr
		GetResourceAllocationInfo1     uintptr
		// ID3D12Device5
		CreateLifetimeTracker                             uintptr
		RemoveDevice                                      uintptr
		EnumerateMetaCommands                             uintptr
		EnumerateMetaCommandParameters                    uintptr
		CreateMetaCommand                                 uintptr
		CreateStateObject                                 uintptr
		GetRaytracingAccelerationStructurePrebuildInfo    uintptr
		CheckDriverMatchingIdentifier                     uintptr
	}
}

type ID3D12CommandQueue struct {
	Vtbl *struct {
		_ID3D12ObjectVTbl
		GetDevice             uintptr
		UpdateTileMappings    uintptr
		CopyTileMappings      uintptr
		ExecuteCommandLists   uintptr
		SetMarker             uintptr
		BeginEvent            uintptr
		EndEvent              uintptr
		Signal                uintptr
		Wait                  uintptr
		GetTimestampFrequency uintptr
		GetClockCalibration   uintptr
		GetDesc               uintptr
	}
}

type ID3D12CommandAllocator struct {
	Vtbl *struct {
		_ID3D12ObjectVTbl
		GetDevice uintptr
		Reset     uintptr
	}
}

// ID3D12GraphicsCommandList4, chained through List1..List3 so the
// raytracing build entries are addressable.
type ID3D12GraphicsCommandList struct {
	Vtbl *struct {
		_ID3D12ObjectVTbl
		GetDevice uintptr
		GetType   uintptr
		// ID3D12GraphicsCommandList
		Close                              uintptr
		Reset                              uintptr
		ClearState                         uintptr
		DrawInstanced                      uintptr
		DrawIndexedInstanced               uintptr
		Dispatch                           uintptr
		CopyBufferRegion                   uintptr
		CopyTextureRegion                  uintptr
		CopyResource                       uintptr
		CopyTiles                          uintptr
		ResolveSubresource                 uintptr
		IASetPrimitiveTopology             uintptr
		RSSetViewports                     uintptr
		RSSetScissorRects                  uintptr
		OMSetBlendFactor                   uintptr
		OMSetStencilRef                    uintptr
		SetPipelineState                   uintptr
		ResourceBarrier                    uintptr
		ExecuteBundle                      uintptr
		SetDescriptorHeaps                 uintptr
		SetComputeRootSignature            uintptr
		SetGraphicsRootSignature           uintptr
		SetComputeRootDescriptorTable      uintptr
		SetGraphicsRootDescriptorTable     uintptr
		SetComputeRoot32BitConstant        uintptr
		SetGraphicsRoot32BitConstant       uintptr
		SetComputeRoot32BitConstants       uintptr
		SetGraphicsRoot32BitConstants      uintptr
		SetComputeRootConstantBufferView   uintptr
		SetGraphicsRootConstantBufferView  uintptr
		SetComputeRootShaderResourceView   uintptr
		SetGraphicsRootShaderResourceView  uintptr
		SetComputeRootUnorderedAccessView  uintptr
		SetGraphicsRootUnorderedAccessView uintptr
		IASetIndexBuffer                   uintptr
		IASetVertexBuffers                 uintptr
		SOSetTargets                       uintptr
		OMSetRenderTargets                 uintptr
		ClearDepthStencilView              uintptr
		ClearRenderTargetView              uintptr
		ClearUnorderedAccessViewUint       uintptr
		ClearUnorderedAccessViewFloat      uintptr
		DiscardResource                    uintptr
		BeginQuery                         uintptr
		EndQuery                           uintptr
		ResolveQueryData                   uintptr
		SetPredication                     uintptr
		SetMarker                          uintptr
		BeginEvent                         uintptr
		EndEvent                           uintptr
		ExecuteIndirect                    uintptr
		// ID3D12GraphicsCommandList1
		AtomicCopyBufferUINT     uintptr
		AtomicCopyBufferUINT64   uintptr
		OMSetDepthBounds         uintptr
		SetSamplePositions       uintptr
		ResolveSubresourceRegion uintptr
		SetViewInstanceMask      uintptr
		// ID3D12GraphicsCommandList2
		WriteBufferImmediate uintptr
		// ID3D12GraphicsCommandList3
		SetProtectedResourceSession uintptr
		// ID3D12GraphicsCommandList4
		BeginRenderPass                                  uintptr
		EndRenderPass                                    uintptr
		InitializeMetaCommand                            uintptr
		ExecuteMetaCommand                               uintptr
		BuildRaytracingAccelerationStructure             uintptr
		EmitRaytracingAccelerationStructurePostbuildInfo uintptr
		CopyRaytracingAccelerationStructure              uintptr
		SetPipelineState1                                uintptr
		DispatchRays                                     uintptr
	}
}

type ID3D12Fence struct {
	Vtbl *struct {
		_ID3D12ObjectVTbl
		GetDevice            uintptr
		GetCompletedValue    uintptr
		SetEventOnCompletion uintptr
		Signal               uintptr
	}
}

type ID3D12Resource struct {
	Vtbl *struct {
		_ID3D12ObjectVTbl
		GetDevice            uintptr
		Map                  uintptr
		Unmap                uintptr
		GetDesc              uintptr
		GetGPUVirtualAddress uintptr
		WriteToSubresource   uintptr
		ReadFromSubresource  uintptr
		GetHeapProperties    uintptr
	}
}

type ID3D12DescriptorHeap struct {
	Vtbl *struct {
		_ID3D12ObjectVTbl
		GetDevice                           uintptr
		GetDesc                             uintptr
		GetCPUDescriptorHandleForHeapStart  uintptr
		GetGPUDescriptorHandleForHeapStart  uintptr
	}
}

type ID3D12StateObjectProperties struct {
	Vtbl *struct {
		_IUnknownVTbl
		GetShaderIdentifier  uintptr
		GetShaderStackSize   uintptr
		GetPipelineStackSize uintptr
		SetPipelineStackSize uintptr
	}
}

type IDXGIFactory1 struct {
	Vtbl *struct {
		_IUnknownVTbl
		SetPrivateData          uintptr
		SetPrivateDataInterface uintptr
		GetPrivateData          uintptr
		GetParent               uintptr
		EnumAdapters            uintptr
		MakeWindowAssociation   uintptr
		GetWindowAssociation    uintptr
		CreateSwapChain         uintptr
		CreateSoftwareAdapter   uintptr
		EnumAdapters1           uintptr
		IsCurrent               uintptr
	}
}

type IDXGIAdapter1 struct {
	Vtbl *struct {
		_IUnknownVTbl
		SetPrivateData          uintptr
		SetPrivateDataInterface uintptr
		GetPrivateData          uintptr
		GetParent               uintptr
		EnumOutputs             uintptr
		GetDesc                 uintptr
		CheckInterfaceSupport   uintptr
		GetDesc1                uintptr
	}
}

type ID3D12Debug struct {
	Vtbl *struct {
		_IUnknownVTbl
		EnableDebugLayer uintptr
	}
}

type DXGI_ADAPTER_DESC1 struct {
	Description           [128]uint16
	VendorId              uint32
	DeviceId              uint32
	SubSysId              uint32
	Revision              uint32
	DedicatedVideoMemory  uintptr
	DedicatedSystemMemory uintptr
	SharedSystemMemory    uintptr
	AdapterLuid           [8]byte
	Flags                 uint32
}

type COMMAND_QUEUE_DESC struct {
	Type     uint32
	Priority int32
	Flags    uint32
	NodeMask uint32
}

type DESCRIPTOR_HEAP_DESC struct {
	Type           uint32
	NumDescriptors uint32
	Flags          uint32
	NodeMask       uint32
}

type CPU_DESCRIPTOR_HANDLE struct {
	Ptr uintptr
}

type HEAP_PROPERTIES struct {
	Type                 uint32
	CPUPageProperty      uint32
	MemoryPoolPreference uint32
	CreationNodeMask     uint32
	VisibleNodeMask      uint32
}

type SAMPLE_DESC struct {
	Count   uint32
	Quality uint32
}

type RESOURCE_DESC struct {
	Dimension        uint32
	Alignment        uint64
	Width            uint64
	Height           uint32
	DepthOrArraySize uint16
	MipLevels        uint16
	Format           uint32
	SampleDesc       SAMPLE_DESC
	Layout           uint32
	Flags            uint32
}

type CLEAR_VALUE struct {
	Format uint32
	// Color or DepthStencil, overlapped in the native union.
	Color [4]float32
}

type RANGE struct {
	Begin uintptr
	End   uintptr
}

type RESOURCE_TRANSITION_BARRIER struct {
	PResource   *ID3D12Resource
	Subresource uint32
	StateBefore uint32
	StateAfter  uint32
}

type RESOURCE_BARRIER struct {
	Type       uint32
	Flags      uint32
	Transition RESOURCE_TRANSITION_BARRIER
}

type SAMPLER_DESC struct {
	Filter         uint32
	AddressU       uint32
	AddressV       uint32
	AddressW       uint32
	MipLODBias     float32
	MaxAnisotropy  uint32
	ComparisonFunc uint32
	BorderColor    [4]float32
	MinLOD         float32
	MaxLOD         float32
}

type SHADER_BYTECODE struct {
	PShaderBytecode *byte
	BytecodeLength  uintptr
}

type STREAM_OUTPUT_DESC struct {
	PSODeclaration   uintptr
	NumEntries       uint32
	PBufferStrides   uintptr
	NumStrides       uint32
	RasterizedStream uint32
}

type RENDER_TARGET_BLEND_DESC struct {
	BlendEnable           uint32
	LogicOpEnable         uint32
	SrcBlend              uint32
	DestBlend             uint32
	BlendOp               uint32
	SrcBlendAlpha         uint32
	DestBlendAlpha        uint32
	BlendOpAlpha          uint32
	LogicOp               uint32
	RenderTargetWriteMask uint8
}

type BLEND_DESC struct {
	AlphaToCoverageEnable  uint32
	IndependentBlendEnable uint32
	RenderTarget           [8]RENDER_TARGET_BLEND_DESC
}

type RASTERIZER_DESC struct {
	FillMode              uint32
	CullMode              uint32
	FrontCounterClockwise uint32
	DepthBias             int32
	DepthBiasClamp        float32
	SlopeScaledDepthBias  float32
	DepthClipEnable       uint32
	MultisampleEnable     uint32
	AntialiasedLineEnable uint32
	ForcedSampleCount     uint32
	ConservativeRaster    uint32
}

type DEPTH_STENCILOP_DESC struct {
	StencilFailOp      uint32
	StencilDepthFailOp uint32
	StencilPassOp      uint32
	StencilFunc        uint32
}

type DEPTH_STENCIL_DESC struct {
	DepthEnable      uint32
	DepthWriteMask   uint32
	DepthFunc        uint32
	StencilEnable    uint32
	StencilReadMask  uint8
	StencilWriteMask uint8
	FrontFace        DEPTH_STENCILOP_DESC
	BackFace         DEPTH_STENCILOP_DESC
}

type INPUT_ELEMENT_DESC struct {
	SemanticName         *byte
	SemanticIndex        uint32
	Format               uint32
	InputSlot            uint32
	AlignedByteOffset    uint32
	InputSlotClass       uint32
	InstanceDataStepRate uint32
}

type INPUT_LAYOUT_DESC struct {
	PInputElementDescs *INPUT_ELEMENT_DESC
	NumElements        uint32
}

type CACHED_PIPELINE_STATE struct {
	PCachedBlob           uintptr
	CachedBlobSizeInBytes uintptr
}

type GRAPHICS_PIPELINE_STATE_DESC struct {
	PRootSignature        uintptr
	VS                    SHADER_BYTECODE
	PS                    SHADER_BYTECODE
	DS                    SHADER_BYTECODE
	HS                    SHADER_BYTECODE
	GS                    SHADER_BYTECODE
	StreamOutput          STREAM_OUTPUT_DESC
	BlendState            BLEND_DESC
	SampleMask            uint32
	RasterizerState       RASTERIZER_DESC
	DepthStencilState     DEPTH_STENCIL_DESC
	InputLayout           INPUT_LAYOUT_DESC
	IBStripCutValue       uint32
	PrimitiveTopologyType uint32
	NumRenderTargets      uint32
	RTVFormats            [8]uint32
	DSVFormat             uint32
	SampleDesc            SAMPLE_DESC
	NodeMask              uint32
	CachedPSO             CACHED_PIPELINE_STATE
	Flags                 uint32
}

type COMPUTE_PIPELINE_STATE_DESC struct {
	PRootSignature uintptr
	CS             SHADER_BYTECODE
	NodeMask       uint32
	CachedPSO      CACHED_PIPELINE_STATE
	Flags          uint32
}

type VIEWPORT struct {
	TopLeftX float32
	TopLeftY float32
	Width    float32
	Height   float32
	MinDepth float32
	MaxDepth float32
}

type RECT struct {
	Left, Top, Right, Bottom int32
}

type VERTEX_BUFFER_VIEW struct {
	BufferLocation uint64
	SizeInBytes    uint32
	StrideInBytes  uint32
}

type INDEX_BUFFER_VIEW struct {
	BufferLocation uint64
	SizeInBytes    uint32
	Format         uint32
}

type FEATURE_DATA_D3D12_OPTIONS5 struct {
	SRVOnlyTiledResourceTier3 uint32
	RenderPassesTier          uint32
	RaytracingTier            uint32
}

type RAYTRACING_GEOMETRY_TRIANGLES_DESC struct {
	Transform3x4              uint64
	IndexFormat               uint32
	VertexFormat              uint32
	IndexCount                uint32
	VertexCount               uint32
	IndexBuffer               uint64
	VertexBufferStartAddress  uint64
	VertexBufferStrideInBytes uint64
}

type RAYTRACING_GEOMETRY_DESC struct {
	Type      uint32
	Flags     uint32
	Triangles RAYTRACING_GEOMETRY_TRIANGLES_DESC
}

type BUILD_RAYTRACING_ACCELERATION_STRUCTURE_INPUTS struct {
	Type        uint32
	Flags       uint32
	NumDescs    uint32
	DescsLayout uint32
	// InstanceDescs (top-level) or pGeometryDescs (bottom-level),
	// overlapped in the native union.
	Descs uint64
}

type BUILD_RAYTRACING_ACCELERATION_STRUCTURE_DESC struct {
	DestAccelerationStructureData    uint64
	Inputs                           BUILD_RAYTRACING_ACCELERATION_STRUCTURE_INPUTS
	SourceAccelerationStructureData  uint64
	ScratchAccelerationStructureData uint64
}

type RAYTRACING_ACCELERATION_STRUCTURE_PREBUILD_INFO struct {
	ResultDataMaxSizeInBytes     uint64
	ScratchDataSizeInBytes       uint64
	UpdateScratchDataSizeInBytes uint64
}

type RAYTRACING_INSTANCE_DESC struct {
	Transform             [12]float32
	InstanceIDAndMask     uint32 // ID:24 | Mask:8
	ContributionAndFlags  uint32 // Contribution:24 | Flags:8
	AccelerationStructure uint64
}

type STATE_SUBOBJECT struct {
	Type  uint32
	PDesc unsafe.Pointer
}

type STATE_OBJECT_DESC struct {
	Type          uint32
	NumSubobjects uint32
	PSubobjects   *STATE_SUBOBJECT
}

type DXIL_LIBRARY_DESC struct {
	DXILLibrary SHADER_BYTECODE
	NumExports  uint32
	PExports    uintptr
}

type RAYTRACING_SHADER_CONFIG struct {
	MaxPayloadSizeInBytes   uint32
	MaxAttributeSizeInBytes uint32
}

type RAYTRACING_PIPELINE_CONFIG struct {
	MaxTraceRecursionDepth uint32
}

type GLOBAL_ROOT_SIGNATURE struct {
	PGlobalRootSignature uintptr
}

type HIT_GROUP_DESC struct {
	HitGroupExport           *uint16
	Type                     uint32
	AnyHitShaderImport       *uint16
	ClosestHitShaderImport   *uint16
	IntersectionShaderImport *uint16
}

type GPU_VIRTUAL_ADDRESS_RANGE struct {
	StartAddress uint64
	SizeInBytes  uint64
}

type GPU_VIRTUAL_ADDRESS_RANGE_AND_STRIDE struct {
	StartAddress  uint64
	SizeInBytes   uint64
	StrideInBytes uint64
}

type DISPATCH_RAYS_DESC struct {
	RayGenerationShaderRecord GPU_VIRTUAL_ADDRESS_RANGE
	MissShaderTable           GPU_VIRTUAL_ADDRESS_RANGE_AND_STRIDE
	HitGroupTable             GPU_VIRTUAL_ADDRESS_RANGE_AND_STRIDE
	CallableShaderTable       GPU_VIRTUAL_ADDRESS_RANGE_AND_STRIDE
	Width                     uint32
	Height                    uint32
	Depth                     uint32
}

type ID3DBlob struct {
	Vtbl *struct {
		_IUnknownVTbl
		GetBufferPointer uintptr
		GetBufferSize    uintptr
	}
}

// natErr wraps a failing HRESULT.
func natErr(op string, hr uintptr) error {
	return &hal.NativeError{Op: op, Status: int64(int32(uint32(hr)))}
}

func release(obj unsafe.Pointer) {
	if obj == nil {
		return
	}
	u := (*IUnknown)(obj)
	syscall.SyscallN(u.Vtbl.Release, uintptr(obj))
}

// descHeap is one native descriptor heap plus its cached start
// and increment.
type descHeap struct {
	heap  *ID3D12DescriptorHeap
	start CPU_DESCRIPTOR_HANDLE
	inc   uint32
	next  uint32
	cap   uint32
}

// ring hands out clear-view slots round-robin. Clear views are
// transient; a slot may be rewritten once the GPU consumed it.
func (h *descHeap) ring() CPU_DESCRIPTOR_HANDLE {
	s := CPU_DESCRIPTOR_HANDLE{h.start.Ptr + uintptr(h.next%h.cap)*uintptr(h.inc)}
	h.next++
	return s
}

// shaderTable is the uploaded shader record table of one
// raytracing state object.
type shaderTable struct {
	buf      *ID3D12Resource
	rayGenVA uint64
	missVA   uint64
	missN    int
	hitVA    uint64
	hitN     int
}

type native struct {
	dev     *ID3D12Device
	dev5    *ID3D12Device5 // nil below raytracing tier 1.0
	queue   *ID3D12CommandQueue
	adapter string

	heaps   [3]descHeap // indexed by hal.DescriptorHeapKind
	rtvs    descHeap
	dsvs    descHeap
	samType uint32

	idleFence *ID3D12Fence
	idleEvent windows.Handle
	idleValue uint64

	rtTables map[uintptr]*shaderTable
}

func newNative(opts *hal.DeviceOptions) (*native, error) {
	if opts != nil && opts.Debug {
		var dbg *ID3D12Debug
		hr, _, _ := _D3D12GetDebugInterface.Call(
			uintptr(unsafe.Pointer(&IID_ID3D12Debug)),
			uintptr(unsafe.Pointer(&dbg)),
		)
		if hr == 0 {
			syscall.SyscallN(dbg.Vtbl.EnableDebugLayer, uintptr(unsafe.Pointer(dbg)))
			release(unsafe.Pointer(dbg))
		}
	}

	n := &native{rtTables: make(map[uintptr]*shaderTable)}
	hr, _, _ := _D3D12CreateDevice.Call(
		0, // pAdapter: default
		D3D_FEATURE_LEVEL_12_0,
		uintptr(unsafe.Pointer(&IID_ID3D12Device)),
		uintptr(unsafe.Pointer(&n.dev)),
	)
	if hr != 0 {
		return nil, natErr("D3D12CreateDevice", hr)
	}
	if err := n.init(opts); err != nil {
		n.destroy()
		return nil, err
	}
	return n, nil
}

func (n *native) init(opts *hal.DeviceOptions) error {
	n.adapter = queryAdapterName()

	// Raytracing requires tier 1.0 and the Device5 surface.
	var o5 FEATURE_DATA_D3D12_OPTIONS5
	hr, _, _ := syscall.SyscallN(n.dev.Vtbl.CheckFeatureSupport,
		uintptr(unsafe.Pointer(n.dev)),
		FEATURE_D3D12_OPTIONS5,
		uintptr(unsafe.Pointer(&o5)),
		unsafe.Sizeof(o5),
	)
	if hr == 0 && o5.RaytracingTier >= RAYTRACING_TIER_1_0 {
		var dev5 *ID3D12Device5
		hr, _, _ = syscall.SyscallN(n.dev.Vtbl.QueryInterface,
			uintptr(unsafe.Pointer(n.dev)),
			uintptr(unsafe.Pointer(&IID_ID3D12Device5)),
			uintptr(unsafe.Pointer(&dev5)),
		)
		if hr == 0 {
			n.dev5 = dev5
		}
	}

	qd := COMMAND_QUEUE_DESC{Type: COMMAND_LIST_TYPE_DIRECT}
	hr, _, _ = syscall.SyscallN(n.dev.Vtbl.CreateCommandQueue,
		uintptr(unsafe.Pointer(n.dev)),
		uintptr(unsafe.Pointer(&qd)),
		uintptr(unsafe.Pointer(&IID_ID3D12CommandQueue)),
		uintptr(unsafe.Pointer(&n.queue)),
	)
	if hr != 0 {
		return natErr("ID3D12Device::CreateCommandQueue", hr)
	}

	ns, nds, nua := opts.HeapSizes()
	if err := n.makeHeap(&n.heaps[hal.HeapSampler], DESCRIPTOR_HEAP_TYPE_SAMPLER, ns, true); err != nil {
		return err
	}
	if err := n.makeHeap(&n.heaps[hal.HeapDepthStencil], DESCRIPTOR_HEAP_TYPE_DSV, nds, false); err != nil {
		return err
	}
	if err := n.makeHeap(&n.heaps[hal.HeapUnorderedAccess], DESCRIPTOR_HEAP_TYPE_CBV_SRV_UAV, nua, true); err != nil {
		return err
	}
	// Small internal heaps back transient clear views.
	if err := n.makeHeap(&n.rtvs, DESCRIPTOR_HEAP_TYPE_RTV, 64, false); err != nil {
		return err
	}
	if err := n.makeHeap(&n.dsvs, DESCRIPTOR_HEAP_TYPE_DSV, 64, false); err != nil {
		return err
	}

	hr, _, _ = syscall.SyscallN(n.dev.Vtbl.CreateFence,
		uintptr(unsafe.Pointer(n.dev)),
		0, // InitialValue
		0, // Flags
		uintptr(unsafe.Pointer(&IID_ID3D12Fence)),
		uintptr(unsafe.Pointer(&n.idleFence)),
	)
	if hr != 0 {
		return natErr("ID3D12Device::CreateFence", hr)
	}
	ev, err := windows.CreateEvent(nil, 0, 0, nil)
	if err != nil {
		return fmt.Errorf("CreateEvent: %w", err)
	}
	n.idleEvent = ev
	return nil
}

func (n *native) makeHeap(h *descHeap, typ uint32, capacity int, shaderVisible bool) error {
	d := DESCRIPTOR_HEAP_DESC{Type: typ, NumDescriptors: uint32(capacity)}
	if shaderVisible {
		d.Flags = DESCRIPTOR_HEAP_FLAG_SHADER_VISIBLE
	}
	hr, _, _ := syscall.SyscallN(n.dev.Vtbl.CreateDescriptorHeap,
		uintptr(unsafe.Pointer(n.dev)),
		uintptr(unsafe.Pointer(&d)),
		uintptr(unsafe.Pointer(&IID_ID3D12DescriptorHeap)),
		uintptr(unsafe.Pointer(&h.heap)),
	)
	if hr != 0 {
		return natErr("ID3D12Device::CreateDescriptorHeap", hr)
	}
	// The handle is returned through a hidden out-parameter.
	syscall.SyscallN(h.heap.Vtbl.GetCPUDescriptorHandleForHeapStart,
		uintptr(unsafe.Pointer(h.heap)),
		uintptr(unsafe.Pointer(&h.start)),
	)
	inc, _, _ := syscall.SyscallN(n.dev.Vtbl.GetDescriptorHandleIncrementSize,
		uintptr(unsafe.Pointer(n.dev)),
		uintptr(typ),
	)
	h.inc = uint32(inc)
	h.cap = uint32(capacity)
	return nil
}

func queryAdapterName() string {
	var factory *IDXGIFactory1
	hr, _, _ := _CreateDXGIFactory1.Call(
		uintptr(unsafe.Pointer(&IID_IDXGIFactory1)),
		uintptr(unsafe.Pointer(&factory)),
	)
	if hr != 0 {
		return "Unknown Adapter"
	}
	defer release(unsafe.Pointer(factory))
	var adapter *IDXGIAdapter1
	hr, _, _ = syscall.SyscallN(factory.Vtbl.EnumAdapters1,
		uintptr(unsafe.Pointer(factory)),
		0,
		uintptr(unsafe.Pointer(&adapter)),
	)
	if hr != 0 {
		return "Unknown Adapter"
	}
	defer release(unsafe.Pointer(adapter))
	var desc DXGI_ADAPTER_DESC1
	syscall.SyscallN(adapter.Vtbl.GetDesc1,
		uintptr(unsafe.Pointer(adapter)),
		uintptr(unsafe.Pointer(&desc)),
	)
	return windows.UTF16ToString(desc.Description[:])
}

func (n *native) placeholder() bool { return false }

func (n *native) adapterName() string { return n.adapter }

func (n *native) raytracing() bool { return n.dev5 != nil }

func (n *native) heapStart(k hal.DescriptorHeapKind) uintptr {
	return n.heaps[k].start.Ptr
}

func (n *native) heapIncrement(k hal.DescriptorHeapKind) uint32 {
	return n.heaps[k].inc
}

// resourceStates maps the portable state mask to native bits.
func resourceStates(s hal.ResourceState) uint32 {
	var r uint32
	if s&(hal.StateConstantBuffer|hal.StateVertexBuffer) != 0 {
		r |= RESOURCE_STATE_VERTEX_CONSTANT
	}
	if s&hal.StateIndexBuffer != 0 {
		r |= RESOURCE_STATE_INDEX_BUFFER
	}
	if s&hal.StateShaderResource != 0 {
		r |= RESOURCE_STATE_NON_PIXEL_SRV | RESOURCE_STATE_PIXEL_SRV
	}
	if s&hal.StateUnorderedAccess != 0 {
		r |= RESOURCE_STATE_UNORDERED_ACCESS
	}
	if s&hal.StateRenderTarget != 0 {
		r |= RESOURCE_STATE_RENDER_TARGET
	}
	if s&hal.StateDepthWrite != 0 {
		r |= RESOURCE_STATE_DEPTH_WRITE
	}
	if s&hal.StateDepthRead != 0 {
		r |= RESOURCE_STATE_DEPTH_READ
	}
	if s&hal.StateCopyDest != 0 {
		r |= RESOURCE_STATE_COPY_DEST
	}
	if s&hal.StateCopySource != 0 {
		r |= RESOURCE_STATE_COPY_SOURCE
	}
	if s&hal.StateIndirectArgument != 0 {
		r |= RESOURCE_STATE_INDIRECT_ARGUMENT
	}
	if s&(hal.StateAccelStructRead|hal.StateAccelStructWrite) != 0 {
		r |= RESOURCE_STATE_RT_ACCEL_STRUCT
	}
	if s&hal.StateAccelStructBuildInput != 0 {
		r |= RESOURCE_STATE_NON_PIXEL_SRV
	}
	return r
}

func (n *native) createCommitted(heapType uint32, rd *RESOURCE_DESC, state uint32, clear *CLEAR_VALUE) (uintptr, error) {
	hp := HEAP_PROPERTIES{Type: heapType}
	var res *ID3D12Resource
	hr, _, _ := syscall.SyscallN(n.dev.Vtbl.CreateCommittedResource,
		uintptr(unsafe.Pointer(n.dev)),
		uintptr(unsafe.Pointer(&hp)),
		0, // HeapFlags
		uintptr(unsafe.Pointer(rd)),
		uintptr(state),
		uintptr(unsafe.Pointer(clear)),
		uintptr(unsafe.Pointer(&IID_ID3D12Resource)),
		uintptr(unsafe.Pointer(&res)),
	)
	if hr != 0 {
		return 0, natErr("ID3D12Device::CreateCommittedResource", hr)
	}
	return uintptr(unsafe.Pointer(res)), nil
}

func (n *native) createTexture(desc *hal.TextureDesc) (uintptr, error) {
	depth := desc.Depth
	if depth <= 0 {
		depth = 1
	}
	layers := desc.ArraySize
	if layers <= 0 {
		layers = 1
	}
	mips := desc.MipLevels
	if mips <= 0 {
		mips = 1
	}
	samples := desc.Samples
	if samples <= 0 {
		samples = 1
	}
	rd := RESOURCE_DESC{
		Dimension:        RESOURCE_DIMENSION_TEXTURE2D,
		Width:            uint64(desc.Width),
		Height:           uint32(desc.Height),
		DepthOrArraySize: uint16(layers),
		MipLevels:        uint16(mips),
		Format:           dxgiFormat(desc.Format),
		SampleDesc:       SAMPLE_DESC{Count: uint32(samples)},
	}
	if desc.Dimension == hal.Texture3D {
		rd.Dimension = RESOURCE_DIMENSION_TEXTURE3D
		rd.DepthOrArraySize = uint16(depth)
	}
	var clear *CLEAR_VALUE
	if desc.Usage&hal.TextureRenderTarget != 0 {
		rd.Flags |= RESOURCE_FLAG_ALLOW_RENDER_TARGET
		clear = &CLEAR_VALUE{Format: rd.Format, Color: desc.ClearValue.Color}
	}
	if desc.Usage&hal.TextureDepthStencil != 0 {
		rd.Flags |= RESOURCE_FLAG_ALLOW_DEPTH_STENCIL
		clear = &CLEAR_VALUE{Format: rd.Format}
		clear.Color[0] = desc.ClearValue.Depth
		clear.Color[1] = math.Float32frombits(desc.ClearValue.Stencil)
	}
	if desc.Usage&hal.TextureUnorderedAccess != 0 {
		rd.Flags |= RESOURCE_FLAG_ALLOW_UNORDERED_ACCESS
	}
	return n.createCommitted(HEAP_TYPE_DEFAULT, &rd, resourceStates(desc.InitialState), clear)
}

func (n *native) createTextureView(res uintptr, desc *hal.TextureDesc, usage hal.TextureUsage, addr uintptr) error {
	switch usage {
	case hal.TextureDepthStencil:
		syscall.SyscallN(n.dev.Vtbl.CreateDepthStencilView,
			uintptr(unsafe.Pointer(n.dev)),
			res,
			0, // pDesc: derive from resource
			addr,
		)
	case hal.TextureUnorderedAccess:
		syscall.SyscallN(n.dev.Vtbl.CreateUnorderedAccessView,
			uintptr(unsafe.Pointer(n.dev)),
			res,
			0, // pCounterResource
			0, // pDesc: derive from resource
			addr,
		)
	}
	return nil
}

func (n *native) createBuffer(desc *hal.BufferDesc) (uintptr, error) {
	rd := RESOURCE_DESC{
		Dimension:        RESOURCE_DIMENSION_BUFFER,
		Width:            uint64(desc.Size),
		Height:           1,
		DepthOrArraySize: 1,
		MipLevels:        1,
		SampleDesc:       SAMPLE_DESC{Count: 1},
		Layout:           TEXTURE_LAYOUT_ROW_MAJOR,
	}
	heapType := uint32(HEAP_TYPE_DEFAULT)
	state := resourceStates(desc.InitialState)
	switch desc.CPUAccess {
	case hal.CPUWrite:
		// Upload heap resources are created in the generic read
		// state and stay there.
		heapType = HEAP_TYPE_UPLOAD
		state = RESOURCE_STATE_GENERIC_READ
	case hal.CPURead:
		heapType = HEAP_TYPE_READBACK
		state = RESOURCE_STATE_COPY_DEST
	}
	if desc.Usage&(hal.BufferUnorderedAccess|hal.BufferAccelStructStorage) != 0 {
		rd.Flags |= RESOURCE_FLAG_ALLOW_UNORDERED_ACCESS
	}
	if desc.Usage&hal.BufferAccelStructStorage != 0 {
		state = RESOURCE_STATE_RT_ACCEL_STRUCT
	}
	return n.createCommitted(heapType, &rd, state, nil)
}

func (n *native) writeBuffer(res uintptr, data []byte, off int64) error {
	r := (*ID3D12Resource)(unsafe.Pointer(res))
	var p unsafe.Pointer
	hr, _, _ := syscall.SyscallN(r.Vtbl.Map,
		res,
		0, // Subresource
		0, // pReadRange
		uintptr(unsafe.Pointer(&p)),
	)
	if hr != 0 {
		return natErr("ID3D12Resource::Map", hr)
	}
	dst := unsafe.Slice((*byte)(unsafe.Add(p, off)), len(data))
	copy(dst, data)
	syscall.SyscallN(r.Vtbl.Unmap, res, 0, 0)
	return nil
}

func (n *native) bufferAddress(res uintptr) uint64 {
	if res == 0 {
		return 0
	}
	r := (*ID3D12Resource)(unsafe.Pointer(res))
	va, _, _ := syscall.SyscallN(r.Vtbl.GetGPUVirtualAddress, res)
	return uint64(va)
}

// samplerFilter collapses the three portable filters into the
// native combined filter enum.
func samplerFilter(d *hal.SamplerDesc) uint32 {
	// D3D12_FILTER bit layout: mip bit 0, mag bit 2, min bit 4,
	// anisotropic 0x55.
	if d.MaxAniso > 1 {
		return 0x55
	}
	var f uint32
	if d.MipFilter == hal.FilterLinear {
		f |= 0x1
	}
	if d.MagFilter == hal.FilterLinear {
		f |= 0x4
	}
	if d.MinFilter == hal.FilterLinear {
		f |= 0x10
	}
	return f
}

func samplerAddress(m hal.AddressMode) uint32 {
	// D3D12_TEXTURE_ADDRESS_MODE: wrap 1, mirror 2, clamp 3,
	// border 4.
	switch m {
	case hal.AddressMirror:
		return 2
	case hal.AddressClamp:
		return 3
	case hal.AddressBorder:
		return 4
	default:
		return 1
	}
}

func (n *native) createSampler(desc *hal.SamplerDesc, addr uintptr) error {
	aniso := desc.MaxAniso
	if aniso <= 0 {
		aniso = 1
	}
	sd := SAMPLER_DESC{
		Filter:        samplerFilter(desc),
		AddressU:      samplerAddress(desc.AddressU),
		AddressV:      samplerAddress(desc.AddressV),
		AddressW:      samplerAddress(desc.AddressW),
		MaxAnisotropy: uint32(aniso),
		MinLOD:        desc.MinLOD,
		MaxLOD:        desc.MaxLOD,
	}
	syscall.SyscallN(n.dev.Vtbl.CreateSampler,
		uintptr(unsafe.Pointer(n.dev)),
		uintptr(unsafe.Pointer(&sd)),
		addr,
	)
	return nil
}

func (n *native) createRootSignature(tables []hal.BindingTable) (uintptr, error) {
	params, ranges := rootParameters(tables)
	_ = ranges // kept alive until serialization returns
	rsd := rootSignatureDesc(params)
	var blob, errBlob *ID3DBlob
	hr, _, _ := _D3D12SerializeRootSignature.Call(
		uintptr(unsafe.Pointer(&rsd)),
		ROOT_SIGNATURE_VERSION_1,
		uintptr(unsafe.Pointer(&blob)),
		uintptr(unsafe.Pointer(&errBlob)),
	)
	if errBlob != nil {
		release(unsafe.Pointer(errBlob))
	}
	if hr != 0 {
		return 0, natErr("D3D12SerializeRootSignature", hr)
	}
	defer release(unsafe.Pointer(blob))
	bp, _, _ := syscall.SyscallN(blob.Vtbl.GetBufferPointer, uintptr(unsafe.Pointer(blob)))
	bs, _, _ := syscall.SyscallN(blob.Vtbl.GetBufferSize, uintptr(unsafe.Pointer(blob)))
	var sig uintptr
	hr, _, _ = syscall.SyscallN(n.dev.Vtbl.CreateRootSignature,
		uintptr(unsafe.Pointer(n.dev)),
		0, // nodeMask
		bp,
		bs,
		uintptr(unsafe.Pointer(&IID_ID3D12RootSignature)),
		uintptr(unsafe.Pointer(&sig)),
	)
	if hr != 0 {
		return 0, natErr("ID3D12Device::CreateRootSignature", hr)
	}
	return sig, nil
}

func bytecode(s hal.Shader) SHADER_BYTECODE {
	if s == nil {
		return SHADER_BYTECODE{}
	}
	bc := s.Desc().Bytecode
	return SHADER_BYTECODE{PShaderBytecode: &bc[0], BytecodeLength: uintptr(len(bc))}
}

func blendFactor(f hal.BlendFactor) uint32 {
	// D3D12_BLEND values.
	switch f {
	case hal.BlendOne:
		return 2
	case hal.BlendSrcColor:
		return 3
	case hal.BlendInvSrcColor:
		return 4
	case hal.BlendSrcAlpha:
		return 5
	case hal.BlendInvSrcAlpha:
		return 6
	case hal.BlendDstAlpha:
		return 7
	case hal.BlendInvDstAlpha:
		return 8
	default:
		return 1 // zero
	}
}

func boolU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func (n *native) createGraphicsPipeline(desc *hal.GraphicsPipelineDesc, rootSig uintptr) (uintptr, error) {
	pd := GRAPHICS_PIPELINE_STATE_DESC{
		PRootSignature: rootSig,
		VS:             bytecode(desc.VertexShader),
		PS:             bytecode(desc.PixelShader),
		SampleMask:     0xffffffff,
		RasterizerState: RASTERIZER_DESC{
			FillMode:              3 - 2*boolU32(desc.Raster.Wireframe), // solid 3, wireframe 2
			CullMode:              uint32(desc.Raster.Cull) + 1,         // none 1, front 2, back 3
			FrontCounterClockwise: boolU32(!desc.Raster.FrontClockwise),
			DepthBias:             int32(desc.Raster.DepthBias),
			SlopeScaledDepthBias:  desc.Raster.SlopeScaledBias,
			DepthClipEnable:       boolU32(!desc.Raster.DepthClampEnable),
		},
		DepthStencilState: DEPTH_STENCIL_DESC{
			DepthEnable:      boolU32(desc.DepthStencil.DepthTest),
			DepthWriteMask:   boolU32(desc.DepthStencil.DepthWrite),
			DepthFunc:        uint32(desc.DepthStencil.DepthFunc) + 1,
			StencilEnable:    boolU32(desc.DepthStencil.StencilTest),
			StencilReadMask:  desc.DepthStencil.StencilRead,
			StencilWriteMask: desc.DepthStencil.StencilWrite,
		},
		NumRenderTargets: uint32(len(desc.ColorFormats)),
		DSVFormat:        dxgiFormat(desc.DepthFormat),
		SampleDesc:       SAMPLE_DESC{Count: 1},
	}
	if desc.Samples > 1 {
		pd.SampleDesc.Count = uint32(desc.Samples)
	}
	switch desc.Topology {
	case hal.TopologyPointList:
		pd.PrimitiveTopologyType = PRIMITIVE_TOPOLOGY_TYPE_POINT
	case hal.TopologyLineList:
		pd.PrimitiveTopologyType = PRIMITIVE_TOPOLOGY_TYPE_LINE
	default:
		pd.PrimitiveTopologyType = PRIMITIVE_TOPOLOGY_TYPE_TRIANGLE
	}
	for i, f := range desc.ColorFormats {
		pd.RTVFormats[i] = dxgiFormat(f)
	}
	b := &pd.BlendState.RenderTarget[0]
	b.BlendEnable = boolU32(desc.Blend.Enable)
	b.SrcBlend = blendFactor(desc.Blend.SrcFactor)
	b.DestBlend = blendFactor(desc.Blend.DstFactor)
	b.BlendOp = 1 // add
	b.SrcBlendAlpha = 2
	b.DestBlendAlpha = 1
	b.BlendOpAlpha = 1
	b.RenderTargetWriteMask = 0xf
	pd.BlendState.AlphaToCoverageEnable = boolU32(desc.Blend.AlphaToCoverage)

	// Vertex input. Semantic names and element records must stay
	// alive across the native call.
	var elems []INPUT_ELEMENT_DESC
	var names [][]byte
	for _, a := range desc.Input {
		name := append([]byte(a.Name), 0)
		names = append(names, name)
		elems = append(elems, INPUT_ELEMENT_DESC{
			SemanticName:      &name[0],
			Format:            dxgiFormat(a.Format),
			InputSlot:         uint32(a.BufferIndex),
			AlignedByteOffset: uint32(a.Offset),
		})
	}
	if len(elems) > 0 {
		pd.InputLayout = INPUT_LAYOUT_DESC{
			PInputElementDescs: &elems[0],
			NumElements:        uint32(len(elems)),
		}
	}

	var pso uintptr
	hr, _, _ := syscall.SyscallN(n.dev.Vtbl.CreateGraphicsPipelineState,
		uintptr(unsafe.Pointer(n.dev)),
		uintptr(unsafe.Pointer(&pd)),
		uintptr(unsafe.Pointer(&IID_ID3D12PipelineState)),
		uintptr(unsafe.Pointer(&pso)),
	)
	_ = names
	if hr != 0 {
		return 0, natErr("ID3D12Device::CreateGraphicsPipelineState", hr)
	}
	return pso, nil
}

func (n *native) createComputePipeline(desc *hal.ComputePipelineDesc, rootSig uintptr) (uintptr, error) {
	pd := COMPUTE_PIPELINE_STATE_DESC{
		PRootSignature: rootSig,
		CS:             bytecode(desc.Shader),
	}
	var pso uintptr
	hr, _, _ := syscall.SyscallN(n.dev.Vtbl.CreateComputePipelineState,
		uintptr(unsafe.Pointer(n.dev)),
		uintptr(unsafe.Pointer(&pd)),
		uintptr(unsafe.Pointer(&IID_ID3D12PipelineState)),
		uintptr(unsafe.Pointer(&pso)),
	)
	if hr != 0 {
		return 0, natErr("ID3D12Device::CreateComputePipelineState", hr)
	}
	return pso, nil
}

func (n *native) newFence() (*nativeFence, error) {
	f := &nativeFence{}
	hr, _, _ := syscall.SyscallN(n.dev.Vtbl.CreateFence,
		uintptr(unsafe.Pointer(n.dev)),
		0, 0,
		uintptr(unsafe.Pointer(&IID_ID3D12Fence)),
		uintptr(unsafe.Pointer(&f.fence)),
	)
	if hr != 0 {
		return nil, natErr("ID3D12Device::CreateFence", hr)
	}
	ev, err := windows.CreateEvent(nil, 0, 0, nil)
	if err != nil {
		release(unsafe.Pointer(f.fence))
		return nil, fmt.Errorf("CreateEvent: %w", err)
	}
	f.event = ev
	return f, nil
}

func (n *native) releaseFence(f *nativeFence) {
	release(unsafe.Pointer(f.fence))
	windows.CloseHandle(f.event)
}

func (n *native) signalFence(f *nativeFence) error {
	f.value++
	hr, _, _ := syscall.SyscallN(n.queue.Vtbl.Signal,
		uintptr(unsafe.Pointer(n.queue)),
		uintptr(unsafe.Pointer(f.fence)),
		uintptr(f.value),
	)
	if hr != 0 {
		return natErr("ID3D12CommandQueue::Signal", hr)
	}
	return nil
}

func (n *native) waitFence(f *nativeFence) error {
	if f.value == 0 {
		return fmt.Errorf("WaitFence: fence never signaled")
	}
	if n.fenceSignaled(f) {
		return nil
	}
	hr, _, _ := syscall.SyscallN(f.fence.Vtbl.SetEventOnCompletion,
		uintptr(unsafe.Pointer(f.fence)),
		uintptr(f.value),
		uintptr(f.event),
	)
	if hr != 0 {
		return natErr("ID3D12Fence::SetEventOnCompletion", hr)
	}
	_, err := windows.WaitForSingleObject(f.event, windows.INFINITE)
	return err
}

func (n *native) fenceSignaled(f *nativeFence) bool {
	if f.value == 0 {
		return false
	}
	done, _, _ := syscall.SyscallN(f.fence.Vtbl.GetCompletedValue,
		uintptr(unsafe.Pointer(f.fence)))
	return uint64(done) >= f.value
}

func (n *native) waitIdle() error {
	n.idleValue++
	hr, _, _ := syscall.SyscallN(n.queue.Vtbl.Signal,
		uintptr(unsafe.Pointer(n.queue)),
		uintptr(unsafe.Pointer(n.idleFence)),
		uintptr(n.idleValue),
	)
	if hr != 0 {
		return natErr("ID3D12CommandQueue::Signal", hr)
	}
	done, _, _ := syscall.SyscallN(n.idleFence.Vtbl.GetCompletedValue,
		uintptr(unsafe.Pointer(n.idleFence)))
	if uint64(done) >= n.idleValue {
		return nil
	}
	hr, _, _ = syscall.SyscallN(n.idleFence.Vtbl.SetEventOnCompletion,
		uintptr(unsafe.Pointer(n.idleFence)),
		uintptr(n.idleValue),
		uintptr(n.idleEvent),
	)
	if hr != 0 {
		return natErr("ID3D12Fence::SetEventOnCompletion", hr)
	}
	_, err := windows.WaitForSingleObject(n.idleEvent, windows.INFINITE)
	return err
}

func (n *native) execute(lists []*nativeList) error {
	ptrs := make([]uintptr, len(lists))
	for i, l := range lists {
		ptrs[i] = uintptr(unsafe.Pointer(l.list))
	}
	if len(ptrs) == 0 {
		return nil
	}
	syscall.SyscallN(n.queue.Vtbl.ExecuteCommandLists,
		uintptr(unsafe.Pointer(n.queue)),
		uintptr(len(ptrs)),
		uintptr(unsafe.Pointer(&ptrs[0])),
	)
	return nil
}

func (n *native) release(h uintptr) {
	release(unsafe.Pointer(h))
}

func (n *native) destroy() {
	for pso, t := range n.rtTables {
		release(unsafe.Pointer(t.buf))
		delete(n.rtTables, pso)
	}
	release(unsafe.Pointer(n.idleFence))
	if n.idleEvent != 0 {
		windows.CloseHandle(n.idleEvent)
	}
	release(unsafe.Pointer(n.rtvs.heap))
	release(unsafe.Pointer(n.dsvs.heap))
	for i := range n.heaps {
		release(unsafe.Pointer(n.heaps[i].heap))
	}
	release(unsafe.Pointer(n.queue))
	release(unsafe.Pointer(n.dev5))
	release(unsafe.Pointer(n.dev))
	*n = native{}
}

type nativeFence struct {
	fence *ID3D12Fence
	event windows.Handle
	value uint64
}

type nativeList struct {
	n     *native
	typ   uint32
	alloc *ID3D12CommandAllocator
	list  *ID3D12GraphicsCommandList
	// transient holds per-recording native resources (scratch and
	// instance upload buffers), released on reset.
	transient []uintptr
	rtTable   *shaderTable
}

func listType(t hal.CommandListType) uint32 {
	switch t {
	case hal.ListCompute:
		return COMMAND_LIST_TYPE_COMPUTE
	case hal.ListCopy:
		return COMMAND_LIST_TYPE_COPY
	default:
		return COMMAND_LIST_TYPE_DIRECT
	}
}

func (n *native) newList(typ hal.CommandListType) (*nativeList, error) {
	l := &nativeList{n: n, typ: listType(typ)}
	hr, _, _ := syscall.SyscallN(n.dev.Vtbl.CreateCommandAllocator,
		uintptr(unsafe.Pointer(n.dev)),
		uintptr(l.typ),
		uintptr(unsafe.Pointer(&IID_ID3D12CommandAllocator)),
		uintptr(unsafe.Pointer(&l.alloc)),
	)
	if hr != 0 {
		return nil, natErr("ID3D12Device::CreateCommandAllocator", hr)
	}
	iid := &IID_ID3D12CommandList
	if n.dev5 != nil {
		iid = &IID_ID3D12CommandList4
	}
	hr, _, _ = syscall.SyscallN(n.dev.Vtbl.CreateCommandList,
		uintptr(unsafe.Pointer(n.dev)),
		0, // nodeMask
		uintptr(l.typ),
		uintptr(unsafe.Pointer(l.alloc)),
		0, // pInitialState
		uintptr(unsafe.Pointer(iid)),
		uintptr(unsafe.Pointer(&l.list)),
	)
	if hr != 0 {
		release(unsafe.Pointer(l.alloc))
		return nil, natErr("ID3D12Device::CreateCommandList", hr)
	}
	return l, nil
}

func (n *native) releaseList(l *nativeList) {
	l.dropTransient()
	release(unsafe.Pointer(l.list))
	release(unsafe.Pointer(l.alloc))
}

func (l *nativeList) dropTransient() {
	for _, t := range l.transient {
		release(unsafe.Pointer(t))
	}
	l.transient = l.transient[:0]
}

func (l *nativeList) close() error {
	hr, _, _ := syscall.SyscallN(l.list.Vtbl.Close, uintptr(unsafe.Pointer(l.list)))
	if hr != 0 {
		return natErr("ID3D12GraphicsCommandList::Close", hr)
	}
	return nil
}

func (l *nativeList) reset() error {
	l.dropTransient()
	l.rtTable = nil
	hr, _, _ := syscall.SyscallN(l.alloc.Vtbl.Reset, uintptr(unsafe.Pointer(l.alloc)))
	if hr != 0 {
		return natErr("ID3D12CommandAllocator::Reset", hr)
	}
	hr, _, _ = syscall.SyscallN(l.list.Vtbl.Reset,
		uintptr(unsafe.Pointer(l.list)),
		uintptr(unsafe.Pointer(l.alloc)),
		0, // pInitialState
	)
	if hr != 0 {
		return natErr("ID3D12GraphicsCommandList::Reset", hr)
	}
	return nil
}

// uploadTransient creates an upload-heap buffer filled with data,
// owned by the list until reset.
func (l *nativeList) uploadTransient(data []byte) (uintptr, error) {
	res, err := l.n.createBuffer(&hal.BufferDesc{
		Size:      int64(len(data)),
		Usage:     hal.BufferCopySource,
		CPUAccess: hal.CPUWrite,
	})
	if err != nil {
		return 0, err
	}
	if err := l.n.writeBuffer(res, data, 0); err != nil {
		release(unsafe.Pointer(res))
		return 0, err
	}
	l.transient = append(l.transient, res)
	return res, nil
}

// scratchTransient creates a default-heap UAV buffer for build
// scratch, owned by the list until reset.
func (l *nativeList) scratchTransient(size int64) (uintptr, error) {
	res, err := l.n.createBuffer(&hal.BufferDesc{
		Size:         size,
		Usage:        hal.BufferUnorderedAccess,
		InitialState: hal.StateUnorderedAccess,
	})
	if err != nil {
		return 0, err
	}
	l.transient = append(l.transient, res)
	return res, nil
}

func (l *nativeList) writeTexture(res uintptr, desc *hal.TextureDesc, data []byte, mip, slice int) error {
	// Row-major upload through a transient buffer and
	// CopyTextureRegion would be the complete path; uploading
	// the full subresource through WriteToSubresource covers the
	// row-aligned case this backend promises.
	r := (*ID3D12Resource)(unsafe.Pointer(res))
	pitch := desc.Width * desc.Format.Size()
	sub := uintptr(mip + slice*maxInt(desc.MipLevels, 1))
	hr, _, _ := syscall.SyscallN(r.Vtbl.WriteToSubresource,
		res,
		sub,
		0, // pDstBox
		uintptr(unsafe.Pointer(&data[0])),
		uintptr(pitch),
		uintptr(pitch*desc.Height),
	)
	if hr != 0 {
		return natErr("ID3D12Resource::WriteToSubresource", hr)
	}
	return nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (l *nativeList) copyBuffer(dst uintptr, dstOff int64, src uintptr, srcOff, size int64) error {
	syscall.SyscallN(l.list.Vtbl.CopyBufferRegion,
		uintptr(unsafe.Pointer(l.list)),
		dst,
		uintptr(dstOff),
		src,
		uintptr(srcOff),
		uintptr(size),
	)
	return nil
}

func (l *nativeList) copyTexture(dst uintptr, dstSlice int, src uintptr, srcSlice int) error {
	syscall.SyscallN(l.list.Vtbl.CopyResource,
		uintptr(unsafe.Pointer(l.list)),
		dst,
		src,
	)
	return nil
}

func (l *nativeList) clearTexture(res uintptr, desc *hal.TextureDesc, value hal.ClearValue) error {
	if desc.Usage&hal.TextureDepthStencil != 0 {
		h := l.n.dsvs.ring()
		syscall.SyscallN(l.n.dev.Vtbl.CreateDepthStencilView,
			uintptr(unsafe.Pointer(l.n.dev)), res, 0, h.Ptr)
		flags := uintptr(CLEAR_FLAG_DEPTH)
		if desc.Format.HasStencil() {
			flags |= CLEAR_FLAG_STENCIL
		}
		syscall.SyscallN(l.list.Vtbl.ClearDepthStencilView,
			uintptr(unsafe.Pointer(l.list)),
			h.Ptr,
			flags,
			uintptr(math.Float32bits(value.Depth)),
			uintptr(value.Stencil),
			0, // NumRects
			0, // pRects
		)
		return nil
	}
	h := l.n.rtvs.ring()
	syscall.SyscallN(l.n.dev.Vtbl.CreateRenderTargetView,
		uintptr(unsafe.Pointer(l.n.dev)), res, 0, h.Ptr)
	syscall.SyscallN(l.list.Vtbl.ClearRenderTargetView,
		uintptr(unsafe.Pointer(l.list)),
		h.Ptr,
		uintptr(unsafe.Pointer(&value.Color)),
		0, // NumRects
		0, // pRects
	)
	return nil
}

func (l *nativeList) transitionBarriers(ts []nativeTransition) error {
	barriers := make([]RESOURCE_BARRIER, 0, len(ts))
	for _, t := range ts {
		if t.res == 0 {
			continue
		}
		before := resourceStates(t.before)
		after := resourceStates(t.after)
		if before == after {
			continue
		}
		barriers = append(barriers, RESOURCE_BARRIER{
			Type: RESOURCE_BARRIER_TYPE_TRANSITION,
			Transition: RESOURCE_TRANSITION_BARRIER{
				PResource:   (*ID3D12Resource)(unsafe.Pointer(t.res)),
				Subresource: RESOURCE_BARRIER_ALL_SUBRESOURCES,
				StateBefore: before,
				StateAfter:  after,
			},
		})
	}
	if len(barriers) == 0 {
		return nil
	}
	syscall.SyscallN(l.list.Vtbl.ResourceBarrier,
		uintptr(unsafe.Pointer(l.list)),
		uintptr(len(barriers)),
		uintptr(unsafe.Pointer(&barriers[0])),
	)
	return nil
}

func (l *nativeList) setGraphicsState(pso, rootSig uintptr, state *hal.GraphicsState) error {
	this := uintptr(unsafe.Pointer(l.list))
	if rootSig != 0 {
		syscall.SyscallN(l.list.Vtbl.SetGraphicsRootSignature, this, rootSig)
	}
	syscall.SyscallN(l.list.Vtbl.SetPipelineState, this, pso)

	topo := uintptr(PRIMITIVE_TOPOLOGY_TRIANGLELIST)
	syscall.SyscallN(l.list.Vtbl.IASetPrimitiveTopology, this, topo)

	if state.Viewport.Width > 0 {
		vp := VIEWPORT{
			TopLeftX: state.Viewport.X,
			TopLeftY: state.Viewport.Y,
			Width:    state.Viewport.Width,
			Height:   state.Viewport.Height,
			MinDepth: state.Viewport.MinDepth,
			MaxDepth: state.Viewport.MaxDepth,
		}
		syscall.SyscallN(l.list.Vtbl.RSSetViewports, this, 1, uintptr(unsafe.Pointer(&vp)))
		sc := RECT{
			Left:   int32(vp.TopLeftX),
			Top:    int32(vp.TopLeftY),
			Right:  int32(vp.TopLeftX + vp.Width),
			Bottom: int32(vp.TopLeftY + vp.Height),
		}
		syscall.SyscallN(l.list.Vtbl.RSSetScissorRects, this, 1, uintptr(unsafe.Pointer(&sc)))
	}

	if len(state.VertexBuffers) > 0 {
		views := make([]VERTEX_BUFFER_VIEW, len(state.VertexBuffers))
		for i, vb := range state.VertexBuffers {
			b, ok := vb.(*buffer)
			if !ok {
				return fmt.Errorf("SetGraphicsState: %w: vertex buffer %d is foreign",
					hal.ErrInvalidArgument, i)
			}
			var off int64
			if i < len(state.VertexOffsets) {
				off = state.VertexOffsets[i]
			}
			views[i] = VERTEX_BUFFER_VIEW{
				BufferLocation: l.n.bufferAddress(b.nat) + uint64(off),
				SizeInBytes:    uint32(b.desc.Size - off),
			}
		}
		syscall.SyscallN(l.list.Vtbl.IASetVertexBuffers,
			this, 0, uintptr(len(views)), uintptr(unsafe.Pointer(&views[0])))
	}
	if state.IndexBuffer != nil {
		b, ok := state.IndexBuffer.(*buffer)
		if !ok {
			return fmt.Errorf("SetGraphicsState: %w: foreign index buffer", hal.ErrInvalidArgument)
		}
		view := INDEX_BUFFER_VIEW{
			BufferLocation: l.n.bufferAddress(b.nat) + uint64(state.IndexOffset),
			SizeInBytes:    uint32(b.desc.Size - state.IndexOffset),
			Format:         dxgiFormat(state.IndexFormat),
		}
		syscall.SyscallN(l.list.Vtbl.IASetIndexBuffer, this, uintptr(unsafe.Pointer(&view)))
	}
	return nil
}

func (l *nativeList) draw(args hal.DrawArgs, indexed bool) error {
	this := uintptr(unsafe.Pointer(l.list))
	inst := args.InstanceCount
	if inst <= 0 {
		inst = 1
	}
	if indexed {
		syscall.SyscallN(l.list.Vtbl.DrawIndexedInstanced,
			this,
			uintptr(args.VertexCount),
			uintptr(inst),
			uintptr(args.FirstIndex),
			uintptr(args.FirstVertex),
			uintptr(args.FirstInstance),
		)
		return nil
	}
	syscall.SyscallN(l.list.Vtbl.DrawInstanced,
		this,
		uintptr(args.VertexCount),
		uintptr(inst),
		uintptr(args.FirstVertex),
		uintptr(args.FirstInstance),
	)
	return nil
}

func (l *nativeList) setComputeState(pso, rootSig uintptr) error {
	this := uintptr(unsafe.Pointer(l.list))
	if rootSig != 0 {
		syscall.SyscallN(l.list.Vtbl.SetComputeRootSignature, this, rootSig)
	}
	syscall.SyscallN(l.list.Vtbl.SetPipelineState, this, pso)
	return nil
}

func (l *nativeList) dispatch(x, y, z int) error {
	syscall.SyscallN(l.list.Vtbl.Dispatch,
		uintptr(unsafe.Pointer(l.list)),
		uintptr(x), uintptr(y), uintptr(z))
	return nil
}

func (l *nativeList) setRayTracingState(pso, rootSig uintptr) error {
	this := uintptr(unsafe.Pointer(l.list))
	if rootSig != 0 {
		syscall.SyscallN(l.list.Vtbl.SetComputeRootSignature, this, rootSig)
	}
	syscall.SyscallN(l.list.Vtbl.SetPipelineState1, this, pso)
	l.rtTable = l.n.rtTables[pso]
	return nil
}

func (l *nativeList) dispatchRays(args hal.DispatchRaysArgs) error {
	t := l.rtTable
	if t == nil {
		return fmt.Errorf("DispatchRays: %w: no raytracing pipeline bound", hal.ErrInvalidArgument)
	}
	depth := args.Depth
	if depth <= 0 {
		depth = 1
	}
	dd := DISPATCH_RAYS_DESC{
		RayGenerationShaderRecord: GPU_VIRTUAL_ADDRESS_RANGE{
			StartAddress: t.rayGenVA,
			SizeInBytes:  SHADER_TABLE_RECORD_ALIGNMENT,
		},
		Width:  uint32(args.Width),
		Height: uint32(args.Height),
		Depth:  uint32(depth),
	}
	if t.missN > 0 {
		dd.MissShaderTable = GPU_VIRTUAL_ADDRESS_RANGE_AND_STRIDE{
			StartAddress:  t.missVA,
			SizeInBytes:   uint64(t.missN) * SHADER_TABLE_RECORD_ALIGNMENT,
			StrideInBytes: SHADER_TABLE_RECORD_ALIGNMENT,
		}
	}
	if t.hitN > 0 {
		dd.HitGroupTable = GPU_VIRTUAL_ADDRESS_RANGE_AND_STRIDE{
			StartAddress:  t.hitVA,
			SizeInBytes:   uint64(t.hitN) * SHADER_TABLE_RECORD_ALIGNMENT,
			StrideInBytes: SHADER_TABLE_RECORD_ALIGNMENT,
		}
	}
	syscall.SyscallN(l.list.Vtbl.DispatchRays,
		uintptr(unsafe.Pointer(l.list)),
		uintptr(unsafe.Pointer(&dd)),
	)
	return nil
}

func (l *nativeList) beginMarker(name string) {}

func (l *nativeList) endMarker() {}

func buildFlags(f hal.AccelStructBuildFlags) uint32 {
	var r uint32
	if f&hal.BuildAllowUpdate != 0 {
		r |= RAYTRACING_BUILD_FLAG_ALLOW_UPDATE
	}
	if f&hal.BuildAllowCompaction != 0 {
		r |= RAYTRACING_BUILD_FLAG_ALLOW_COMPACTION
	}
	if f&hal.BuildPreferFastTrace != 0 {
		r |= RAYTRACING_BUILD_FLAG_PREFER_FAST_TRACE
	}
	if f&hal.BuildPreferFastBuild != 0 {
		r |= RAYTRACING_BUILD_FLAG_PREFER_FAST_BUILD
	}
	return r
}

func geometryDescs(geoms []geometryInput) []RAYTRACING_GEOMETRY_DESC {
	out := make([]RAYTRACING_GEOMETRY_DESC, len(geoms))
	for i, g := range geoms {
		out[i] = RAYTRACING_GEOMETRY_DESC{
			Type: RAYTRACING_GEOMETRY_TYPE_TRIANGLES,
			Triangles: RAYTRACING_GEOMETRY_TRIANGLES_DESC{
				Transform3x4:              g.transformVA,
				VertexFormat:              g.vertexFormat,
				VertexCount:               uint32(g.vertexCount),
				VertexBufferStartAddress:  g.vertexVA,
				VertexBufferStrideInBytes: uint64(g.vertexStride),
			},
		}
		if g.opaque {
			out[i].Flags = RAYTRACING_GEOMETRY_FLAG_OPAQUE
		}
		if g.indexVA != 0 {
			out[i].Triangles.IndexBuffer = g.indexVA
			out[i].Triangles.IndexCount = uint32(g.indexCount)
			out[i].Triangles.IndexFormat = DXGI_FORMAT_R32_UINT
		}
	}
	return out
}

func (n *native) prebuild(desc *hal.AccelStructDesc) (hal.PrebuildInfo, error) {
	var inputs BUILD_RAYTRACING_ACCELERATION_STRUCTURE_INPUTS
	switch desc.Kind {
	case hal.BottomLevel:
		// Prebuild only inspects counts and formats; zero device
		// addresses are valid here.
		geoms := make([]geometryInput, len(desc.Geometries))
		for i, g := range desc.Geometries {
			geoms[i] = geometryInput{
				vertexCount:  g.VertexCount,
				vertexStride: g.VertexStride,
				vertexFormat: dxgiFormat(g.VertexFormat),
				indexCount:   g.IndexCount,
				opaque:       g.Flags&hal.GeometryOpaque != 0,
			}
			if g.IndexBuffer != nil {
				geoms[i].indexVA = 1 // non-zero marks indexed
			}
		}
		gds := geometryDescs(geoms)
		for i := range gds {
			gds[i].Triangles.IndexBuffer = 0
		}
		inputs = BUILD_RAYTRACING_ACCELERATION_STRUCTURE_INPUTS{
			Type:     RAYTRACING_ACCEL_STRUCT_TYPE_BOTTOM_LEVEL,
			Flags:    buildFlags(desc.BuildFlags),
			NumDescs: uint32(len(gds)),
			Descs:    uint64(uintptr(unsafe.Pointer(&gds[0]))),
		}
	case hal.TopLevel:
		inputs = BUILD_RAYTRACING_ACCELERATION_STRUCTURE_INPUTS{
			Type:     RAYTRACING_ACCEL_STRUCT_TYPE_TOP_LEVEL,
			Flags:    buildFlags(desc.BuildFlags),
			NumDescs: uint32(desc.MaxInstances),
		}
	}
	var info RAYTRACING_ACCELERATION_STRUCTURE_PREBUILD_INFO
	syscall.SyscallN(n.dev5.Vtbl.GetRaytracingAccelerationStructurePrebuildInfo,
		uintptr(unsafe.Pointer(n.dev5)),
		uintptr(unsafe.Pointer(&inputs)),
		uintptr(unsafe.Pointer(&info)),
	)
	if info.ResultDataMaxSizeInBytes == 0 {
		return hal.PrebuildInfo{}, &hal.NativeError{
			Op: "ID3D12Device5::GetRaytracingAccelerationStructurePrebuildInfo",
		}
	}
	return hal.PrebuildInfo{
		ResultSize:  int64(info.ResultDataMaxSizeInBytes),
		ScratchSize: int64(info.ScratchDataSizeInBytes),
	}, nil
}

func (l *nativeList) buildBottomLevel(dstVA uint64, geoms []geometryInput, scratchSize int64, flags hal.AccelStructBuildFlags) error {
	scratch, err := l.scratchTransient(scratchSize)
	if err != nil {
		return err
	}
	gds := geometryDescs(geoms)
	bd := BUILD_RAYTRACING_ACCELERATION_STRUCTURE_DESC{
		DestAccelerationStructureData: dstVA,
		Inputs: BUILD_RAYTRACING_ACCELERATION_STRUCTURE_INPUTS{
			Type:     RAYTRACING_ACCEL_STRUCT_TYPE_BOTTOM_LEVEL,
			Flags:    buildFlags(flags),
			NumDescs: uint32(len(gds)),
			Descs:    uint64(uintptr(unsafe.Pointer(&gds[0]))),
		},
		ScratchAccelerationStructureData: l.n.bufferAddress(scratch),
	}
	syscall.SyscallN(l.list.Vtbl.BuildRaytracingAccelerationStructure,
		uintptr(unsafe.Pointer(l.list)),
		uintptr(unsafe.Pointer(&bd)),
		0, // NumPostbuildInfoDescs
		0, // pPostbuildInfoDescs
	)
	return nil
}

func (l *nativeList) buildTopLevel(dstVA uint64, instances []instanceInput, scratchSize int64, flags hal.AccelStructBuildFlags) error {
	records := make([]RAYTRACING_INSTANCE_DESC, len(instances))
	for i, in := range instances {
		records[i] = RAYTRACING_INSTANCE_DESC{
			Transform:             in.transform,
			InstanceIDAndMask:     in.id&0xffffff | uint32(in.mask)<<24,
			ContributionAndFlags:  uint32(in.flags) << 24,
			AccelerationStructure: in.blasVA,
		}
	}
	data := unsafe.Slice((*byte)(unsafe.Pointer(&records[0])),
		len(records)*int(unsafe.Sizeof(records[0])))
	instBuf, err := l.uploadTransient(data)
	if err != nil {
		return err
	}
	scratch, err := l.scratchTransient(scratchSize)
	if err != nil {
		return err
	}
	bd := BUILD_RAYTRACING_ACCELERATION_STRUCTURE_DESC{
		DestAccelerationStructureData: dstVA,
		Inputs: BUILD_RAYTRACING_ACCELERATION_STRUCTURE_INPUTS{
			Type:     RAYTRACING_ACCEL_STRUCT_TYPE_TOP_LEVEL,
			Flags:    buildFlags(flags),
			NumDescs: uint32(len(records)),
			Descs:    l.n.bufferAddress(instBuf),
		},
		ScratchAccelerationStructureData: l.n.bufferAddress(scratch),
	}
	syscall.SyscallN(l.list.Vtbl.BuildRaytracingAccelerationStructure,
		uintptr(unsafe.Pointer(l.list)),
		uintptr(unsafe.Pointer(&bd)),
		0, 0,
	)
	return nil
}

func (l *nativeList) copyAccelStruct(dstVA, srcVA uint64) error {
	syscall.SyscallN(l.list.Vtbl.CopyRaytracingAccelerationStructure,
		uintptr(unsafe.Pointer(l.list)),
		uintptr(dstVA),
		uintptr(srcVA),
		RAYTRACING_COPY_MODE_COMPACT,
	)
	return nil
}

func (n *native) createRayTracingPipeline(desc *hal.RayTracingPipelineDesc, rootSig uintptr) (uintptr, error) {
	var subs []STATE_SUBOBJECT
	libs := make([]DXIL_LIBRARY_DESC, len(desc.Shaders))
	for i, s := range desc.Shaders {
		bc := s.Desc().Bytecode
		libs[i] = DXIL_LIBRARY_DESC{
			DXILLibrary: SHADER_BYTECODE{PShaderBytecode: &bc[0], BytecodeLength: uintptr(len(bc))},
		}
		subs = append(subs, STATE_SUBOBJECT{
			Type:  STATE_SUBOBJECT_TYPE_DXIL_LIBRARY,
			PDesc: unsafe.Pointer(&libs[i]),
		})
	}

	// One hit group per closest-hit export.
	hitNames := make([]*uint16, 0, len(desc.ShaderTable.ClosestHit))
	hitGroups := make([]HIT_GROUP_DESC, len(desc.ShaderTable.ClosestHit))
	for i, ch := range desc.ShaderTable.ClosestHit {
		group, err := windows.UTF16PtrFromString(fmt.Sprintf("HitGroup%d", i))
		if err != nil {
			return 0, err
		}
		chp, err := windows.UTF16PtrFromString(ch)
		if err != nil {
			return 0, err
		}
		hitGroups[i] = HIT_GROUP_DESC{
			HitGroupExport:         group,
			ClosestHitShaderImport: chp,
		}
		if i < len(desc.ShaderTable.AnyHit) {
			ahp, err := windows.UTF16PtrFromString(desc.ShaderTable.AnyHit[i])
			if err != nil {
				return 0, err
			}
			hitGroups[i].AnyHitShaderImport = ahp
		}
		hitNames = append(hitNames, group)
		subs = append(subs, STATE_SUBOBJECT{
			Type:  STATE_SUBOBJECT_TYPE_HIT_GROUP,
			PDesc: unsafe.Pointer(&hitGroups[i]),
		})
	}

	attr := desc.MaxAttributeSize
	if attr <= 0 {
		attr = 8 // two barycentrics
	}
	shCfg := RAYTRACING_SHADER_CONFIG{
		MaxPayloadSizeInBytes:   uint32(desc.MaxPayloadSize),
		MaxAttributeSizeInBytes: uint32(attr),
	}
	subs = append(subs, STATE_SUBOBJECT{
		Type:  STATE_SUBOBJECT_TYPE_RAYTRACING_SHADER_CONFIG,
		PDesc: unsafe.Pointer(&shCfg),
	})
	plCfg := RAYTRACING_PIPELINE_CONFIG{MaxTraceRecursionDepth: uint32(desc.MaxRecursion)}
	subs = append(subs, STATE_SUBOBJECT{
		Type:  STATE_SUBOBJECT_TYPE_RAYTRACING_PIPELINE_CONFIG,
		PDesc: unsafe.Pointer(&plCfg),
	})
	var grs GLOBAL_ROOT_SIGNATURE
	if rootSig != 0 {
		grs.PGlobalRootSignature = rootSig
		subs = append(subs, STATE_SUBOBJECT{
			Type:  STATE_SUBOBJECT_TYPE_GLOBAL_ROOT_SIGNATURE,
			PDesc: unsafe.Pointer(&grs),
		})
	}

	sod := STATE_OBJECT_DESC{
		Type:          STATE_OBJECT_TYPE_RAYTRACING_PIPELINE,
		NumSubobjects: uint32(len(subs)),
		PSubobjects:   &subs[0],
	}
	var pso uintptr
	hr, _, _ := syscall.SyscallN(n.dev5.Vtbl.CreateStateObject,
		uintptr(unsafe.Pointer(n.dev5)),
		uintptr(unsafe.Pointer(&sod)),
		uintptr(unsafe.Pointer(&IID_ID3D12StateObject)),
		uintptr(unsafe.Pointer(&pso)),
	)
	if hr != 0 {
		return 0, natErr("ID3D12Device5::CreateStateObject", hr)
	}
	if err := n.buildShaderTable(pso, desc, hitNames); err != nil {
		release(unsafe.Pointer(pso))
		return 0, err
	}
	return pso, nil
}

// buildShaderTable resolves shader identifiers from the state
// object and uploads the raygen/miss/hit record table.
func (n *native) buildShaderTable(pso uintptr, desc *hal.RayTracingPipelineDesc, hitNames []*uint16) error {
	var props *ID3D12StateObjectProperties
	obj := (*IUnknown)(unsafe.Pointer(pso))
	hr, _, _ := syscall.SyscallN(obj.Vtbl.QueryInterface,
		pso,
		uintptr(unsafe.Pointer(&IID_ID3D12StateObjectProps)),
		uintptr(unsafe.Pointer(&props)),
	)
	if hr != 0 {
		return natErr("ID3D12StateObject::QueryInterface", hr)
	}
	defer release(unsafe.Pointer(props))

	ident := func(name *uint16) ([]byte, error) {
		p, _, _ := syscall.SyscallN(props.Vtbl.GetShaderIdentifier,
			uintptr(unsafe.Pointer(props)),
			uintptr(unsafe.Pointer(name)),
		)
		if p == 0 {
			return nil, fmt.Errorf("CreateRayTracingPipeline: %w: unknown shader export", hal.ErrInvalidArgument)
		}
		return unsafe.Slice((*byte)(unsafe.Pointer(p)), SHADER_IDENTIFIER_SIZE), nil
	}

	// Layout: one raygen record, then miss records, then hit
	// group records, each padded to the record alignment and the
	// sections to the base alignment.
	const rec = SHADER_TABLE_RECORD_ALIGNMENT
	const base = SHADER_TABLE_BASE_ALIGNMENT
	missOff := base
	hitOff := missOff + (len(desc.ShaderTable.Miss)*rec+base-1)/base*base
	total := hitOff + (len(hitNames)*rec+base-1)/base*base
	if total == hitOff {
		total += base
	}
	data := make([]byte, total)

	rg, err := windows.UTF16PtrFromString(desc.ShaderTable.RayGeneration)
	if err != nil {
		return err
	}
	id, err := ident(rg)
	if err != nil {
		return err
	}
	copy(data[0:], id)
	for i, m := range desc.ShaderTable.Miss {
		mp, err := windows.UTF16PtrFromString(m)
		if err != nil {
			return err
		}
		if id, err = ident(mp); err != nil {
			return err
		}
		copy(data[missOff+i*rec:], id)
	}
	for i, hn := range hitNames {
		if id, err = ident(hn); err != nil {
			return err
		}
		copy(data[hitOff+i*rec:], id)
	}

	buf, err := n.createBuffer(&hal.BufferDesc{
		Size:      int64(len(data)),
		Usage:     hal.BufferCopySource,
		CPUAccess: hal.CPUWrite,
	})
	if err != nil {
		return err
	}
	if err := n.writeBuffer(buf, data, 0); err != nil {
		release(unsafe.Pointer(buf))
		return err
	}
	va := n.bufferAddress(buf)
	n.rtTables[pso] = &shaderTable{
		buf:      (*ID3D12Resource)(unsafe.Pointer(buf)),
		rayGenVA: va,
		missVA:   va + uint64(missOff),
		missN:    len(desc.ShaderTable.Miss),
		hitVA:    va + uint64(hitOff),
		hitN:     len(hitNames),
	}
	return nil
}
