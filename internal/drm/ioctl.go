// Package drm drives display hardware through the kernel DRM uapi: device
// discovery under /dev/dri, master/atomic capability negotiation, and the
// single atomic property commit that flips a pipeline's ACTIVE flag.
package drm

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// ioctl encoding, from <asm-generic/ioctl.h>. Only the _IO/_IOW/_IOWR
// shapes used by the DRM calls below are spelled out.
const (
	iocWrite = 1
	iocRead  = 2

	iocNrShift   = 0
	iocTypeShift = 8
	iocSizeShift = 16
	iocDirShift  = 30

	drmIoctlType = 'd'
)

const (
	drmIoctlSetMaster  = drmIoctlType<<iocTypeShift | 0x1e<<iocNrShift
	drmIoctlDropMaster = drmIoctlType<<iocTypeShift | 0x1f<<iocNrShift

	drmIoctlSetClientCap = iocWrite<<iocDirShift |
		uint(unsafe.Sizeof(modeSetClientCap{}))<<iocSizeShift |
		drmIoctlType<<iocTypeShift | 0x0d<<iocNrShift

	drmIoctlModeGetResources = (iocRead|iocWrite)<<iocDirShift |
		uint(unsafe.Sizeof(modeCardRes{}))<<iocSizeShift |
		drmIoctlType<<iocTypeShift | 0xa0<<iocNrShift

	drmIoctlModeGetEncoder = (iocRead|iocWrite)<<iocDirShift |
		uint(unsafe.Sizeof(modeGetEncoder{}))<<iocSizeShift |
		drmIoctlType<<iocTypeShift | 0xa6<<iocNrShift

	drmIoctlModeGetConnector = (iocRead|iocWrite)<<iocDirShift |
		uint(unsafe.Sizeof(modeGetConnector{}))<<iocSizeShift |
		drmIoctlType<<iocTypeShift | 0xa7<<iocNrShift

	drmIoctlModeGetProperty = (iocRead|iocWrite)<<iocDirShift |
		uint(unsafe.Sizeof(modeGetProperty{}))<<iocSizeShift |
		drmIoctlType<<iocTypeShift | 0xaa<<iocNrShift

	drmIoctlModeObjGetProperties = (iocRead|iocWrite)<<iocDirShift |
		uint(unsafe.Sizeof(modeObjGetProperties{}))<<iocSizeShift |
		drmIoctlType<<iocTypeShift | 0xb9<<iocNrShift

	drmIoctlModeAtomic = (iocRead|iocWrite)<<iocDirShift |
		uint(unsafe.Sizeof(modeAtomic{}))<<iocSizeShift |
		drmIoctlType<<iocTypeShift | 0xbc<<iocNrShift
)

const (
	drmClientCapAtomic = 3

	drmModeAtomicAllowModeset = 0x0400

	drmModeObjectCRTC = 0xcccccccc

	connectorStatusConnected = 1
)

// struct drm_set_client_cap
type modeSetClientCap struct {
	Capability uint64
	Value      uint64
}

// struct drm_mode_card_res
type modeCardRes struct {
	FBIDPtr        uint64
	CRTCIDPtr      uint64
	ConnectorIDPtr uint64
	EncoderIDPtr   uint64
	CountFBs       uint32
	CountCRTCs     uint32
	CountConnectors uint32
	CountEncoders  uint32
	MinWidth       uint32
	MaxWidth       uint32
	MinHeight      uint32
	MaxHeight      uint32
}

// struct drm_mode_get_encoder
type modeGetEncoder struct {
	EncoderID      uint32
	EncoderType    uint32
	CRTCID         uint32
	PossibleCRTCs  uint32
	PossibleClones uint32
}

// struct drm_mode_get_connector
type modeGetConnector struct {
	EncodersPtr   uint64
	ModesPtr      uint64
	PropsPtr      uint64
	PropValuesPtr uint64

	CountModes    uint32
	CountProps    uint32
	CountEncoders uint32

	EncoderID       uint32
	ConnectorID     uint32
	ConnectorType   uint32
	ConnectorTypeID uint32

	Connection uint32
	MMWidth    uint32
	MMHeight   uint32
	Subpixel   uint32
	Pad        uint32
}

// struct drm_mode_get_property
type modeGetProperty struct {
	ValuesPtr      uint64
	EnumBlobPtr    uint64
	PropID         uint32
	Flags          uint32
	Name           [32]byte
	CountValues    uint32
	CountEnumBlobs uint32
}

// struct drm_mode_obj_get_properties
type modeObjGetProperties struct {
	PropsPtr      uint64
	PropValuesPtr uint64
	CountProps    uint32
	ObjID         uint32
	ObjType       uint32
}

// struct drm_mode_atomic
type modeAtomic struct {
	Flags         uint32
	CountObjs     uint32
	ObjsPtr       uint64
	CountPropsPtr uint64
	PropsPtr      uint64
	PropValuesPtr uint64
	Reserved      uint64
	UserData      uint64
}

func ioctl(fd int, req uint, arg unsafe.Pointer) error {
	for {
		_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(req), uintptr(arg))
		if errno == 0 {
			return nil
		}
		// DRM ioctls may be interrupted by signal delivery.
		if errno == unix.EINTR || errno == unix.EAGAIN {
			continue
		}
		return errno
	}
}
