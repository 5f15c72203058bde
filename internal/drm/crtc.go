package drm

import (
	"bytes"
	"fmt"
	"unsafe"
)

// activePropName is the CRTC property toggled by the atomic commit.
const activePropName = "ACTIVE"

// FindActivePipeline returns the CRTC driving the first connector found
// in connected state, resolving through the connector's current encoder
// if bound, else through the first listed encoder with a CRTC.
func (d *Device) FindActivePipeline() (uint32, error) {
	connectors, err := d.connectorIDs()
	if err != nil {
		return 0, err
	}

	for _, connID := range connectors {
		conn, encoders, err := d.getConnector(connID)
		if err != nil {
			return 0, fmt.Errorf("get connector %d: %w", connID, err)
		}
		if conn.Connection != connectorStatusConnected {
			continue
		}

		if conn.EncoderID != 0 {
			enc, err := d.getEncoder(conn.EncoderID)
			if err != nil {
				return 0, fmt.Errorf("get encoder %d: %w", conn.EncoderID, err)
			}
			if enc.CRTCID != 0 {
				return enc.CRTCID, nil
			}
		}

		// No current encoder; fall back to the first possible one
		// that is bound to a CRTC.
		for _, encID := range encoders {
			enc, err := d.getEncoder(encID)
			if err != nil {
				return 0, fmt.Errorf("get encoder %d: %w", encID, err)
			}
			if enc.CRTCID != 0 {
				return enc.CRTCID, nil
			}
		}
	}

	return 0, ErrNoDisplay
}

// SetPipelineActive asserts or deasserts the pipeline's ACTIVE property
// with a single atomic commit. Atomicity guarantees other processes
// sharing the device never observe a half-applied transition.
func (d *Device) SetPipelineActive(crtc uint32, active bool) error {
	propID, err := d.findCRTCProperty(crtc, activePropName)
	if err != nil {
		return err
	}

	var value uint64
	if active {
		value = 1
	}

	objs := []uint32{crtc}
	counts := []uint32{1}
	props := []uint32{propID}
	values := []uint64{value}

	req := modeAtomic{
		// Toggling ACTIVE implies a full modeset; the kernel rejects
		// the commit without this flag.
		Flags:         drmModeAtomicAllowModeset,
		CountObjs:     1,
		ObjsPtr:       uint64(uintptr(unsafe.Pointer(&objs[0]))),
		CountPropsPtr: uint64(uintptr(unsafe.Pointer(&counts[0]))),
		PropsPtr:      uint64(uintptr(unsafe.Pointer(&props[0]))),
		PropValuesPtr: uint64(uintptr(unsafe.Pointer(&values[0]))),
	}
	if err := ioctl(d.fd, drmIoctlModeAtomic, unsafe.Pointer(&req)); err != nil {
		return fmt.Errorf("atomic commit on CRTC %d: %w", crtc, err)
	}
	return nil
}

// connectorIDs fetches the device's connector list with the usual
// two-call count-then-fill pattern.
func (d *Device) connectorIDs() ([]uint32, error) {
	var res modeCardRes
	if err := ioctl(d.fd, drmIoctlModeGetResources, unsafe.Pointer(&res)); err != nil {
		return nil, fmt.Errorf("get resources: %w", err)
	}
	if res.CountConnectors == 0 {
		return nil, nil
	}

	ids := make([]uint32, res.CountConnectors)
	res = modeCardRes{
		ConnectorIDPtr:  uint64(uintptr(unsafe.Pointer(&ids[0]))),
		CountConnectors: uint32(len(ids)),
	}
	if err := ioctl(d.fd, drmIoctlModeGetResources, unsafe.Pointer(&res)); err != nil {
		return nil, fmt.Errorf("get resources: %w", err)
	}
	if int(res.CountConnectors) < len(ids) {
		ids = ids[:res.CountConnectors]
	}
	return ids, nil
}

// getConnector returns the connector state and its possible encoder IDs.
func (d *Device) getConnector(id uint32) (modeGetConnector, []uint32, error) {
	conn := modeGetConnector{ConnectorID: id}
	if err := ioctl(d.fd, drmIoctlModeGetConnector, unsafe.Pointer(&conn)); err != nil {
		return conn, nil, err
	}
	if conn.CountEncoders == 0 {
		return conn, nil, nil
	}

	encoders := make([]uint32, conn.CountEncoders)
	conn = modeGetConnector{
		ConnectorID:   id,
		EncodersPtr:   uint64(uintptr(unsafe.Pointer(&encoders[0]))),
		CountEncoders: uint32(len(encoders)),
	}
	if err := ioctl(d.fd, drmIoctlModeGetConnector, unsafe.Pointer(&conn)); err != nil {
		return conn, nil, err
	}
	if int(conn.CountEncoders) < len(encoders) {
		encoders = encoders[:conn.CountEncoders]
	}
	return conn, encoders, nil
}

func (d *Device) getEncoder(id uint32) (modeGetEncoder, error) {
	enc := modeGetEncoder{EncoderID: id}
	err := ioctl(d.fd, drmIoctlModeGetEncoder, unsafe.Pointer(&enc))
	return enc, err
}

// findCRTCProperty resolves a named property on a CRTC to its ID.
func (d *Device) findCRTCProperty(crtc uint32, name string) (uint32, error) {
	var query modeObjGetProperties
	query.ObjID = crtc
	query.ObjType = drmModeObjectCRTC
	if err := ioctl(d.fd, drmIoctlModeObjGetProperties, unsafe.Pointer(&query)); err != nil {
		return 0, fmt.Errorf("get CRTC %d properties: %w", crtc, err)
	}
	if query.CountProps == 0 {
		return 0, fmt.Errorf("CRTC %d has no properties", crtc)
	}

	propIDs := make([]uint32, query.CountProps)
	propValues := make([]uint64, query.CountProps)
	query = modeObjGetProperties{
		PropsPtr:      uint64(uintptr(unsafe.Pointer(&propIDs[0]))),
		PropValuesPtr: uint64(uintptr(unsafe.Pointer(&propValues[0]))),
		CountProps:    uint32(len(propIDs)),
		ObjID:         crtc,
		ObjType:       drmModeObjectCRTC,
	}
	if err := ioctl(d.fd, drmIoctlModeObjGetProperties, unsafe.Pointer(&query)); err != nil {
		return 0, fmt.Errorf("get CRTC %d properties: %w", crtc, err)
	}
	if int(query.CountProps) < len(propIDs) {
		propIDs = propIDs[:query.CountProps]
	}

	for _, id := range propIDs {
		info := modeGetProperty{PropID: id}
		if err := ioctl(d.fd, drmIoctlModeGetProperty, unsafe.Pointer(&info)); err != nil {
			return 0, fmt.Errorf("get property %d: %w", id, err)
		}
		n := info.Name[:]
		if i := bytes.IndexByte(n, 0); i >= 0 {
			n = n[:i]
		}
		if string(n) == name {
			return id, nil
		}
	}

	return 0, fmt.Errorf("property %q not found on CRTC %d", name, crtc)
}
