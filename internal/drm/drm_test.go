package drm

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

// TestIoctlNumbers pins the computed request numbers to the values the
// kernel uapi headers produce. A struct layout drift would silently
// change the size field and make every call fail with EINVAL.
func TestIoctlNumbers(t *testing.T) {
	assert.Equal(t, uint(0x641e), uint(drmIoctlSetMaster))
	assert.Equal(t, uint(0x641f), uint(drmIoctlDropMaster))
	assert.Equal(t, uint(0x4010640d), uint(drmIoctlSetClientCap))
	assert.Equal(t, uint(0xc04064a0), uint(drmIoctlModeGetResources))
	assert.Equal(t, uint(0xc01464a6), uint(drmIoctlModeGetEncoder))
	assert.Equal(t, uint(0xc05064a7), uint(drmIoctlModeGetConnector))
	assert.Equal(t, uint(0xc04064aa), uint(drmIoctlModeGetProperty))
	assert.Equal(t, uint(0xc02064b9), uint(drmIoctlModeObjGetProperties))
	assert.Equal(t, uint(0xc03864bc), uint(drmIoctlModeAtomic))
}

// TestStructSizes pins each uapi struct to the kernel's sizeof
func TestStructSizes(t *testing.T) {
	assert.Equal(t, uintptr(16), unsafe.Sizeof(modeSetClientCap{}))
	assert.Equal(t, uintptr(64), unsafe.Sizeof(modeCardRes{}))
	assert.Equal(t, uintptr(20), unsafe.Sizeof(modeGetEncoder{}))
	assert.Equal(t, uintptr(80), unsafe.Sizeof(modeGetConnector{}))
	assert.Equal(t, uintptr(64), unsafe.Sizeof(modeGetProperty{}))
	assert.Equal(t, uintptr(32), unsafe.Sizeof(modeObjGetProperties{}))
	assert.Equal(t, uintptr(56), unsafe.Sizeof(modeAtomic{}))
}

// TestDiscoverCards_Sorted verifies discovery never errors and yields a
// deterministic order, whether or not the host has DRM hardware
func TestDiscoverCards_Sorted(t *testing.T) {
	cards := DiscoverCards()

	for i := 1; i < len(cards); i++ {
		assert.Less(t, cards[i-1], cards[i])
	}
	for _, c := range cards {
		assert.Contains(t, c, "/dev/dri/card")
	}
}
