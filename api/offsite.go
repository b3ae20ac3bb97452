package api

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mnehpets/onerpc/dispatch"
)

var (
	deviceIDPattern   = regexp.MustCompile(`^id\{(\d+)\}$`)
	macAddressPattern = regexp.MustCompile(`(?i)^mac\{([a-f0-9]+)\}$`)
)

// DeviceIdentifier addresses a device either by numeric id, written
// "id{42}", or by MAC address, written "mac{0a1b2c3d4e5f}". The field that
// was not given is "dummy".
type DeviceIdentifier struct {
	DeviceID   string
	MACAddress string
}

// NewDeviceIdentifier is the value type constructor for DeviceIdentifier.
func NewDeviceIdentifier(raw any) (any, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("expected string, got %T", raw)
	}
	return ParseDeviceIdentifier(s)
}

// ParseDeviceIdentifier parses the "id{N}" and "mac{HEX}" forms. MAC
// addresses are lowercased.
func ParseDeviceIdentifier(s string) (*DeviceIdentifier, error) {
	if m := deviceIDPattern.FindStringSubmatch(s); m != nil {
		id, err := strconv.ParseUint(m[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("device id out of range: %s", m[1])
		}
		return &DeviceIdentifier{DeviceID: strconv.FormatUint(id, 10), MACAddress: "dummy"}, nil
	}
	if m := macAddressPattern.FindStringSubmatch(s); m != nil {
		return &DeviceIdentifier{DeviceID: "dummy", MACAddress: strings.ToLower(m[1])}, nil
	}
	return nil, fmt.Errorf("malformed device identifier %q", s)
}

func (d *DeviceIdentifier) String() string {
	return "deviceID=" + d.DeviceID + ", mac=" + d.MACAddress
}

type offsiteGroup struct{}

func newOffsite() (dispatch.Group, error) {
	return offsiteGroup{}, nil
}

func (offsiteGroup) Methods() map[string]dispatch.Method {
	return map[string]dispatch.Method{
		"getTargetType": {
			Params: []dispatch.Param{dispatch.Required("identifier").As(TypeDeviceIdentifier)},
			Func: func(_ context.Context, args []any) (any, error) {
				return args[0].(*DeviceIdentifier).String(), nil
			},
		},
	}
}
