// Package api holds the sample handler groups served by onerpc.
//
// Register installs them into a dispatch.Registry under a namespace, so that
// with the default mapper settings "math/subtract" resolves to the
// "subtract" entry point of group "API.Math".
package api

import (
	"strings"

	"github.com/mnehpets/onerpc/dispatch"
)

// TypeDeviceIdentifier names the DeviceIdentifier value type.
const TypeDeviceIdentifier = "DeviceIdentifier"

// Groups lists the group identifiers Register installs, relative to the
// namespace.
var Groups = []string{"Math", "Offsite", "Share.Nas"}

// Register adds the sample groups and value types to reg. Leading and
// trailing dots of namespace are ignored; an empty namespace registers the
// groups without a prefix.
func Register(reg *dispatch.Registry, namespace string) error {
	factories := map[string]dispatch.Factory{
		"Math":      newMath,
		"Offsite":   newOffsite,
		"Share.Nas": newNas,
	}
	for _, name := range Groups {
		if err := reg.Register(qualify(namespace, name), factories[name]); err != nil {
			return err
		}
	}
	return reg.RegisterType(TypeDeviceIdentifier, NewDeviceIdentifier)
}

func qualify(namespace, name string) string {
	namespace = strings.Trim(namespace, ".")
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}
