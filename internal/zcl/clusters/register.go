// Package clusters holds the built-in ZCL cluster definitions the setup tool
// works with, including the vendor extensions on Window Covering and the
// vendor Device Setup cluster.
package clusters

import "zigbee-go-setup/internal/zcl"

// RegisterAll loads every built-in cluster definition into a registry.
// Catalog profiles may overlay additional attributes afterwards.
func RegisterAll(r *zcl.Registry) {
	for _, c := range []zcl.ClusterDef{
		Basic,
		Identify,
		Groups,
		Scenes,
		OnOff,
		LevelControl,
		MultistateInput,
		WindowCovering,
		DeviceSetup,
	} {
		r.Register(c)
	}
}
