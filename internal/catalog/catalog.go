// Package catalog knows the supported device models: which endpoint their
// configurable inputs start binding to, where the device-management endpoint
// sits, and which vendor clusters they carry. Extra profiles can be loaded
// from a JSON directory next to the daemon config.
package catalog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"zigbee-go-setup/internal/actions"
	"zigbee-go-setup/internal/zcl"
	"zigbee-go-setup/internal/zcl/clusters"
)

// Profile describes one device model.
type Profile struct {
	Manufacturer      string `json:"manufacturer"`
	Model             string `json:"model"`
	ManufacturerCode  uint16 `json:"manufacturerCode"`
	StartingEndpoint  uint8  `json:"startingEndpoint"`
	CoverEndpointBase uint8  `json:"coverEndpointBase,omitempty"`
	SetupEndpoint     uint8  `json:"setupEndpoint"`
	Inputs            int    `json:"inputs"`
}

// Catalog is the model registry. Built-in profiles are present from New;
// LoadDir overlays more.
type Catalog struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
	logger   *slog.Logger
}

// Built-in models: the setup cluster always lives on endpoint 232.
var builtinProfiles = []Profile{
	{Model: "S1", Inputs: 1},
	{Model: "S1-R", Inputs: 2},
	{Model: "S2", Inputs: 2},
	{Model: "S2-R", Inputs: 2},
	{Model: "D1", Inputs: 2},
	{Model: "D1-R", Inputs: 2},
	{Model: "J1", Inputs: 2},
	{Model: "J1-R", Inputs: 2},
	{Model: "C4", Inputs: 4},
}

// New creates a catalog holding the built-in profiles.
func New(logger *slog.Logger) *Catalog {
	c := &Catalog{profiles: make(map[string]*Profile), logger: logger}
	for _, p := range builtinProfiles {
		profile := p
		profile.Manufacturer = "ubisys"
		profile.ManufacturerCode = clusters.VendorCode
		profile.SetupEndpoint = 232
		// The compiler's per-model table is authoritative for endpoints.
		rules, err := actions.RulesForModel(profile.Model)
		if err == nil {
			profile.StartingEndpoint = rules.StartingEndpoint
			profile.CoverEndpointBase = rules.CoverEndpointBase
		}
		c.profiles[profile.Model] = &profile
	}
	return c
}

// Get returns the profile for a model, or nil. The model string may carry a
// firmware suffix in parentheses.
func (c *Catalog) Get(model string) *Profile {
	name := model
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = name[:i]
	}
	name = strings.TrimSpace(name)
	c.mu.RLock()
	defer c.mu.RUnlock()
	if p, ok := c.profiles[name]; ok {
		clone := *p
		return &clone
	}
	return nil
}

// Models returns the known model names, sorted.
func (c *Catalog) Models() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.profiles))
	for name := range c.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// profileFile is the on-disk shape: a profile plus optional cluster overlays
// merged into the ZCL registry.
type profileFile struct {
	Profile
	Clusters []clusterFile `json:"clusters,omitempty"`
}

type clusterFile struct {
	ID         uint16     `json:"id"`
	Name       string     `json:"name"`
	Attributes []attrFile `json:"attributes,omitempty"`
}

type attrFile struct {
	ID               uint16 `json:"id"`
	Name             string `json:"name"`
	Type             string `json:"type"`
	Access           string `json:"access"`
	ManufacturerCode uint16 `json:"manufacturerCode,omitempty"`
}

// LoadDir reads every *.json profile in dir, adds the profiles to the catalog
// and merges their cluster overlays into the registry. A missing directory is
// not an error.
func (c *Catalog) LoadDir(dir string, registry *zcl.Registry) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("catalog: read dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("catalog: read %s: %w", path, err)
		}
		var pf profileFile
		if err := json.Unmarshal(data, &pf); err != nil {
			return fmt.Errorf("catalog: parse %s: %w", path, err)
		}
		if pf.Model == "" {
			return fmt.Errorf("catalog: %s: missing model", path)
		}
		if pf.SetupEndpoint == 0 {
			pf.SetupEndpoint = 232
		}

		for _, cf := range pf.Clusters {
			def, err := cf.toClusterDef()
			if err != nil {
				return fmt.Errorf("catalog: %s: %w", path, err)
			}
			registry.Register(def)
		}

		profile := pf.Profile
		c.mu.Lock()
		c.profiles[profile.Model] = &profile
		c.mu.Unlock()
		c.logger.Info("device profile loaded", "model", profile.Model, "file", entry.Name())
	}
	return nil
}

func (cf *clusterFile) toClusterDef() (zcl.ClusterDef, error) {
	def := zcl.ClusterDef{ID: cf.ID, Name: cf.Name}
	for _, af := range cf.Attributes {
		typeID, ok := typeByName[af.Type]
		if !ok {
			return def, fmt.Errorf("cluster 0x%04X: attribute %q: unknown type %q", cf.ID, af.Name, af.Type)
		}
		access, err := parseAccess(af.Access)
		if err != nil {
			return def, fmt.Errorf("cluster 0x%04X: attribute %q: %w", cf.ID, af.Name, err)
		}
		def.Attributes = append(def.Attributes, zcl.AttributeDef{
			ID:               af.ID,
			Name:             af.Name,
			Type:             typeID,
			Access:           access,
			ManufacturerCode: af.ManufacturerCode,
		})
	}
	return def, nil
}

// typeByName mirrors zcl.TypeName.
var typeByName = map[string]uint8{
	"data8":  zcl.TypeData8,
	"bool":   zcl.TypeBool,
	"map8":   zcl.TypeBitmap8,
	"map16":  zcl.TypeBitmap16,
	"map32":  zcl.TypeBitmap32,
	"uint8":  zcl.TypeUint8,
	"uint16": zcl.TypeUint16,
	"uint32": zcl.TypeUint32,
	"int8":   zcl.TypeInt8,
	"int16":  zcl.TypeInt16,
	"int32":  zcl.TypeInt32,
	"enum8":  zcl.TypeEnum8,
	"enum16": zcl.TypeEnum16,
	"octstr": zcl.TypeOctetStr,
	"string": zcl.TypeCharStr,
	"array":  zcl.TypeArray,
}

func parseAccess(s string) (uint8, error) {
	var access uint8
	for _, r := range s {
		switch r {
		case 'r':
			access |= zcl.AccessRead
		case 'w':
			access |= zcl.AccessWrite
		case 'p':
			access |= zcl.AccessReport
		default:
			return 0, fmt.Errorf("unknown access flag %q", string(r))
		}
	}
	return access, nil
}
