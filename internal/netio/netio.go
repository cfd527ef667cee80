// Package netio loads equipment libraries and network topologies from
// JSON files.
//
// Input files are validated against embedded CUE schemas before
// decoding, then cross-checked semantically (dangling connections,
// unknown type varieties). All failures surface as *LoadError so the
// harness can attribute a bad reference to a single job without
// aborting a batch.
package netio

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"

	_ "embed"
)

//go:embed schema.cue
var schemaCUE string

// Element type names accepted in topology files.
const (
	TypeTransceiver = "Transceiver"
	TypeFiber       = "Fiber"
	TypeEdfa        = "Edfa"
)

// SpectralInfo describes the reference channel grid and launch power.
type SpectralInfo struct {
	FMin      float64 `json:"f_min"`
	FMax      float64 `json:"f_max"`
	BaudRate  float64 `json:"baud_rate"`
	Spacing   float64 `json:"spacing"`
	PowerDBm  float64 `json:"power_dbm"`
	RollOff   float64 `json:"roll_off"`
	SysMargin float64 `json:"sys_margin,omitempty"`
}

// ChannelCount returns the number of channels the grid carries.
func (si SpectralInfo) ChannelCount() int {
	if si.Spacing <= 0 || si.FMax <= si.FMin {
		return 0
	}
	return int(math.Floor((si.FMax-si.FMin)/si.Spacing)) + 1
}

// EdfaType is one amplifier model from the equipment library.
type EdfaType struct {
	GainFlatmax float64 `json:"gain_flatmax"`
	GainMin     float64 `json:"gain_min"`
	PMax        float64 `json:"p_max"`
	NF          float64 `json:"nf"`
}

// FiberType is one fiber model from the equipment library.
type FiberType struct {
	LossCoef   float64 `json:"loss_coef"`
	Dispersion float64 `json:"dispersion,omitempty"`
}

// Equipment is a loaded equipment library.
type Equipment struct {
	SI    SpectralInfo         `json:"SI"`
	Edfa  map[string]EdfaType  `json:"Edfa"`
	Fiber map[string]FiberType `json:"Fiber"`
}

// FiberParams are per-span settings for a fiber element.
type FiberParams struct {
	LengthKm float64 `json:"length_km"`
}

// EdfaOperational are per-site settings for an amplifier element.
type EdfaOperational struct {
	GainTarget float64 `json:"gain_target"`
}

// Element is one node of the topology graph.
type Element struct {
	UID         string           `json:"uid"`
	Type        string           `json:"type"`
	TypeVariety string           `json:"type_variety,omitempty"`
	Params      *FiberParams     `json:"params,omitempty"`
	Operational *EdfaOperational `json:"operational,omitempty"`
}

// Connection is one directed edge of the topology graph.
type Connection struct {
	FromNode string `json:"from_node"`
	ToNode   string `json:"to_node"`
}

// Network is a loaded topology: elements by UID plus directed adjacency.
type Network struct {
	Name      string
	Elements  map[string]*Element
	Adjacency map[string][]string
}

// Transceivers returns the UIDs of all transceiver elements, sorted.
func (n *Network) Transceivers() []string {
	var uids []string
	for uid, el := range n.Elements {
		if el.Type == TypeTransceiver {
			uids = append(uids, uid)
		}
	}
	sort.Strings(uids)
	return uids
}

// topologyFile is the raw JSON shape of a topology document.
type topologyFile struct {
	NetworkName string       `json:"network_name"`
	Elements    []*Element   `json:"elements"`
	Connections []Connection `json:"connections"`
}

var (
	schemaOnce sync.Once
	schemaVal  cue.Value
)

// schema compiles the embedded CUE schema once per process.
func schema() cue.Value {
	schemaOnce.Do(func() {
		schemaVal = cuecontext.New().CompileString(schemaCUE)
	})
	return schemaVal
}

// validate checks raw JSON bytes against one of the schema definitions.
func validate(path, definition string, data []byte) error {
	sch := schema()
	if err := sch.Err(); err != nil {
		return fmt.Errorf("internal schema error: %w", err)
	}

	expr, err := cuejson.Extract(path, data)
	if err != nil {
		return NewLoadError(LoadParse, path, err.Error())
	}

	def := sch.LookupPath(cue.ParsePath(definition))
	unified := def.Context().BuildExpr(expr).Unify(def)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return NewLoadError(LoadSchema, path, cueerrors.Details(err, nil))
	}
	return nil
}

// LoadEquipment reads and validates an equipment library.
func LoadEquipment(path string) (*Equipment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewLoadError(LoadRead, path, err.Error())
	}

	if err := validate(path, "#Equipment", data); err != nil {
		return nil, err
	}

	var eqpt Equipment
	if err := json.Unmarshal(data, &eqpt); err != nil {
		return nil, NewLoadError(LoadParse, path, err.Error())
	}

	if eqpt.SI.FMax <= eqpt.SI.FMin {
		return nil, NewLoadError(LoadSchema, path, "SI: f_max must exceed f_min")
	}
	if eqpt.SI.ChannelCount() < 1 {
		return nil, NewLoadError(LoadSchema, path, "SI: channel grid is empty")
	}
	return &eqpt, nil
}

// LoadTopology reads and validates a topology, resolving its element
// type varieties against the given equipment library.
func LoadTopology(path string, eqpt *Equipment) (*Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewLoadError(LoadRead, path, err.Error())
	}

	if err := validate(path, "#Topology", data); err != nil {
		return nil, err
	}

	var file topologyFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, NewLoadError(LoadParse, path, err.Error())
	}

	net := &Network{
		Name:      file.NetworkName,
		Elements:  make(map[string]*Element, len(file.Elements)),
		Adjacency: make(map[string][]string),
	}

	for _, el := range file.Elements {
		if _, dup := net.Elements[el.UID]; dup {
			return nil, NewLoadError(LoadSchema, path, fmt.Sprintf("duplicate element uid %q", el.UID))
		}
		switch el.Type {
		case TypeFiber:
			if el.Params == nil {
				return nil, NewLoadError(LoadSchema, path, fmt.Sprintf("fiber %q: params.length_km is required", el.UID))
			}
			if _, ok := eqpt.Fiber[el.TypeVariety]; !ok {
				return nil, NewLoadError(LoadSchema, path, fmt.Sprintf("fiber %q: unknown type_variety %q", el.UID, el.TypeVariety))
			}
		case TypeEdfa:
			if _, ok := eqpt.Edfa[el.TypeVariety]; !ok {
				return nil, NewLoadError(LoadSchema, path, fmt.Sprintf("edfa %q: unknown type_variety %q", el.UID, el.TypeVariety))
			}
		}
		net.Elements[el.UID] = el
	}

	for _, conn := range file.Connections {
		if _, ok := net.Elements[conn.FromNode]; !ok {
			return nil, NewLoadError(LoadSchema, path, fmt.Sprintf("connection references unknown element %q", conn.FromNode))
		}
		if _, ok := net.Elements[conn.ToNode]; !ok {
			return nil, NewLoadError(LoadSchema, path, fmt.Sprintf("connection references unknown element %q", conn.ToNode))
		}
		net.Adjacency[conn.FromNode] = append(net.Adjacency[conn.FromNode], conn.ToNode)
	}

	// Deterministic neighbor order regardless of file order.
	for uid := range net.Adjacency {
		sort.Strings(net.Adjacency[uid])
	}

	return net, nil
}
