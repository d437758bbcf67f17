// Package viewapi is the contract between the viewer engine and whatever GUI
// drives it. A GUI issues toggles and parameter changes against the engine and
// mirrors the LayerView values it receives back through an Observer.
package viewapi

// LayerID names a togglable layer.
type LayerID string

const (
	StarCloud     LayerID = "star_cloud"
	ColonyCloud   LayerID = "colony_cloud"
	GalacticPlane LayerID = "galactic_plane"
	Helium        LayerID = "helium"

	GuardianSites       LayerID = "guardian_sites"
	GuardianBeacons     LayerID = "guardian_beacons"
	GuardianRuins       LayerID = "guardian_ruins"
	GuardianStructures  LayerID = "guardian_structures"
	GuardianConnections LayerID = "guardian_connections"

	HMass     LayerID = "h_mass"
	GMass     LayerID = "g_mass"
	FMass     LayerID = "f_mass"
	EMass     LayerID = "e_mass"
	WolfRayet LayerID = "wolf_rayet"

	DensityScan      LayerID = "density_scan"
	IsoStack         LayerID = "iso_stack"
	ColonizedSystems LayerID = "colonized_systems"

	// ClipSlab is not a layer but reports through the same observer so the
	// GUI can relabel the clipping toggle and show its sliders.
	ClipSlab LayerID = "clip_slab"
)

// LoadState is the lifecycle stage of a layer's asset.
type LoadState int

const (
	Unloaded LoadState = iota
	Loading
	Loaded
	Failed
)

func (s LoadState) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name in JSON output.
func (s LoadState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// LayerView is everything a GUI needs to render one layer's controls.
type LayerView struct {
	ID    LayerID   `json:"id"`
	Label string    `json:"label"`
	State LoadState `json:"state"`
	// Visible is only meaningful once State is Loaded.
	Visible bool `json:"visible"`
	Loading bool `json:"loading"`
	// ControlEnabled is false while a load is in flight.
	ControlEnabled bool `json:"control_enabled"`
	// ControlsVisible reports whether the dependent sliders should be shown.
	ControlsVisible     bool    `json:"controls_visible"`
	Hint                string  `json:"hint,omitempty"`
	Opacity             float64 `json:"opacity"`
	ColorTemperature    float64 `json:"color_temperature,omitempty"`
	HasColorTemperature bool    `json:"has_color_temperature,omitempty"`
}

// Observer receives a LayerView after every state transition. Calls happen on
// the goroutine driving the engine.
type Observer interface {
	LayerStateChanged(id LayerID, view LayerView)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(id LayerID, view LayerView)

// LayerStateChanged implements Observer.
func (f ObserverFunc) LayerStateChanged(id LayerID, view LayerView) { f(id, view) }

// Range is a closed numeric interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Mid returns the midpoint.
func (r Range) Mid() float64 { return (r.Min + r.Max) / 2 }

// ClipView describes the clipping slab for slider binding.
type ClipView struct {
	Enabled        bool    `json:"enabled"`
	Axis           string  `json:"axis"`
	Center         float64 `json:"center"`
	CenterRange    Range   `json:"center_range"`
	ThicknessIndex int     `json:"thickness_index"`
	Thickness      float64 `json:"thickness"`
	Label          string  `json:"label"`
	ThicknessLabel string  `json:"thickness_label"`
}

// ColonyMeta is one metadata record, co-indexed with the colony point buffer.
type ColonyMeta struct {
	SystemID string `json:"system_id"`
}

// ColonyHit is a colony point resolved to its metadata.
type ColonyHit struct {
	Index    int     `json:"index"`
	SystemID string  `json:"system_id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Z        float64 `json:"z"`
}
