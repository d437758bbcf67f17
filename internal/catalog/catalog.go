// Package catalog describes every layer the viewer knows about: where its
// assets live, how its toggle is labelled and which material parameters it
// starts with. The built-in catalog can be partially overridden from YAML.
package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"starviewcore/pkg/viewapi"
)

// Kind selects how the engine builds and styles a layer.
type Kind string

const (
	KindStarCloud     Kind = "star_cloud"
	KindColonyCloud   Kind = "colony_cloud"
	KindGalacticPlane Kind = "galactic_plane"
	KindHelium        Kind = "helium"
	KindGuardianGroup Kind = "guardian_group"
	KindGuardianSite  Kind = "guardian_site"
	KindStellarClass  Kind = "stellar_class"
	KindDensityScan   Kind = "density_scan"
	KindIsoStack      Kind = "iso_stack"
	KindColonies      Kind = "colonies"
)

// Layer is the static definition of one togglable layer.
type Layer struct {
	ID        viewapi.LayerID `yaml:"id"`
	Kind      Kind            `yaml:"kind"`
	Name      string          `yaml:"name"`
	ShowLabel string          `yaml:"show_label"`
	HideLabel string          `yaml:"hide_label"`
	URL       string          `yaml:"url,omitempty"`
	// URLs lists the iso stack levels, coarsest first.
	URLs    []string `yaml:"urls,omitempty"`
	MetaURL string   `yaml:"meta_url,omitempty"`
	Opacity float64  `yaml:"opacity"`
	// ColorTemperature is set only for layers colored by stellar class.
	ColorTemperature  *float64        `yaml:"color_temperature,omitempty"`
	EmissiveIntensity float64         `yaml:"emissive_intensity,omitempty"`
	Group             viewapi.LayerID `yaml:"group,omitempty"`
}

// Label returns the toggle text for the given visibility.
func (l Layer) Label(visible bool) string {
	if visible {
		return l.HideLabel
	}
	return l.ShowLabel
}

// LoadingHint is shown on the disabled control while a load is in flight.
func (l Layer) LoadingHint() string { return "Loading " + l.Name + "..." }

// Bubble is one allegiance bubble asset loaded at bootstrap.
type Bubble struct {
	Allegiance string `yaml:"allegiance"`
	URL        string `yaml:"url"`
	// Skip marks an asset that is counted towards readiness but never shown.
	Skip bool `yaml:"skip,omitempty"`
}

// Catalog is the complete layer table plus the engine-wide defaults.
type Catalog struct {
	Layers  []Layer  `yaml:"layers"`
	Bubbles []Bubble `yaml:"bubbles"`

	StarCloudOpacity float64 `yaml:"star_cloud_opacity"`
	ColoniesOpacity  float64 `yaml:"colonies_opacity"`
	GalacticPlaneY   float64 `yaml:"galactic_plane_y"`
	HeliumIntensity  float64 `yaml:"helium_intensity"`
	GalacticTexture  string  `yaml:"galactic_texture"`
}

// FailedHint is shown on a control whose load failed.
const FailedHint = "Load failed - check console"

// IsoThresholds are the density thresholds of the iso stack, coarsest first.
var IsoThresholds = []string{"0.1", "0.01", "0.001", "0.0001", "1e-05", "1e-06", "1e-07"}

func temp(v float64) *float64 { return &v }

func toggle(id viewapi.LayerID, kind Kind, name, url string, opacity float64) Layer {
	return Layer{ID: id, Kind: kind, Name: name, ShowLabel: "Show " + name, HideLabel: "Hide " + name, URL: url, Opacity: opacity}
}

// Default returns the built-in catalog.
func Default() Catalog {
	iso := make([]string, len(IsoThresholds))
	for i, th := range IsoThresholds {
		iso[i] = "./KDEglb/iso_" + th + "_draco.glb"
	}

	colony := toggle(viewapi.ColonyCloud, KindColonyCloud, "Colony Targets", "./colonytargetCloud.glb", 1)
	colony.MetaURL = "./colonytargetCloud_meta.json"

	isoStack := toggle(viewapi.IsoStack, KindIsoStack, "IsoLevels", "", 1)
	isoStack.URLs = iso

	colonies := Layer{
		ID: viewapi.ColonizedSystems, Kind: KindColonies, Name: "Colonized Systems",
		ShowLabel: "Show Colonized Systems", HideLabel: "Hide Colonies", Opacity: 0.15,
	}

	stellar := func(id viewapi.LayerID, name, url string, t, emissive float64) Layer {
		l := toggle(id, KindStellarClass, name, url, 0.5)
		l.ColorTemperature = temp(t)
		l.EmissiveIntensity = emissive
		return l
	}
	site := func(id viewapi.LayerID, name, url string) Layer {
		l := toggle(id, KindGuardianSite, name, url, 0.5)
		l.Group = viewapi.GuardianSites
		return l
	}

	layers := []Layer{
		toggle(viewapi.StarCloud, KindStarCloud, "Star Cloud", "./star_cloud.glb", 1),
		colony,
		toggle(viewapi.GalacticPlane, KindGalacticPlane, "Galactic Map", "", 0.3),
		toggle(viewapi.Helium, KindHelium, "Helium Levels", "./galaxyscience/helium_levels.glb", 0.5),
		toggle(viewapi.GuardianSites, KindGuardianGroup, "Guardian Sites", "", 0.5),
		site(viewapi.GuardianBeacons, "Beacons", "./GuardianGLB/guardian_beacons.glb"),
		site(viewapi.GuardianRuins, "Ruins", "./GuardianGLB/guardian_ruins.glb"),
		site(viewapi.GuardianStructures, "Structures", "./GuardianGLB/guardian_structures.glb"),
		site(viewapi.GuardianConnections, "Connections", "./GuardianGLB/guardian_connection_lines.glb"),
		stellar(viewapi.HMass, "H Mass", "./Star_Type_Glb/mass_code_7.gltf", 0.9, 0.5),
		stellar(viewapi.GMass, "G Mass", "./Star_Type_Glb/mass_code_6.gltf", 0.7, 0.5),
		stellar(viewapi.FMass, "F Mass", "./Star_Type_Glb/mass_code_6.gltf", 0.75, 0.5),
		stellar(viewapi.EMass, "E Mass", "./Star_Type_Glb/mass_code_6.gltf", 0.8, 0.5),
		stellar(viewapi.WolfRayet, "Wolf Rayet", "./Star_Type_Glb/Wolf-Rayet-stars_pointcloud.glb", 1.0, 0.8),
		toggle(viewapi.DensityScan, KindDensityScan, "Density Scans", "./DW3/scans.glb", 1),
		isoStack,
		colonies,
	}

	var bubbles []Bubble
	for _, a := range []string{"Empire", "Federation", "Alliance", "Independent", "IGAU", "Mikunn", "Guardian", "Thargoid"} {
		bubbles = append(bubbles, Bubble{Allegiance: a, URL: "./glbdata/vis_bubble" + a + ".gltf", Skip: a == "Guardian"})
	}

	return Catalog{
		Layers:           layers,
		Bubbles:          bubbles,
		StarCloudOpacity: 0.4,
		ColoniesOpacity:  0.15,
		GalacticPlaneY:   -5000,
		HeliumIntensity:  1,
		GalacticTexture:  "./galaxyscience/gamegalaxy-4500px.png",
	}
}

// Layer looks up a layer definition by id.
func (c Catalog) Layer(id viewapi.LayerID) (Layer, bool) {
	for _, l := range c.Layers {
		if l.ID == id {
			return l, true
		}
	}
	return Layer{}, false
}

// Members returns the layers grouped under id, in catalog order.
func (c Catalog) Members(id viewapi.LayerID) []Layer {
	var out []Layer
	for _, l := range c.Layers {
		if l.Group == id {
			out = append(out, l)
		}
	}
	return out
}

// Validate reports structural problems: duplicate ids, unknown kinds,
// missing asset urls and out-of-range defaults.
func (c Catalog) Validate() error {
	var errs []error
	seen := make(map[viewapi.LayerID]bool, len(c.Layers))
	for _, l := range c.Layers {
		if l.ID == "" {
			errs = append(errs, errors.New("layer with empty id"))
			continue
		}
		if seen[l.ID] {
			errs = append(errs, fmt.Errorf("duplicate layer %s", l.ID))
		}
		seen[l.ID] = true
		switch l.Kind {
		case KindStarCloud, KindHelium, KindGuardianSite, KindStellarClass, KindDensityScan:
			if l.URL == "" {
				errs = append(errs, fmt.Errorf("layer %s: url required", l.ID))
			}
		case KindColonyCloud:
			if l.URL == "" || l.MetaURL == "" {
				errs = append(errs, fmt.Errorf("layer %s: url and meta_url required", l.ID))
			}
		case KindIsoStack:
			if len(l.URLs) < 2 {
				errs = append(errs, fmt.Errorf("layer %s: at least two iso levels required", l.ID))
			}
		case KindGalacticPlane, KindGuardianGroup, KindColonies:
		default:
			errs = append(errs, fmt.Errorf("layer %s: unknown kind %q", l.ID, l.Kind))
		}
		if l.Opacity < 0 || l.Opacity > 1 {
			errs = append(errs, fmt.Errorf("layer %s: opacity %v outside [0,1]", l.ID, l.Opacity))
		}
		if l.ColorTemperature != nil && (*l.ColorTemperature < 0 || *l.ColorTemperature > 1) {
			errs = append(errs, fmt.Errorf("layer %s: color temperature %v outside [0,1]", l.ID, *l.ColorTemperature))
		}
	}
	for _, l := range c.Layers {
		if l.Group != "" && !seen[l.Group] {
			errs = append(errs, fmt.Errorf("layer %s: unknown group %s", l.ID, l.Group))
		}
	}
	if c.HeliumIntensity < 1 || c.HeliumIntensity > 2 {
		errs = append(errs, fmt.Errorf("helium intensity %v outside [1,2]", c.HeliumIntensity))
	}
	return errors.Join(errs...)
}

// layerPatch carries the overridable fields of one layer. Absent fields keep
// the built-in value.
type layerPatch struct {
	ID                viewapi.LayerID `yaml:"id"`
	Name              *string         `yaml:"name"`
	ShowLabel         *string         `yaml:"show_label"`
	HideLabel         *string         `yaml:"hide_label"`
	URL               *string         `yaml:"url"`
	URLs              []string        `yaml:"urls"`
	MetaURL           *string         `yaml:"meta_url"`
	Opacity           *float64        `yaml:"opacity"`
	ColorTemperature  *float64        `yaml:"color_temperature"`
	EmissiveIntensity *float64        `yaml:"emissive_intensity"`
}

type overrideDoc struct {
	Layers           []layerPatch `yaml:"layers"`
	Bubbles          []Bubble     `yaml:"bubbles"`
	StarCloudOpacity *float64     `yaml:"star_cloud_opacity"`
	ColoniesOpacity  *float64     `yaml:"colonies_opacity"`
	GalacticPlaneY   *float64     `yaml:"galactic_plane_y"`
	HeliumIntensity  *float64     `yaml:"helium_intensity"`
	GalacticTexture  *string      `yaml:"galactic_texture"`
}

// Apply merges a YAML override document onto c. Layers are matched by id;
// an unknown id or field is an error. A non-empty bubbles list replaces the
// built-in one.
func (c Catalog) Apply(data []byte) (Catalog, error) {
	var doc overrideDoc
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return Catalog{}, fmt.Errorf("decode catalog override: %w", err)
	}
	out := c.clone()
	for _, p := range doc.Layers {
		idx := -1
		for i := range out.Layers {
			if out.Layers[i].ID == p.ID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return Catalog{}, fmt.Errorf("catalog override: unknown layer %q", p.ID)
		}
		l := &out.Layers[idx]
		setString(&l.Name, p.Name)
		setString(&l.ShowLabel, p.ShowLabel)
		setString(&l.HideLabel, p.HideLabel)
		setString(&l.URL, p.URL)
		setString(&l.MetaURL, p.MetaURL)
		if len(p.URLs) > 0 {
			l.URLs = append([]string(nil), p.URLs...)
		}
		setFloat(&l.Opacity, p.Opacity)
		setFloat(&l.EmissiveIntensity, p.EmissiveIntensity)
		if p.ColorTemperature != nil {
			l.ColorTemperature = temp(*p.ColorTemperature)
		}
	}
	if len(doc.Bubbles) > 0 {
		out.Bubbles = append([]Bubble(nil), doc.Bubbles...)
	}
	setFloat(&out.StarCloudOpacity, doc.StarCloudOpacity)
	setFloat(&out.ColoniesOpacity, doc.ColoniesOpacity)
	setFloat(&out.GalacticPlaneY, doc.GalacticPlaneY)
	setFloat(&out.HeliumIntensity, doc.HeliumIntensity)
	setString(&out.GalacticTexture, doc.GalacticTexture)
	if err := out.Validate(); err != nil {
		return Catalog{}, fmt.Errorf("catalog override: %w", err)
	}
	return out, nil
}

// Load returns the built-in catalog with the override file at path applied.
// An empty path yields the built-in catalog.
func Load(path string) (Catalog, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path) // #nosec G304 -- operator supplied path
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return c.Apply(data)
}

func (c Catalog) clone() Catalog {
	out := c
	out.Layers = make([]Layer, len(c.Layers))
	for i, l := range c.Layers {
		if l.URLs != nil {
			l.URLs = append([]string(nil), l.URLs...)
		}
		if l.ColorTemperature != nil {
			l.ColorTemperature = temp(*l.ColorTemperature)
		}
		out.Layers[i] = l
	}
	out.Bubbles = append([]Bubble(nil), c.Bubbles...)
	return out
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
