package fish

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/bwmarrin/discordgo"
)

//go:embed data/species.json
var embeddedSpecies []byte

type SpeciesId int

type Species struct {
	Id             SpeciesId
	Key            string // slug, e.g. "largemouth-bass"
	Name           string
	ScientificName string
	Image          string
	AverageLength  float64 // inches
	MaxLength      float64
	Rarity         RarityTier
	Water          string
	Habitat        []string
}

type SpeciesJSON struct {
	Key            string   `json:"id"`
	Name           string   `json:"name"`
	ScientificName string   `json:"scientificName"`
	Image          string   `json:"image"`
	AverageLength  float64  `json:"averageLength"`
	MaxLength      float64  `json:"maxLength"`
	Rarity         string   `json:"rarity"`
	Water          string   `json:"water"`
	Habitat        []string `json:"habitat"`
}

type Registry struct {
	byId  []Species
	byKey map[string]SpeciesId
}

// LoadRegistry reads the species list from path, or the built-in
// catalogue when path is empty.
func LoadRegistry(path string) (*Registry, error) {
	if path == "" {
		return ParseRegistry(embeddedSpecies)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseRegistry(raw)
}

// MustDefaultRegistry returns the built-in catalogue.
func MustDefaultRegistry() *Registry {
	reg, err := ParseRegistry(embeddedSpecies)
	if err != nil {
		panic(err)
	}
	return reg
}

func ParseRegistry(raw []byte) (*Registry, error) {
	var arr []SpeciesJSON
	if err := json.Unmarshal(raw, &arr); err != nil {
		return nil, err
	}
	if len(arr) == 0 {
		return nil, fmt.Errorf("species list is empty")
	}

	byId := make([]Species, 0, len(arr))
	byKey := make(map[string]SpeciesId, len(arr))
	for i, sj := range arr {
		if sj.Key == "" {
			return nil, fmt.Errorf("missing id at index %d", i)
		}
		if _, dup := byKey[sj.Key]; dup {
			return nil, fmt.Errorf("duplicate id %q", sj.Key)
		}
		if sj.Name == "" {
			return nil, fmt.Errorf("missing name for %q", sj.Key)
		}
		tier, ok := ParseRarity(sj.Rarity)
		if !ok {
			return nil, fmt.Errorf("unknown rarity %q for %q", sj.Rarity, sj.Key)
		}
		if sj.MaxLength < sj.AverageLength {
			return nil, fmt.Errorf("maxLength below averageLength for %q", sj.Key)
		}

		id := SpeciesId(len(byId))
		byId = append(byId, Species{
			Id:             id,
			Key:            sj.Key,
			Name:           sj.Name,
			ScientificName: sj.ScientificName,
			Image:          sj.Image,
			AverageLength:  sj.AverageLength,
			MaxLength:      sj.MaxLength,
			Rarity:         tier,
			Water:          sj.Water,
			Habitat:        sj.Habitat,
		})
		byKey[sj.Key] = id
	}

	return &Registry{byId: byId, byKey: byKey}, nil
}

func (r *Registry) GetById(id SpeciesId) (Species, bool) {
	if int(id) < 0 || int(id) >= len(r.byId) {
		return Species{}, false
	}
	return r.byId[id], true
}

func (r *Registry) NameById(id SpeciesId) string {
	if sp, ok := r.GetById(id); ok {
		return sp.Name
	}
	return "Unknown"
}

func (r *Registry) IdByKey(key string) (SpeciesId, bool) {
	id, ok := r.byKey[key]
	return id, ok
}

var whitespace = regexp.MustCompile(`\s+`)

// BySpecies finds the first species whose name contains name
// (case-insensitive) or whose slug equals the slugified name.
func (r *Registry) BySpecies(name string) (Species, bool) {
	if r == nil || strings.TrimSpace(name) == "" {
		return Species{}, false
	}
	lower := strings.ToLower(name)
	slug := whitespace.ReplaceAllString(lower, "-")
	for _, sp := range r.byId {
		if strings.Contains(strings.ToLower(sp.Name), lower) || sp.Key == slug {
			return sp, true
		}
	}
	return Species{}, false
}

// ImageFor returns the reference image for a species name, or "".
func (r *Registry) ImageFor(name string) string {
	if sp, ok := r.BySpecies(name); ok {
		return sp.Image
	}
	return ""
}

func (r *Registry) ByRarity(t RarityTier) []Species {
	var out []Species
	for _, sp := range r.byId {
		if sp.Rarity == t {
			out = append(out, sp)
		}
	}
	return out
}

func (r *Registry) EmbedThumb(name string) *discordgo.MessageEmbedThumbnail {
	if img := r.ImageFor(name); strings.HasPrefix(img, "http") {
		return &discordgo.MessageEmbedThumbnail{URL: img}
	}
	return nil
}

func (r *Registry) All() []Species {
	out := make([]Species, len(r.byId))
	copy(out, r.byId)
	return out
}

func (r *Registry) Count() int { return len(r.byId) }
