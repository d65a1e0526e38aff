package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

type Catalogs struct {
	Blocks BlockCatalog
}

// MapColor is a 0xRRGGBB map color. Zero means the block has no map color and
// is treated as transparent by the surface scan.
type MapColor uint32

func (c MapColor) RGB() (r, g, b uint8) {
	return uint8(c >> 16), uint8(c >> 8), uint8(c)
}

type BlockDef struct {
	ID          string `json:"id"`
	MapColor    string `json:"map_color,omitempty"` // "#RRGGBB"
	Air         bool   `json:"air,omitempty"`
	FluidSource bool   `json:"fluid_source,omitempty"`
	GroundCover bool   `json:"ground_cover,omitempty"`
}

// BlockProps is the per-palette-id view used by the surface sampler.
type BlockProps struct {
	MapColor    MapColor
	Air         bool
	FluidSource bool
	GroundCover bool
}

type BlockCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]BlockDef
	PaletteDigest string
	DefsDigest    string

	props []BlockProps
}

const blocksSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "minItems": 1,
  "items": {
    "type": "object",
    "required": ["id"],
    "additionalProperties": false,
    "properties": {
      "id": {"type": "string", "pattern": "^[A-Z][A-Z0-9_]*$"},
      "map_color": {"type": "string", "pattern": "^#[0-9A-Fa-f]{6}$"},
      "air": {"type": "boolean"},
      "fluid_source": {"type": "boolean"},
      "ground_cover": {"type": "boolean"}
    }
  }
}`

var blocksValidator = jsonschema.MustCompileString("blocks.schema.json", blocksSchema)

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs
	if err := loadBlocks(filepath.Join(configDir, "blocks.json"), &c.Blocks); err != nil {
		return nil, err
	}
	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadBlocks(path string, out *BlockCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return ParseBlocks(raw, out)
}

// ParseBlocks validates raw blocks.json content and builds the palette.
// AIR is required and always gets palette id 0.
func ParseBlocks(raw []byte, out *BlockCatalog) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("blocks.json: %w", err)
	}
	if err := blocksValidator.Validate(doc); err != nil {
		return fmt.Errorf("blocks.json: %w", err)
	}
	out.DefsDigest = sha256Hex(raw)

	var defs []BlockDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("blocks.json: %w", err)
	}
	out.Defs = map[string]BlockDef{}
	for _, d := range defs {
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("blocks.json: duplicate id %s", d.ID)
		}
		out.Defs[d.ID] = d
	}

	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if _, ok := out.Defs["AIR"]; !ok {
		return fmt.Errorf("blocks.json: missing AIR")
	}
	ids = append([]string{"AIR"}, filterOut(ids, "AIR")...)

	out.Palette = ids
	out.Index = make(map[string]uint16, len(ids))
	out.props = make([]BlockProps, len(ids))
	for i, id := range ids {
		out.Index[id] = uint16(i)
		d := out.Defs[id]
		col, err := parseMapColor(d.MapColor)
		if err != nil {
			return fmt.Errorf("blocks.json: %s: %w", id, err)
		}
		out.props[i] = BlockProps{
			MapColor:    col,
			Air:         d.Air || id == "AIR",
			FluidSource: d.FluidSource,
			GroundCover: d.GroundCover,
		}
	}
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

// Props returns the properties of a palette id. Unknown ids behave like a
// colorless, non-air block.
func (c *BlockCatalog) Props(id uint16) BlockProps {
	if int(id) >= len(c.props) {
		return BlockProps{}
	}
	return c.props[id]
}

func (c *BlockCatalog) ID(name string) (uint16, bool) {
	id, ok := c.Index[name]
	return id, ok
}

func (c *BlockCatalog) MustID(name string) uint16 {
	id, ok := c.Index[name]
	if !ok {
		panic("catalogs: unknown block " + name)
	}
	return id
}

func parseMapColor(s string) (MapColor, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "#"), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("bad map_color %q: %w", s, err)
	}
	return MapColor(v & 0xFFFFFF), nil
}

func filterOut(in []string, remove string) []string {
	out := in[:0]
	for _, v := range in {
		if v == remove {
			continue
		}
		out = append(out, v)
	}
	return out
}
