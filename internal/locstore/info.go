package locstore

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/locrender/internal/render"
)

// GeneratedBy is written into the parameters document by SaveInfo.
const GeneratedBy = "locrender"

// MovieInfo is the first document of a _locs.yaml sidecar. Width and Height
// are required; the rest are optional and nil when absent. Keys not listed
// here are kept in Extra.
type MovieInfo struct {
	Width  int `yaml:"Width"`
	Height int `yaml:"Height"`

	Frames               *int64   `yaml:"Frames,omitempty"`
	DataType             *string  `yaml:"Data Type,omitempty"`
	ByteOrder            *string  `yaml:"Byte Order,omitempty"`
	Camera               *string  `yaml:"Camera,omitempty"`
	EMRealGain           *float64 `yaml:"EM RealGain,omitempty"`
	ExcitationWavelength *float64 `yaml:"Excitation Wavelength,omitempty"`

	Extra map[string]interface{} `yaml:",inline"`
}

// FrameInfo returns the frame dimensions for rendering.
func (m *MovieInfo) FrameInfo() render.FrameInfo {
	return render.FrameInfo{Width: m.Width, Height: m.Height}
}

// Info is a parsed sidecar: the movie document followed by any number of
// processing parameter documents.
type Info struct {
	Movie  MovieInfo
	Params []map[string]interface{}
}

// LocsInfoPath maps a localization file to its sidecar:
// foo_locs.hdf5 and foo.hdf5 both give foo_locs.yaml.
func LocsInfoPath(path string) string {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	base = strings.TrimSuffix(base, "_locs")
	return base + "_locs.yaml"
}

// LoadInfo reads and decodes the sidecar at path.
func LoadInfo(path string) (*Info, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open info: %w", err)
	}
	defer f.Close()

	info, err := DecodeInfo(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return info, nil
}

// DecodeInfo decodes a multi-document sidecar stream.
func DecodeInfo(r io.Reader) (*Info, error) {
	dec := yaml.NewDecoder(r)

	var info Info
	if err := dec.Decode(&info.Movie); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("info: empty document")
		}
		return nil, fmt.Errorf("info: movie document: %w", err)
	}
	if info.Movie.Width <= 0 || info.Movie.Height <= 0 {
		return nil, fmt.Errorf("%w: info needs positive Width and Height, got %dx%d",
			render.ErrInvalidConfiguration, info.Movie.Width, info.Movie.Height)
	}

	for {
		var doc map[string]interface{}
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("info: parameters document %d: %w", len(info.Params)+1, err)
		}
		if doc != nil {
			info.Params = append(info.Params, doc)
		}
	}
	return &info, nil
}

// SaveInfo writes movie, then params with a "Generated by" entry, as two
// YAML documents. params is not modified.
func SaveInfo(w io.Writer, movie *MovieInfo, params map[string]interface{}) error {
	out := make(map[string]interface{}, len(params)+1)
	maps.Copy(out, params)
	out["Generated by"] = GeneratedBy

	enc := yaml.NewEncoder(w)
	enc.SetIndent(4)
	if err := enc.Encode(movie); err != nil {
		return fmt.Errorf("encode movie info: %w", err)
	}
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode parameters: %w", err)
	}
	return enc.Close()
}
