package render

import (
	"fmt"
	"strings"
)

// BlurMethod selects the rendering strategy.
type BlurMethod int

const (
	// BlurNone accumulates a plain 2D histogram.
	BlurNone BlurMethod = iota
	// BlurConvolve convolves the histogram with one Gaussian kernel sized
	// from the median precision.
	BlurConvolve
	// BlurAdaptive splats every point with a Gaussian of its own precision.
	BlurAdaptive
)

func (m BlurMethod) String() string {
	switch m {
	case BlurNone:
		return "none"
	case BlurConvolve:
		return "convolve"
	case BlurAdaptive:
		return "adaptive"
	}
	return fmt.Sprintf("BlurMethod(%d)", int(m))
}

// Valid reports whether m is one of the known methods.
func (m BlurMethod) Valid() bool {
	return m >= BlurNone && m <= BlurAdaptive
}

// NeedsPrecision reports whether the method reads lpx/lpy.
func (m BlurMethod) NeedsPrecision() bool {
	return m == BlurConvolve || m == BlurAdaptive
}

// ParseBlurMethod maps a configuration string to a BlurMethod. The empty
// string selects BlurNone and "gaussian" is accepted as an alias for
// adaptive. Any other value is an ErrInvalidConfiguration.
func ParseBlurMethod(s string) (BlurMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return BlurNone, nil
	case "convolve":
		return BlurConvolve, nil
	case "adaptive", "gaussian":
		return BlurAdaptive, nil
	}
	return BlurNone, fmt.Errorf("%w: blur method %q not understood (want none, convolve or adaptive)", ErrInvalidConfiguration, s)
}

// MarshalText implements encoding.TextMarshaler.
func (m BlurMethod) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfiguration, m)
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *BlurMethod) UnmarshalText(text []byte) error {
	v, err := ParseBlurMethod(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
