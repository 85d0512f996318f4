package filter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrUnknownKind is returned when a filter name or Kind value is not recognized.
	ErrUnknownKind = errors.New("unknown filter")

	// ErrMissingParam is returned when a filter requires a parameter that was not given.
	ErrMissingParam = errors.New("missing filter parameter")

	// ErrInvalidParam is returned when a parameter has the wrong type or is out of range.
	ErrInvalidParam = errors.New("invalid filter parameter")
)

// Kind tags a filter. The zero value is not a valid filter.
type Kind int

const (
	Negate Kind = iota + 1
	Grayscale
	Brightness
	Contrast
	EdgeDetect
	Emboss
	GaussianBlur
	SelectiveBlur
	MeanRemoval
	Smooth
	Pixelate
	Sepia
	Colorize
	Scatter

	lastKind = Scatter
)

var kindNames = map[Kind]string{
	Negate:        "negate",
	Grayscale:     "grayscale",
	Brightness:    "brightness",
	Contrast:      "contrast",
	EdgeDetect:    "edgedetect",
	Emboss:        "emboss",
	GaussianBlur:  "gaussianblur",
	SelectiveBlur: "selectiveblur",
	MeanRemoval:   "meanremoval",
	Smooth:        "smooth",
	Pixelate:      "pixelate",
	Sepia:         "sepia",
	Colorize:      "colorize",
	Scatter:       "scatter",
}

// String returns the filter name used in configuration and tool arguments.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Kinds returns every supported filter kind in declaration order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(kindNames))
	for k := Negate; k <= lastKind; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// ParseKind resolves a filter name. Names are case-insensitive and may contain
// dashes or underscores ("gaussian-blur", "edge_detect").
func ParseKind(name string) (Kind, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.NewReplacer("-", "", "_", "").Replace(n)
	for k, v := range kindNames {
		if v == n {
			return k, nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownKind, "%q", name)
}

type paramKind uint8

const (
	paramNone paramKind = iota
	paramInt
	paramFloat
	paramInts
)

// Param is an optional filter parameter: nothing, an int, a float or a list
// of ints. The zero value holds nothing.
type Param struct {
	kind paramKind
	i    int
	f    float64
	ints []int
}

// NoParam returns an empty parameter.
func NoParam() Param { return Param{} }

// IntParam wraps an integer parameter.
func IntParam(v int) Param { return Param{kind: paramInt, i: v} }

// FloatParam wraps a floating point parameter.
func FloatParam(v float64) Param { return Param{kind: paramFloat, f: v} }

// IntsParam wraps a list of integer arguments, such as the channel offsets of
// Colorize.
func IntsParam(v ...int) Param {
	return Param{kind: paramInts, ints: append([]int(nil), v...)}
}

// IsSet reports whether the parameter holds a value.
func (p Param) IsSet() bool { return p.kind != paramNone }

// Int returns the value if the parameter holds an int.
func (p Param) Int() (int, bool) {
	return p.i, p.kind == paramInt
}

// Float returns the value as float64 if the parameter holds an int or a float.
func (p Param) Float() (float64, bool) {
	switch p.kind {
	case paramFloat:
		return p.f, true
	case paramInt:
		return float64(p.i), true
	default:
		return 0, false
	}
}

// Ints returns the values if the parameter holds an int or a list of ints.
// The returned slice is a copy.
func (p Param) Ints() ([]int, bool) {
	switch p.kind {
	case paramInts:
		return append([]int(nil), p.ints...), true
	case paramInt:
		return []int{p.i}, true
	default:
		return nil, false
	}
}

// String formats the parameter; an empty parameter formats as "".
func (p Param) String() string {
	switch p.kind {
	case paramInts:
		parts := make([]string, len(p.ints))
		for i, v := range p.ints {
			parts[i] = strconv.Itoa(v)
		}
		return strings.Join(parts, ",")
	case paramInt:
		return strconv.Itoa(p.i)
	case paramFloat:
		return strconv.FormatFloat(p.f, 'g', -1, 64)
	default:
		return ""
	}
}

// Spec is one entry of a filter pipeline.
type Spec struct {
	Kind  Kind
	Param Param
}

// String formats the spec as "name" or "name:param", the form ParseSpec reads.
func (s Spec) String() string {
	if !s.Param.IsSet() {
		return s.Kind.String()
	}
	return s.Kind.String() + ":" + s.Param.String()
}

// ParseSpec parses "name" or "name:value". A comma separated value is a list
// of ints, a value containing '.', 'e' or 'E' is parsed as a float, anything
// else as an int.
func ParseSpec(s string) (Spec, error) {
	name, value, hasValue := strings.Cut(s, ":")
	kind, err := ParseKind(name)
	if err != nil {
		return Spec{}, err
	}
	spec := Spec{Kind: kind}
	if !hasValue {
		return spec, nil
	}

	value = strings.TrimSpace(value)
	if strings.Contains(value, ",") {
		fields := strings.Split(value, ",")
		ints := make([]int, len(fields))
		for i, f := range fields {
			v, err := strconv.Atoi(strings.TrimSpace(f))
			if err != nil {
				return Spec{}, errors.Wrapf(ErrInvalidParam, "%s: %q", kind, value)
			}
			ints[i] = v
		}
		spec.Param = IntsParam(ints...)
		return spec, nil
	}
	if strings.ContainsAny(value, ".eE") {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return Spec{}, errors.Wrapf(ErrInvalidParam, "%s: %q", kind, value)
		}
		spec.Param = FloatParam(f)
		return spec, nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return Spec{}, errors.Wrapf(ErrInvalidParam, "%s: %q", kind, value)
	}
	spec.Param = IntParam(i)
	return spec, nil
}

// ParseSpecs parses a list of filter strings, stopping at the first error.
func ParseSpecs(list []string) ([]Spec, error) {
	specs := make([]Spec, 0, len(list))
	for _, s := range list {
		if strings.TrimSpace(s) == "" {
			continue
		}
		spec, err := ParseSpec(s)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
