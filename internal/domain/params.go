package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Params is one point in a strategy's parameter space: a mapping from
// parameter name to numeric value. Integer parameters (periods, lookbacks)
// are stored as whole-valued floats.
type Params map[string]float64

// Num returns the value for key, or def when the key is absent.
func (p Params) Num(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// Int returns the value for key truncated to int, or def when absent.
func (p Params) Int(key string, def int) int {
	if v, ok := p[key]; ok {
		return int(v)
	}
	return def
}

// Clone returns an independent copy of the parameter set.
func (p Params) Clone() Params {
	c := make(Params, len(p))
	for k, v := range p {
		c[k] = v
	}
	return c
}

// ParseParams parses a "k1=v1,k2=v2" string into a parameter set. An empty
// string yields an empty set.
func ParseParams(s string) (Params, error) {
	p := Params{}
	s = strings.TrimSpace(s)
	if s == "" {
		return p, nil
	}
	for _, part := range strings.Split(s, ",") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return nil, &InvalidParameterError{Param: strings.TrimSpace(part), Reason: "want name=value"}
		}
		key := strings.TrimSpace(kv[0])
		if key == "" {
			return nil, &InvalidParameterError{Param: strings.TrimSpace(part), Reason: "empty parameter name"}
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(kv[1]), 64)
		if err != nil {
			return nil, &InvalidParameterError{Param: key, Reason: "value is not numeric"}
		}
		p[key] = v
	}
	return p, nil
}

// String renders the parameters as "k1=v1, k2=v2" in sorted key order.
func (p Params) String() string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%g", k, p[k]))
	}
	return strings.Join(parts, ", ")
}
