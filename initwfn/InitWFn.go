// Package initwfn wraps Gorgonia InitWFn so that weight initialization
// schemes can be described in JSON configuration files.
package initwfn

import (
	"encoding/json"
	"fmt"
	"reflect"

	G "gorgonia.org/gorgonia"
)

// Type describes the available weight initialization schemes
type Type string

const (
	GlorotU  Type = "GlorotU"
	GlorotN  Type = "GlorotN"
	Gaussian Type = "Gaussian"
	Constant Type = "Constant"
	Zeroes   Type = "Zeroes"
)

// InitWFn pairs a Gorgonia InitWFn with the serializable configuration
// that created it
type InitWFn struct {
	initWFn G.InitWFn
	Type
	Config
}

// newInitWFn returns a new InitWFn described by the configuration
func newInitWFn(c Config) (*InitWFn, error) {
	init := InitWFn{Type: c.Type(), Config: c}
	init.initWFn = init.Config.Create()

	return &init, nil
}

// InitWFn returns the wrapped Gorgonia InitWFn
func (i *InitWFn) InitWFn() G.InitWFn {
	return i.initWFn
}

// String implements the fmt.Stringer interface
func (i *InitWFn) String() string {
	return fmt.Sprintf("{%v InitWFn: %v}", i.Type, i.Config)
}

// UnmarshalJSON implements the json.Unmarshaller interface
func (i *InitWFn) UnmarshalJSON(data []byte) error {
	config, typeName, err := unmarshalConfig(
		data,
		"Type",
		"Config",
		map[string]reflect.Type{
			string(GlorotU):  reflect.TypeOf(GlorotUConfig{}),
			string(GlorotN):  reflect.TypeOf(GlorotNConfig{}),
			string(Gaussian): reflect.TypeOf(GaussianConfig{}),
			string(Constant): reflect.TypeOf(ConstantConfig{}),
			string(Zeroes):   reflect.TypeOf(ZeroesConfig{}),
		})
	if err != nil {
		return err
	}

	i.Type = typeName
	i.Config = config
	i.initWFn = i.Config.Create()

	return nil
}

// unmarshalConfig uses reflection to unmarshal a Config into its
// concrete type. Both the Config and its Type are returned.
func unmarshalConfig(data []byte, typeJsonField, valueJsonField string,
	customTypes map[string]reflect.Type) (Config, Type, error) {
	m := map[string]interface{}{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, "", err
	}

	typeName, ok := m[typeJsonField].(string)
	if !ok {
		return nil, "", fmt.Errorf("unmarshalConfig: no %v field in "+
			"initializer configuration", typeJsonField)
	}

	var value Config
	if ty, found := customTypes[typeName]; found {
		value = reflect.New(ty).Interface().(Config)
	} else {
		return nil, "", fmt.Errorf("unmarshalConfig: unknown "+
			"initializer type %v", typeName)
	}

	valueBytes, err := json.Marshal(m[valueJsonField])
	if err != nil {
		return nil, "", err
	}

	if err = json.Unmarshal(valueBytes, &value); err != nil {
		return nil, "", err
	}
	concreteValue := reflect.ValueOf(value).Elem().Interface().(Config)

	return concreteValue, Type(typeName), nil
}

// Config describes a Gorgonia InitWFn and can create the InitWFn it
// describes
type Config interface {
	Create() G.InitWFn

	// Type returns the type of Gorgonia InitWFn that Create returns
	Type() Type
}

// GlorotUConfig describes a Glorot Uniform weight initializer
type GlorotUConfig struct {
	Gain float64
}

// NewGlorotU returns a new Glorot Uniform weight initializer
func NewGlorotU(gain float64) (*InitWFn, error) {
	return newInitWFn(GlorotUConfig{Gain: gain})
}

func (g GlorotUConfig) Type() Type { return GlorotU }

func (g GlorotUConfig) Create() G.InitWFn {
	return G.GlorotU(g.Gain)
}

// GlorotNConfig describes a Glorot Normal weight initializer
type GlorotNConfig struct {
	Gain float64
}

// NewGlorotN returns a new Glorot Normal weight initializer
func NewGlorotN(gain float64) (*InitWFn, error) {
	return newInitWFn(GlorotNConfig{Gain: gain})
}

func (g GlorotNConfig) Type() Type { return GlorotN }

func (g GlorotNConfig) Create() G.InitWFn {
	return G.GlorotN(g.Gain)
}

// GaussianConfig describes a weight initializer that draws weights
// from a Gaussian distribution
type GaussianConfig struct {
	Mean, StdDev float64
}

// NewGaussian returns a new Gaussian weight initializer
func NewGaussian(mean, stddev float64) (*InitWFn, error) {
	return newInitWFn(GaussianConfig{Mean: mean, StdDev: stddev})
}

func (g GaussianConfig) Type() Type { return Gaussian }

func (g GaussianConfig) Create() G.InitWFn {
	return G.Gaussian(g.Mean, g.StdDev)
}

// ConstantConfig describes a weight initializer that sets all weights
// to a constant value
type ConstantConfig struct {
	Value float64
}

// NewConstant returns a new constant weight initializer
func NewConstant(value float64) (*InitWFn, error) {
	return newInitWFn(ConstantConfig{Value: value})
}

func (c ConstantConfig) Type() Type { return Constant }

func (c ConstantConfig) Create() G.InitWFn {
	return G.ValuesOf(c.Value)
}

// ZeroesConfig describes a weight initializer that sets all weights
// to 0
type ZeroesConfig struct{}

// NewZeroes returns a new zeroes weight initializer
func NewZeroes() (*InitWFn, error) {
	return newInitWFn(ZeroesConfig{})
}

func (z ZeroesConfig) Type() Type { return Zeroes }

func (z ZeroesConfig) Create() G.InitWFn {
	return G.Zeroes()
}
