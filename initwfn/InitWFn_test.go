package initwfn

import (
	"encoding/json"
	"testing"
)

// TestGlorotNJSONRoundTrip checks that an initializer survives JSON
// serialization with its configuration and a working underlying
// InitWFn
func TestGlorotNJSONRoundTrip(t *testing.T) {
	init, err := NewGlorotN(1.0)
	if err != nil {
		t.Fatal(err)
	}

	data, err := json.Marshal(init)
	if err != nil {
		t.Fatal(err)
	}

	var decoded InitWFn
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}

	if decoded.Type != GlorotN {
		t.Errorf("type \n\twant(%v) \n\thave(%v)", GlorotN, decoded.Type)
	}
	config, ok := decoded.Config.(GlorotNConfig)
	if !ok {
		t.Fatalf("config has type %T, expected GlorotNConfig",
			decoded.Config)
	}
	if config.Gain != 1.0 {
		t.Errorf("gain \n\twant(%v) \n\thave(%v)", 1.0, config.Gain)
	}
	if decoded.InitWFn() == nil {
		t.Error("decoding must recreate the underlying InitWFn")
	}
}

// TestConstantJSONRoundTrip checks the constant initializer
func TestConstantJSONRoundTrip(t *testing.T) {
	init, err := NewConstant(0.5)
	if err != nil {
		t.Fatal(err)
	}

	data, err := json.Marshal(init)
	if err != nil {
		t.Fatal(err)
	}

	var decoded InitWFn
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}

	if decoded.Type != Constant {
		t.Errorf("type \n\twant(%v) \n\thave(%v)", Constant, decoded.Type)
	}
	config, ok := decoded.Config.(ConstantConfig)
	if !ok {
		t.Fatalf("config has type %T, expected ConstantConfig",
			decoded.Config)
	}
	if config.Value != 0.5 {
		t.Errorf("value \n\twant(%v) \n\thave(%v)", 0.5, config.Value)
	}
}

// TestUnknownTypeFails checks that decoding an unknown initializer
// type fails
func TestUnknownTypeFails(t *testing.T) {
	var decoded InitWFn
	data := []byte(`{"Type": "Orthogonal", "Config": {}}`)
	if err := json.Unmarshal(data, &decoded); err == nil {
		t.Error("expected an error for an unknown initializer type")
	}
}
