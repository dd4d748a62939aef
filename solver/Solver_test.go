package solver

import (
	"encoding/json"
	"testing"
)

// TestAdamJSONRoundTrip checks that an Adam solver survives JSON
// serialization with its configuration and a working underlying
// solver
func TestAdamJSONRoundTrip(t *testing.T) {
	adam, err := NewAdam(1e-3, 1e-8, 0.9, 0.999, 32)
	if err != nil {
		t.Fatal(err)
	}

	data, err := json.Marshal(adam)
	if err != nil {
		t.Fatal(err)
	}

	var decoded Solver
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}

	if decoded.Type != Adam {
		t.Errorf("type \n\twant(%v) \n\thave(%v)", Adam, decoded.Type)
	}
	config, ok := decoded.Config.(*AdamConfig)
	if !ok {
		t.Fatalf("config has type %T, expected *AdamConfig",
			decoded.Config)
	}
	if *config != (AdamConfig{
		StepSize: 1e-3,
		Epsilon:  1e-8,
		Beta1:    0.9,
		Beta2:    0.999,
		Batch:    32,
	}) {
		t.Errorf("config \n\thave(%+v)", *config)
	}
	if decoded.Solver == nil {
		t.Error("decoding must recreate the underlying solver")
	}
}

// TestVanillaJSONRoundTrip checks that a Vanilla solver survives JSON
// serialization
func TestVanillaJSONRoundTrip(t *testing.T) {
	vanilla, err := NewVanilla(0.01, 16, 5.0)
	if err != nil {
		t.Fatal(err)
	}

	data, err := json.Marshal(vanilla)
	if err != nil {
		t.Fatal(err)
	}

	var decoded Solver
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}

	if decoded.Type != Vanilla {
		t.Errorf("type \n\twant(%v) \n\thave(%v)", Vanilla, decoded.Type)
	}
	if decoded.Solver == nil {
		t.Error("decoding must recreate the underlying solver")
	}
}

// TestUnknownTypeFails checks that decoding an unknown solver type
// fails instead of silently producing a nil solver
func TestUnknownTypeFails(t *testing.T) {
	var decoded Solver
	data := []byte(`{"Type": "Newton", "Config": {}}`)
	if err := json.Unmarshal(data, &decoded); err == nil {
		t.Error("expected an error for an unknown solver type")
	}
}
