package manifest

import (
	"testing"
)

func floatPtr(f float64) *float64 { return &f }

func TestValidateMinimal(t *testing.T) {
	m := &Manifest{Version: "1.0", Runner: RunnerClientStatic, Entry: "index.html"}

	result := Validate(m)
	if !result.Valid {
		t.Fatalf("expected valid, got errors: %v", result.Errors)
	}
	if len(result.Errors) != 0 {
		t.Errorf("expected no errors, got %d", len(result.Errors))
	}
}

func TestValidateMissingFields(t *testing.T) {
	result := Validate(&Manifest{})
	if result.Valid {
		t.Fatal("expected invalid")
	}

	paths := issuePaths(result.Errors)
	for _, want := range []string{"version", "runner", "entry"} {
		if !paths[want] {
			t.Errorf("expected error at %q, got %v", want, result.Errors)
		}
	}
}

func TestValidateUnsupportedVersion(t *testing.T) {
	m := CreateDefault(RunnerClientStatic)
	m.Version = "2.0"

	result := Validate(m)
	if result.Valid {
		t.Fatal("expected invalid")
	}
	if result.Errors[0].Code != CodeUnsupportedVersion {
		t.Errorf("expected code %q, got %q", CodeUnsupportedVersion, result.Errors[0].Code)
	}
}

func TestValidateTooManyParams(t *testing.T) {
	m := CreateDefault(RunnerClientStatic)
	for i := 0; i < 21; i++ {
		m.Params = append(m.Params, Param{Name: NormalizeParamName("P" + string(rune('a'+i))), Type: ParamToggle})
	}

	result := Validate(m)
	if result.Valid {
		t.Fatal("expected invalid")
	}

	found := false
	for _, e := range result.Errors {
		if e.Path == "params" && e.Code == CodeTooMany {
			found = true
		}
	}
	if !found {
		t.Errorf("expected too_many error at 'params', got %v", result.Errors)
	}
}

func TestValidateSliderRequiresBounds(t *testing.T) {
	m := CreateDefault(RunnerClientStatic)
	m.Params = []Param{{Name: "speed", Type: ParamSlider}}

	result := Validate(m)
	if result.Valid {
		t.Fatal("expected invalid")
	}

	paths := issuePaths(result.Errors)
	if !paths["params.speed.min"] || !paths["params.speed.max"] {
		t.Errorf("expected errors at params.speed.min and .max, got %v", result.Errors)
	}
}

func TestValidateSliderDefaultBelowMinWarns(t *testing.T) {
	m := CreateDefault(RunnerClientStatic)
	m.Params = []Param{{
		Name:    "speed",
		Type:    ParamSlider,
		Min:     floatPtr(1),
		Max:     floatPtr(10),
		Default: float64(0),
	}}

	result := Validate(m)
	if !result.Valid {
		t.Fatalf("bounds violation must be a warning, got errors: %v", result.Errors)
	}

	found := false
	for _, w := range result.Warnings {
		if w.Path == "params.speed.default" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected warning at params.speed.default, got %v", result.Warnings)
	}
}

func TestValidateSelectDefaultNotInOptionsWarns(t *testing.T) {
	m := CreateDefault(RunnerClientStatic)
	m.Params = []Param{{
		Name:    "theme",
		Type:    ParamSelect,
		Options: []Option{{Value: "dark"}, {Value: "light"}},
		Default: "sepia",
	}}

	result := Validate(m)
	if !result.Valid {
		t.Fatalf("expected valid with warning, got errors: %v", result.Errors)
	}
	if len(result.Warnings) == 0 || result.Warnings[0].Path != "params.theme.default" {
		t.Errorf("expected warning at params.theme.default, got %v", result.Warnings)
	}
}

func TestValidateSelectRequiresOptions(t *testing.T) {
	m := CreateDefault(RunnerClientStatic)
	m.Params = []Param{{Name: "theme", Type: ParamSelect}}

	result := Validate(m)
	if result.Valid {
		t.Fatal("expected invalid")
	}
	if result.Errors[0].Path != "params.theme.options" {
		t.Errorf("expected error at params.theme.options, got %v", result.Errors)
	}
}

func TestValidateNetAlwaysRejected(t *testing.T) {
	m := CreateDefault(RunnerClientStatic)
	m.Capabilities.Net = []string{"api.example.com"}

	result := Validate(m)
	if result.Valid {
		t.Fatal("network capability must be rejected")
	}
	if result.Errors[0].ErrorCode != ErrNetDisabled {
		t.Errorf("expected errorCode %q, got %q", ErrNetDisabled, result.Errors[0].ErrorCode)
	}
}

func TestValidateMalformedHost(t *testing.T) {
	m := CreateDefault(RunnerClientStatic)
	m.Capabilities.Net = []string{"https://api.example.com/path"}

	result := Validate(m)
	if result.Valid {
		t.Fatal("expected invalid")
	}
	if result.Errors[0].Code != CodeMalformedHost {
		t.Errorf("expected code %q, got %q", CodeMalformedHost, result.Errors[0].Code)
	}
}

func TestValidateBundleCeiling(t *testing.T) {
	m := CreateDefault(RunnerClientStatic)
	m.BundleSize = 20 * 1024 * 1024
	m.Assets = []Asset{{Path: "big.bin", Size: 10 * 1024 * 1024}}

	result := Validate(m)
	if result.Valid {
		t.Fatal("expected invalid")
	}
	if result.Errors[0].ErrorCode != ErrBundleTooLarge {
		t.Errorf("expected errorCode %q, got %q", ErrBundleTooLarge, result.Errors[0].ErrorCode)
	}
}

func TestValidateWorkerEdgeRequiresConfig(t *testing.T) {
	m := CreateDefault(RunnerWorkerEdge)
	m.EdgeWorker = nil

	result := Validate(m)
	if result.Valid {
		t.Fatal("expected invalid")
	}
	if result.Errors[0].Path != "edgeWorker" {
		t.Errorf("expected error at edgeWorker, got %v", result.Errors)
	}
}

func TestValidateLiveBudgetWarning(t *testing.T) {
	m := CreateDefault(RunnerClientStatic)
	m.Live = &LiveConfig{Enabled: true, MaxSessionMinutes: 600}

	result := Validate(m)
	if !result.Valid {
		t.Fatalf("expected valid, got errors: %v", result.Errors)
	}

	found := false
	for _, w := range result.Warnings {
		if w.ErrorCode == WarnLiveBudget {
			found = true
		}
	}
	if !found {
		t.Errorf("expected live budget warning, got %v", result.Warnings)
	}
}

func TestCreateDefaultRoundTrip(t *testing.T) {
	for _, runner := range []Runner{RunnerClientStatic, RunnerWebContainer, RunnerWorkerEdge} {
		m := CreateDefault(runner)
		result := Validate(m)
		if !result.Valid {
			t.Errorf("default manifest for %s should validate, got errors: %v", runner, result.Errors)
		}
	}
}

func TestNormalizeParamName(t *testing.T) {
	cases := []struct {
		in, out string
	}{
		{"speed", "speed"},
		{"Speed Limit", "speed_limit"},
		{"fill-color", "fill_color"},
		{"  padded  ", "padded"},
		{"<script>", "script"},
		{"123abc", ""},
		{"", ""},
		{"!!!", ""},
	}

	for _, c := range cases {
		if got := NormalizeParamName(c.in); got != c.out {
			t.Errorf("NormalizeParamName(%q) = %q, want %q", c.in, got, c.out)
		}
	}
}

func TestUpdateParamsSkipsInvalidNames(t *testing.T) {
	m := CreateDefault(RunnerClientStatic)
	m.Params = []Param{
		{Name: "speed", Type: ParamSlider, Min: floatPtr(0), Max: floatPtr(10), Default: float64(5)},
	}

	UpdateParams(m, map[string]interface{}{
		"Speed":      float64(8), // normalizes to "speed"
		"__proto__":  "evil",
		"!!!":        "evil",
		"undeclared": float64(1),
	})

	if m.Params[0].Default != float64(8) {
		t.Errorf("expected default 8, got %v", m.Params[0].Default)
	}
	if len(m.Params) != 1 {
		t.Errorf("no params should have been added, got %d", len(m.Params))
	}
}

func TestParseYAML(t *testing.T) {
	data := []byte(`
version: "1.0"
runner: client-static
entry: index.html
params:
  - name: speed
    type: slider
    min: 0
    max: 10
    default: 5
`)

	m, err := ParseYAML(data)
	if err != nil {
		t.Fatalf("ParseYAML failed: %v", err)
	}

	result := Validate(m)
	if !result.Valid {
		t.Fatalf("expected valid, got errors: %v", result.Errors)
	}
	if len(m.Params) != 1 || m.Params[0].Name != "speed" {
		t.Errorf("unexpected params: %+v", m.Params)
	}
}

func TestParseJSONRejectsGarbage(t *testing.T) {
	if _, err := ParseJSON([]byte("{not json")); err == nil {
		t.Fatal("expected parse error")
	}
}

func issuePaths(issues []Issue) map[string]bool {
	paths := make(map[string]bool, len(issues))
	for _, i := range issues {
		paths[i.Path] = true
	}
	return paths
}
