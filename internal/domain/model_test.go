package domain

import "testing"

func TestValueFloat(t *testing.T) {
	tests := []struct {
		name   string
		v      Value
		want   float64
		wantOK bool
	}{
		{"float", FloatValue(1.5), 1.5, true},
		{"int", IntValue(3), 3, true},
		{"bool true", BoolValue(true), 1, true},
		{"bool false", BoolValue(false), 0, true},
		{"string", StringValue("abc"), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.v.Float()
			if ok != tt.wantOK {
				t.Fatalf("Float() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("Float() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTargetMetricsScore(t *testing.T) {
	targets := TargetMetrics{"execution_time": 5.0}
	observed := map[string]float64{"execution_time": 5.0}
	if got := targets.Score(observed); got != 1.0 {
		t.Errorf("Score at exact target = %v, want 1.0", got)
	}

	observed2 := map[string]float64{"execution_time": 6.0}
	got2 := targets.Score(observed2)
	want2 := 1.0 / (1.0 + 1.0)
	if got2 != want2 {
		t.Errorf("Score off by 1 = %v, want %v", got2, want2)
	}

	// Metric absent from observed contributes nothing.
	if got := targets.Score(map[string]float64{}); got != 0 {
		t.Errorf("Score with no observed metrics = %v, want 0", got)
	}
}

func TestParamMapClone(t *testing.T) {
	p := ParamMap{"a": IntValue(1)}
	clone := p.Clone()
	clone["a"] = IntValue(2)
	if p["a"].Num != 1 {
		t.Errorf("Clone mutated original: %v", p["a"])
	}
}

func TestTaskStatusTerminal(t *testing.T) {
	terminal := []TaskStatus{TaskCompleted, TaskFailed, TaskCancelled}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	nonTerminal := []TaskStatus{TaskPending, TaskRunning}
	for _, s := range nonTerminal {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
