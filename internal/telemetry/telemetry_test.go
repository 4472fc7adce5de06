package telemetry

import "testing"

func boolPtr(b bool) *bool { return &b }

func TestNewClient_NilPreferenceIsNoOp(t *testing.T) {
	c := NewClient("1.0.0", nil)
	if _, ok := c.(NoOpClient); !ok {
		t.Errorf("got %T, want NoOpClient for an unset preference", c)
	}
}

func TestNewClient_DisabledIsNoOp(t *testing.T) {
	c := NewClient("1.0.0", boolPtr(false))
	if _, ok := c.(NoOpClient); !ok {
		t.Errorf("got %T, want NoOpClient when disabled", c)
	}
}

func TestNewClient_OptOutEnvOverridesEnabled(t *testing.T) {
	t.Setenv(OptOutEnvVar, "1")
	c := NewClient("1.0.0", boolPtr(true))
	if _, ok := c.(NoOpClient); !ok {
		t.Errorf("got %T, want NoOpClient when the opt-out env var is set", c)
	}
}

func TestNoOpClient_TrackToolAndCloseAreSafe(t *testing.T) {
	var c Client = NoOpClient{}
	c.TrackTool("launch", "launch", true)
	c.Close()
}
