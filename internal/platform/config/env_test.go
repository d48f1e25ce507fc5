package config

import "testing"

func TestParseEnvLoadsValues(t *testing.T) {
	t.Setenv("FOCUS_SPACE_TEST_NAME", "focus")
	t.Setenv("FOCUS_SPACE_TEST_PORT", "8084")

	var cfg struct {
		Name string `env:"FOCUS_SPACE_TEST_NAME"`
		Port int    `env:"FOCUS_SPACE_TEST_PORT" envDefault:"8080"`
	}
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Name != "focus" {
		t.Fatalf("name = %q, want %q", cfg.Name, "focus")
	}
	if cfg.Port != 8084 {
		t.Fatalf("port = %d, want 8084", cfg.Port)
	}
}

func TestParseEnvAppliesDefaults(t *testing.T) {
	var cfg struct {
		Port int `env:"FOCUS_SPACE_TEST_UNSET_PORT" envDefault:"8080"`
	}
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Port != 8080 {
		t.Fatalf("port = %d, want default 8080", cfg.Port)
	}
}
