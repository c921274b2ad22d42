package properties

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	got := Parse(map[string]string{
		"timeout":     "100",
		"db.host":     "localhost",
		"db.pool.max": "10",
	})

	want := map[string]any{
		"timeout": "100",
		"db": map[string]any{
			"host": "localhost",
			"pool": map[string]any{"max": "10"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode(t *testing.T) {
	type db struct {
		Host    string        `mapstructure:"host"`
		MaxConn int           `mapstructure:"maxConn"`
		Timeout time.Duration `mapstructure:"timeout"`
	}
	type config struct {
		Name string `mapstructure:"name"`
		DB   db     `mapstructure:"db"`
	}

	var cfg config
	err := Decode(map[string]string{
		"name":       "orders",
		"db.host":    "10.0.0.1",
		"db.maxConn": "25",
		"db.timeout": "3s",
	}, &cfg, nil)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	want := config{Name: "orders", DB: db{Host: "10.0.0.1", MaxConn: 25, Timeout: 3 * time.Second}}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Decode() mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_CustomDecoder(t *testing.T) {
	called := false
	dec := func(data map[string]any, target any) error {
		called = true
		return nil
	}
	if err := Decode(map[string]string{"a": "b"}, &struct{}{}, dec); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !called {
		t.Error("custom decoder was not called")
	}
}
