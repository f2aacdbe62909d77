package collectors

import (
	"testing"

	"github.com/perchlab/perch/internal/plugin"
)

func TestRegisterInstallsBuiltins(t *testing.T) {
	r := plugin.NewRegistry(nil)
	if err := Register(r); err != nil {
		t.Fatalf("Register: %v", err)
	}

	want := []string{"disk", "loadavg", "memory", "netio"}
	got := r.Names()
	if len(got) != len(want) {
		t.Fatalf("Names = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Names = %v, want %v", got, want)
		}
	}
}

func TestBuildersProduceValidPlugins(t *testing.T) {
	builders := map[string]plugin.Builder{
		"disk":    Disk,
		"memory":  Memory,
		"loadavg": LoadAvg,
		"netio":   NetIO,
	}
	for name, build := range builders {
		t.Run(name, func(t *testing.T) {
			p, err := build(plugin.Options{})
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			props, err := p.Properties()
			if err != nil {
				t.Fatalf("Properties: %v", err)
			}
			if props.Name != name {
				t.Errorf("Name = %q, want %q", props.Name, name)
			}
			if len(p.Schema().Groups()) == 0 {
				t.Error("no field groups declared")
			}
		})
	}
}

func TestDiskSchemaMatchesContract(t *testing.T) {
	p, err := Disk(plugin.Options{})
	if err != nil {
		t.Fatalf("Disk: %v", err)
	}
	group, ok := p.Schema().Group("usage")
	if !ok {
		t.Fatal("usage group missing")
	}
	if len(group.Fields) != 2 || group.Fields[0].Name != "free" || group.Fields[1].Name != "used" {
		t.Fatalf("fields = %+v", group.Fields)
	}
}
