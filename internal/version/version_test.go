package version

import (
	"testing"

	"github.com/fatih/color"
)

func TestColoredPlain(t *testing.T) {
	saved, savedNoColor := Version, color.NoColor
	t.Cleanup(func() { Version, color.NoColor = saved, savedNoColor })
	color.NoColor = true

	tests := []string{"0.1.0-dev", "1.2.3", "1.0.0-rc.1", "custom"}
	for _, v := range tests {
		Version = v
		if got := Colored(); got != v {
			t.Errorf("Colored() with %q = %q", v, got)
		}
	}
}

func TestColoredAddsEscapes(t *testing.T) {
	saved, savedNoColor := Version, color.NoColor
	t.Cleanup(func() { Version, color.NoColor = saved, savedNoColor })
	color.NoColor = false

	Version = "1.2.3"
	if got := Colored(); got == Version {
		t.Fatalf("expected colored output, got %q", got)
	}
}
