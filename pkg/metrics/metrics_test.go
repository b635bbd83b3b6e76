package metrics

import "testing"

func TestRegistry(t *testing.T) {
	if Registry == nil {
		t.Fatal("Registry is nil")
	}
}
