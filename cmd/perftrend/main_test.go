package main

import "testing"

func TestKnown(t *testing.T) {
	for _, name := range []string{"config", "import", "query", "trend"} {
		if !known(name) {
			t.Errorf("known(%q) = false, want true", name)
		}
	}
	for _, name := range []string{"", "checksum", "Query", "perftrend-query"} {
		if known(name) {
			t.Errorf("known(%q) = true, want false", name)
		}
	}
}
