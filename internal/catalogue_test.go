package internal

import (
	"testing"
)

// Every event the runtime can emit must be classified by at least one fold;
// an unclassified event would silently vanish from both projections.
func TestCatalogue_EveryEventHandled(t *testing.T) {
	for _, c := range CatalogueCoverage() {
		if !c.Flat && !c.Display {
			t.Errorf("%s/%s is not handled by any projection", c.Kind, c.Type)
		}
	}
}

// Handler tables must not route types the catalogue does not know about
func TestCatalogue_HandlersAreCatalogued(t *testing.T) {
	tables := []struct {
		name string
		kind EventKind
		keys []EventType
	}{
		{"flat submit", KindSubmit, keysOf(flatSubmitHandlers)},
		{"flat harness", KindHarness, keysOf(flatHarnessHandlers)},
		{"display submit", KindSubmit, keysOf(displaySubmitHandlers)},
		{"display harness", KindHarness, keysOf(displayHarnessHandlers)},
	}
	for _, table := range tables {
		for _, typ := range table.keys {
			if !IsKnownEvent(table.kind, typ) {
				t.Errorf("%s handles %q which is missing from the catalogue", table.name, typ)
			}
		}
	}
}

func TestCatalogue_NoDuplicates(t *testing.T) {
	seen := make(map[CatalogueEntry]bool)
	for _, entry := range Catalogue {
		if seen[entry] {
			t.Errorf("duplicate catalogue entry %s/%s", entry.Kind, entry.Type)
		}
		seen[entry] = true
	}
}

func TestCatalogue_DisplayHarnessIsComplete(t *testing.T) {
	// the display projection covers every harness event except errors,
	// which only the flat audit trail records
	for _, c := range CatalogueCoverage() {
		if c.Kind == KindHarness && !c.Display && c.Type != EventError {
			t.Errorf("display does not handle harness event %q", c.Type)
		}
	}
}

func keysOf[V any](m map[EventType]V) []EventType {
	keys := make([]EventType, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
