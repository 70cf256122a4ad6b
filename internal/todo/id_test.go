package todo

import (
	"testing"

	"github.com/google/uuid"
)

func TestUUIDProviderGeneratesUniqueSortableIDs(t *testing.T) {
	provider := NewUUIDProvider()

	first, err := provider.NewID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := provider.NewID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct ids")
	}
	for _, value := range []string{first, second} {
		parsed, err := uuid.Parse(value)
		if err != nil {
			t.Fatalf("expected valid uuid, got %q: %v", value, err)
		}
		if parsed.Version() != 7 {
			t.Fatalf("expected version 7 uuid, got v%d", parsed.Version())
		}
	}
	if first >= second {
		t.Fatalf("expected lexically increasing ids, got %q then %q", first, second)
	}
}
