package ingestion

import (
	"regexp"
	"testing"
)

func Test_ChunkID_StableAndDistinct(t *testing.T) {
	t.Parallel()

	a := ChunkID("Academic Policy.pdf", 3, "Registration closes in week two.")
	b := ChunkID("Academic Policy.pdf", 3, "Registration closes in week two.")
	if a != b {
		t.Fatalf("identical input produced different IDs: %s vs %s", a, b)
	}

	if !regexp.MustCompile(`^[0-9a-f]{40}$`).MatchString(a) {
		t.Fatalf("ID is not 40 hex chars: %q", a)
	}

	// Any field change must produce a new identifier.
	variants := []string{
		ChunkID("Hostel Guide.pdf", 3, "Registration closes in week two."),
		ChunkID("Academic Policy.pdf", 4, "Registration closes in week two."),
		ChunkID("Academic Policy.pdf", 3, "Registration closes in week three."),
	}
	for i, v := range variants {
		if v == a {
			t.Fatalf("variant %d collided with the original ID", i)
		}
	}
}

func Test_ChunkID_FieldBoundariesAreUnambiguous(t *testing.T) {
	t.Parallel()

	// The separator keeps (name, page, content) from bleeding into each
	// other when fields contain digits at their edges.
	a := ChunkID("doc", 12, "3 content")
	b := ChunkID("doc", 1, "23 content")
	if a == b {
		t.Fatal("shifting bytes across the page/content boundary must change the ID")
	}
}
