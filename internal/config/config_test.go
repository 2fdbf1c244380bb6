package config

import "testing"

func TestVectorDimDefault(t *testing.T) {
	t.Setenv("LOSTFOUND_VECTOR_DIM", "")
	if d := VectorDim(); d != DefaultVectorDim {
		t.Fatalf("dim=%d, want %d", d, DefaultVectorDim)
	}
}

func TestVectorDimFromEnv(t *testing.T) {
	t.Setenv("LOSTFOUND_VECTOR_DIM", "768")
	if d := VectorDim(); d != 768 {
		t.Fatalf("dim=%d, want 768", d)
	}
}

func TestVectorDimRejectsGarbage(t *testing.T) {
	for _, v := range []string{"zero", "-5", "0"} {
		t.Setenv("LOSTFOUND_VECTOR_DIM", v)
		if d := VectorDim(); d != DefaultVectorDim {
			t.Fatalf("dim=%d for %q, want default", d, v)
		}
	}
}

func TestCollectionDefault(t *testing.T) {
	t.Setenv("LOSTFOUND_COLLECTION", "")
	if c := Collection(); c != DefaultCollection {
		t.Fatalf("collection=%q", c)
	}
	t.Setenv("LOSTFOUND_COLLECTION", "campus_items")
	if c := Collection(); c != "campus_items" {
		t.Fatalf("collection=%q", c)
	}
}

func TestParseYAMLShallow(t *testing.T) {
	m, err := parseYAMLShallow(`# comment
LOSTFOUND_COLLECTION: "campus_items"
LOSTFOUND_VECTOR_DIM: 768  # inline note
nested:
  ignored: true
`)
	if err != nil {
		t.Fatal(err)
	}
	if m["LOSTFOUND_COLLECTION"] != "campus_items" {
		t.Fatalf("collection=%v", m["LOSTFOUND_COLLECTION"])
	}
	if m["LOSTFOUND_VECTOR_DIM"] != float64(768) {
		t.Fatalf("dim=%v", m["LOSTFOUND_VECTOR_DIM"])
	}
	if _, ok := m["ignored"]; ok {
		t.Fatal("nested key leaked into shallow parse")
	}
}
