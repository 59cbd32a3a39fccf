package chemistry

import "testing"

func water() ([]string, []float64) {
	return []string{"O", "H", "H"}, []float64{
		0.0, 0.0, 0.0,
		0.0, 0.757, 0.587,
		0.0, -0.757, 0.587,
	}
}

func TestHashStableUnderAtomReorder(t *testing.T) {
	symbols, geometry := water()
	h1, err := Hash(symbols, geometry, 0, 1)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	reordered := []string{"H", "O", "H"}
	reorderedGeometry := []float64{
		0.0, 0.757, 0.587,
		0.0, 0.0, 0.0,
		0.0, -0.757, 0.587,
	}
	h2, err := Hash(reordered, reorderedGeometry, 0, 1)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	if h1 != h2 {
		t.Fatalf("expected reordered molecule to hash identically, got %s != %s", h1, h2)
	}
}

func TestHashDiffersOnGeometry(t *testing.T) {
	symbols, geometry := water()
	h1, _ := Hash(symbols, geometry, 0, 1)

	geometry[1] = 1.5
	h2, _ := Hash(symbols, geometry, 0, 1)

	if h1 == h2 {
		t.Fatal("expected differing geometry to hash differently")
	}
}

func TestHashDiffersOnCharge(t *testing.T) {
	symbols, geometry := water()
	h1, _ := Hash(symbols, geometry, 0, 1)
	h2, _ := Hash(symbols, geometry, 1, 1)

	if h1 == h2 {
		t.Fatal("expected differing charge to hash differently")
	}
}

func TestCompareDetectsCollision(t *testing.T) {
	symbols, geometry := water()
	other := []string{"O", "H", "H"}
	otherGeometry := []float64{
		0.0, 0.0, 0.0,
		0.0, 0.96, 0.0,
		0.0, -0.24, 0.93,
	}

	if Compare(symbols, geometry, 0, 1, other, otherGeometry, 0, 1) {
		t.Fatal("expected structurally different molecules to compare unequal")
	}
}

func TestHashRejectsMismatchedLengths(t *testing.T) {
	_, err := Hash([]string{"O", "H"}, []float64{0, 0, 0}, 0, 1)
	if err == nil {
		t.Fatal("expected error for mismatched symbols/geometry length")
	}
}
