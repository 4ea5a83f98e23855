package tpmseal

import "testing"

func TestSelectFallsBackToSoftwareWithoutTPM(t *testing.T) {
	sealer, err := Select(false, t.TempDir())
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	defer sealer.Close()

	if _, ok := sealer.(*Software); !ok {
		t.Errorf("expected *Software fallback, got %T", sealer)
	}
}

func TestSelectRoundTripsThroughChosenSealer(t *testing.T) {
	sealer, err := Select(false, t.TempDir())
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	defer sealer.Close()

	sealed, err := sealer.Seal([]byte("admin-key-material"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	opened, err := sealer.Unseal(sealed)
	if err != nil {
		t.Fatalf("Unseal: %v", err)
	}
	if string(opened) != "admin-key-material" {
		t.Errorf("got %q", opened)
	}
}
