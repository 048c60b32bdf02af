package floorarea

import (
	"math"
	"testing"
)

func TestEstimate_MidRiseOffice(t *testing.T) {
	got := Estimate(Input{
		FootprintAreaM2: 400,
		MeanHeightM:     24,
		HasMeanHeight:   true,
		HasVolume:       true,
		VolumeM3:        9600,
		GKLAS:           "1220",
	})

	if got.Status != StatusSuccess {
		t.Fatalf("Status = %q, want success", got.Status)
	}
	if math.Abs(got.FloorsMin-5.71) > 0.01 {
		t.Errorf("FloorsMin = %v, want ~5.71", got.FloorsMin)
	}
	if math.Abs(got.FloorsMax-7.06) > 0.01 {
		t.Errorf("FloorsMax = %v, want ~7.06", got.FloorsMax)
	}
	if got.FloorsEst != 6 {
		t.Errorf("FloorsEst = %d, want 6", got.FloorsEst)
	}
	if math.Abs(got.FloorAreaEstM2-2557) > 5 {
		t.Errorf("FloorAreaEstM2 = %v, want ~2557", got.FloorAreaEstM2)
	}
	if got.Accuracy != AccuracyMedium {
		t.Errorf("Accuracy = %q, want medium", got.Accuracy)
	}
}

func TestEstimate_ResidentialDefault(t *testing.T) {
	got := Estimate(Input{
		FootprintAreaM2: 100,
		MeanHeightM:     9,
		HasMeanHeight:   true,
		HasVolume:       true,
		VolumeM3:        900,
	})
	if got.Status != StatusSuccess {
		t.Fatalf("Status = %q, want success", got.Status)
	}
	// residential default h_min=2.70 h_max=3.30
	wantFloorsEst := ((9 / 3.30) + (9 / 2.70)) / 2
	if math.Abs(got.FloorsMin-9/3.30) > 1e-9 {
		t.Errorf("FloorsMin = %v, want %v", got.FloorsMin, 9/3.30)
	}
	if math.Abs((got.FloorsMin+got.FloorsMax)/2-wantFloorsEst) > 1e-9 {
		t.Errorf("mean floors estimate mismatch")
	}
	if got.Accuracy != AccuracyLow {
		t.Errorf("Accuracy = %q, want low (no classification)", got.Accuracy)
	}
}

func TestEstimate_ResidentialHighAccuracy(t *testing.T) {
	got := Estimate(Input{
		FootprintAreaM2: 150,
		MeanHeightM:     8,
		HasMeanHeight:   true,
		HasVolume:       true,
		VolumeM3:        1200,
		GKLAS:           "1110",
	})
	if got.Status != StatusSuccess {
		t.Fatalf("Status = %q, want success", got.Status)
	}
	if got.Accuracy != AccuracyHigh {
		t.Errorf("Accuracy = %q, want high", got.Accuracy)
	}
}

func TestEstimate_DerivesHeightFromVolume(t *testing.T) {
	got := Estimate(Input{
		FootprintAreaM2: 100,
		HasVolume:       true,
		VolumeM3:        1000,
	})
	if got.Status != StatusSuccess {
		t.Fatalf("Status = %q, want success", got.Status)
	}
}

func TestEstimate_MissingFootprint(t *testing.T) {
	got := Estimate(Input{FootprintAreaM2: 0, HasVolume: true, VolumeM3: 100})
	if got.Status != StatusMissingFootprint {
		t.Errorf("Status = %q, want missing_footprint", got.Status)
	}
}

func TestEstimate_MissingHeightData(t *testing.T) {
	got := Estimate(Input{FootprintAreaM2: 100})
	if got.Status != StatusMissingHeightData {
		t.Errorf("Status = %q, want missing_height_data", got.Status)
	}
}

func TestEstimate_ImplausibleHeight(t *testing.T) {
	got := Estimate(Input{FootprintAreaM2: 100, MeanHeightM: 250, HasMeanHeight: true})
	if got.Status != StatusImplausibleHeight {
		t.Errorf("Status = %q, want implausible_height", got.Status)
	}
}
