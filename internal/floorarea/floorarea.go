// Package floorarea estimates a building's gross floor area and floor
// count from its footprint, volume/height, and GKAT/GKLAS classification,
// using floor-height ranges from the Canton Zurich methodology.
package floorarea

import (
	"fmt"
	"math"
)

// Schema identifies which classification field a lookup entry matches.
type Schema string

const (
	SchemaGKAT Schema = "GKAT"
	SchemaGKLAS Schema = "GKLAS"
)

type heightEntry struct {
	egMin, egMax, rgMin, rgMax float64
	schema                     Schema
	label                      string
}

// heightTable is keyed by category (GKAT) or class (GKLAS) code.
var heightTable = map[string]heightEntry{
	"1010": {2.70, 3.30, 2.70, 3.30, SchemaGKAT, "provisional shelter"},
	"1030": {2.70, 3.30, 2.70, 3.30, SchemaGKAT, "residential with secondary use"},
	"1040": {3.30, 3.70, 2.70, 3.70, SchemaGKAT, "building with partial residential use"},
	"1060": {3.30, 5.00, 3.00, 5.00, SchemaGKAT, "non-residential building"},
	"1080": {3.00, 4.00, 3.00, 4.00, SchemaGKAT, "special-purpose building"},

	"1110": {2.70, 3.30, 2.70, 3.30, SchemaGKLAS, "single-family house"},
	"1121": {2.70, 3.30, 2.70, 3.30, SchemaGKLAS, "two-family house"},
	"1122": {2.70, 3.30, 2.70, 3.30, SchemaGKLAS, "multi-family house"},
	"1130": {2.70, 3.30, 2.70, 3.30, SchemaGKLAS, "communal residential building"},

	"1211": {3.30, 3.70, 3.00, 3.50, SchemaGKLAS, "hotel building"},
	"1212": {3.00, 3.50, 3.00, 3.50, SchemaGKLAS, "short-term accommodation"},

	"1220": {3.40, 4.20, 3.40, 4.20, SchemaGKLAS, "office building"},
	"1230": {3.40, 5.00, 3.40, 5.00, SchemaGKLAS, "wholesale and retail"},
	"1231": {3.30, 4.00, 3.30, 4.00, SchemaGKLAS, "restaurants and bars"},
	"1241": {4.00, 6.00, 4.00, 6.00, SchemaGKLAS, "stations and terminals"},
	"1242": {2.80, 3.20, 2.80, 3.20, SchemaGKLAS, "parking garages"},
	"1251": {4.00, 7.00, 4.00, 7.00, SchemaGKLAS, "industrial building"},
	"1252": {3.50, 6.00, 3.50, 6.00, SchemaGKLAS, "tanks, silos, storage"},
	"1261": {3.50, 5.00, 3.50, 5.00, SchemaGKLAS, "culture and leisure"},
	"1262": {3.50, 5.00, 3.50, 5.00, SchemaGKLAS, "museums and libraries"},
	"1263": {3.30, 4.00, 3.30, 4.00, SchemaGKLAS, "schools and colleges"},
	"1264": {3.30, 4.00, 3.30, 4.00, SchemaGKLAS, "hospitals and clinics"},
	"1265": {3.00, 6.00, 3.00, 6.00, SchemaGKLAS, "sports halls"},
	"1271": {3.50, 5.00, 3.50, 5.00, SchemaGKLAS, "agricultural buildings"},
	"1272": {3.00, 6.00, 3.00, 6.00, SchemaGKLAS, "churches and sacred buildings"},
	"1273": {3.00, 4.00, 3.00, 4.00, SchemaGKLAS, "monuments, protected buildings"},
	"1274": {3.00, 4.00, 3.00, 4.00, SchemaGKLAS, "other buildings"},
}

var residentialDefault = heightEntry{2.70, 3.30, 2.70, 3.30, "DEFAULT", "residential default"}

var mediumAccuracyClasses = map[string]bool{
	"1220": true, "1230": true, "1231": true, "1263": true, "1264": true,
}

var lowAccuracyClasses = map[string]bool{
	"1251": true, "1252": true, "1265": true, "1272": true,
}

var lowAccuracyCategories = map[string]bool{
	"1060": true, "1080": true,
}

// Accuracy is the confidence band attached to a floor-area estimate.
type Accuracy string

const (
	AccuracyHigh   Accuracy = "high"
	AccuracyMedium Accuracy = "medium"
	AccuracyLow    Accuracy = "low"
)

// Status reports why a floor-area estimate did or didn't succeed.
type Status string

const (
	StatusSuccess             Status = "success"
	StatusMissingFootprint    Status = "missing_footprint"
	StatusMissingHeightData   Status = "missing_height_data"
	StatusImplausibleHeight   Status = "implausible_height"
)

// Input is the per-building data needed to estimate floor area.
type Input struct {
	FootprintAreaM2 float64
	VolumeM3        float64
	HasVolume       bool
	MeanHeightM     float64
	HasMeanHeight   bool
	GKAT            string
	GKLAS           string
}

// Result is the floor-area worker's output for one building.
type Result struct {
	FloorAreaEstM2 float64
	FloorsMin      float64
	FloorsMax      float64
	FloorsEst      int
	Accuracy       Accuracy
	Status         Status
	Error          string
}

const maxPlausibleHeightM = 200.0

// Estimate derives floor count and gross floor area from in.
func Estimate(in Input) Result {
	if in.FootprintAreaM2 <= 0 {
		return Result{Status: StatusMissingFootprint, Error: "missing or non-positive footprint area"}
	}

	meanHeight := in.MeanHeightM
	if !in.HasMeanHeight || meanHeight <= 0 {
		if !in.HasVolume || in.VolumeM3 <= 0 {
			return Result{Status: StatusMissingHeightData, Error: "missing volume and height data"}
		}
		meanHeight = in.VolumeM3 / in.FootprintAreaM2
	}

	if meanHeight > maxPlausibleHeightM {
		return Result{
			Status: StatusImplausibleHeight,
			Error:  fmt.Sprintf("implausible mean height: %.1fm", meanHeight),
		}
	}

	entry := lookupFloorHeight(in.GKAT, in.GKLAS)
	hMin := (entry.egMin + entry.rgMin) / 2
	hMax := (entry.egMax + entry.rgMax) / 2

	floorsMin := meanHeight / hMax
	floorsMax := meanHeight / hMin
	floorsEst := (floorsMin + floorsMax) / 2
	if floorsEst < 1 {
		floorsEst = 1
	}
	floorsRounded := int(math.Round(floorsEst))

	return Result{
		FloorAreaEstM2: in.FootprintAreaM2 * floorsEst,
		FloorsMin:      floorsMin,
		FloorsMax:      floorsMax,
		FloorsEst:      floorsRounded,
		Accuracy:       determineAccuracy(in),
		Status:         StatusSuccess,
	}
}

// lookupFloorHeight resolves the floor-height entry for a building: GKLAS
// takes priority over GKAT, falling back to the residential default.
func lookupFloorHeight(gkat, gklas string) heightEntry {
	if gklas != "" {
		if entry, ok := heightTable[gklas]; ok && entry.schema == SchemaGKLAS {
			return entry
		}
	}
	if gkat != "" {
		if entry, ok := heightTable[gkat]; ok && entry.schema == SchemaGKAT {
			return entry
		}
	}
	return residentialDefault
}

func determineAccuracy(in Input) Accuracy {
	if !in.HasVolume || in.GKAT == "" && in.GKLAS == "" {
		return AccuracyLow
	}
	if in.GKAT == "1020" || hasPrefix(in.GKLAS, "11") {
		return AccuracyHigh
	}
	if mediumAccuracyClasses[in.GKLAS] {
		return AccuracyMedium
	}
	if lowAccuracyClasses[in.GKLAS] || lowAccuracyCategories[in.GKAT] {
		return AccuracyLow
	}
	return AccuracyMedium
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
