package gdb

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ListLayers returns the base names (without extension) of every
// .gdbtable file found directly under dirPath.
func ListLayers(dirPath string) ([]string, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, fmt.Errorf("reading geodatabase dir: %w", err)
	}
	var layers []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".gdbtable") {
			layers = append(layers, strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
		}
	}
	return layers, nil
}

// ResolveLayer finds the .gdbtable path under dirPath whose name matches
// wanted via a case-insensitive substring match in either direction,
// mirroring how the Python predecessor tolerated naming drift between a
// requested layer ("Building_solid") and the actual on-disk table name.
func ResolveLayer(dirPath, wanted string) (string, error) {
	layers, err := ListLayers(dirPath)
	if err != nil {
		return "", err
	}
	wantedLower := strings.ToLower(wanted)
	for _, layer := range layers {
		layerLower := strings.ToLower(layer)
		if strings.Contains(wantedLower, layerLower) || strings.Contains(layerLower, wantedLower) {
			return filepath.Join(dirPath, layer+".gdbtable"), nil
		}
	}
	return "", fmt.Errorf("layer not found: %s (available: %v)", wanted, layers)
}
