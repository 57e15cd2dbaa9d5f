package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileSource reads the reference catalogues from a directory containing
// stations.json and platforms.json in the same shape as the API responses.
type FileSource struct {
	Directory string
}

func (f FileSource) GetStations(ctx context.Context) (map[string]string, error) {
	var stations map[string]string
	if err := f.readJSON("stations.json", &stations); err != nil {
		return nil, err
	}
	return stations, nil
}

func (f FileSource) GetPlatforms(ctx context.Context) (map[string][]PlatformRecord, error) {
	var platforms map[string][]PlatformRecord
	if err := f.readJSON("platforms.json", &platforms); err != nil {
		return nil, err
	}
	return platforms, nil
}

func (f FileSource) readJSON(name string, target any) error {
	path := filepath.Join(f.Directory, name)

	jsonBytes, err := os.ReadFile(path)
	if err != nil {
		return &TransportError{Path: path, Err: err}
	}

	if err := json.Unmarshal(jsonBytes, target); err != nil {
		return &TransportError{Path: path, Err: fmt.Errorf("decode payload: %w", err)}
	}

	return nil
}
