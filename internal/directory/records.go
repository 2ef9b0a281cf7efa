package directory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ClusterM/google-assistant-smart-home/internal/models"

	"gopkg.in/yaml.v3"
)

// recordExtensions lists the accepted record file extensions in lookup order.
var recordExtensions = []string{".json", ".yaml", ".yml"}

// deviceRecord is the on-disk device file: the SYNC descriptor plus the
// driver block that stays server-side.
type deviceRecord struct {
	models.DeviceDescriptor `yaml:",inline"`

	Driver models.DriverConfig `json:"driver" yaml:"driver"`
}

// validRecordID rejects identifiers that could escape the records directory.
func validRecordID(id string) bool {
	if id == "" || strings.HasPrefix(id, ".") {
		return false
	}
	return !strings.ContainsAny(id, `/\`+"\x00")
}

// recordID returns the identifier for a record file name, or false when the
// file is not a record.
func recordID(name string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	for _, known := range recordExtensions {
		if ext == known {
			id := strings.TrimSuffix(name, filepath.Ext(name))
			return id, validRecordID(id)
		}
	}
	return "", false
}

// findRecord returns the path of the first existing record file for id.
func findRecord(dir, id string) (string, error) {
	for _, ext := range recordExtensions {
		path := filepath.Join(dir, id+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		} else if !os.IsNotExist(err) {
			return "", err
		}
	}
	return "", os.ErrNotExist
}

// decodeRecord reads a JSON or YAML record into v.
func decodeRecord(path string, v any) error {
	raw, err := os.ReadFile(path) //nolint:gosec // path is built from a validated record id
	if err != nil {
		return err
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		dec := json.NewDecoder(bytes.NewReader(raw))
		if err := dec.Decode(v); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidRecord, path, err)
		}
		return nil
	}

	if err := yaml.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidRecord, path, err)
	}
	return nil
}
