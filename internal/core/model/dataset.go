package model

import (
	"encoding/json"
	"fmt"
)

// Dataset is a named, owned collection. Everything except the id is
// owner-supplied metadata validated against the dataset schema.
type Dataset struct {
	ID     string
	Fields map[string]interface{}
}

// Map returns the flat JSON form of the dataset.
func (d Dataset) Map() map[string]interface{} {
	m := make(map[string]interface{}, len(d.Fields)+1)
	for k, v := range d.Fields {
		m[k] = v
	}
	if d.ID != "" {
		m["id"] = d.ID
	}
	return m
}

func (d Dataset) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Map())
}

func (d *Dataset) UnmarshalJSON(data []byte) error {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	ds, err := DatasetFromMap(m)
	if err != nil {
		return err
	}
	*d = ds
	return nil
}

// DatasetFromMap splits the id out of a flat JSON object.
func DatasetFromMap(m map[string]interface{}) (Dataset, error) {
	ds := Dataset{Fields: make(map[string]interface{}, len(m))}
	for k, v := range m {
		if k != "id" {
			ds.Fields[k] = v
			continue
		}
		id, ok := v.(string)
		if !ok {
			return Dataset{}, fmt.Errorf("dataset id must be a string, got %T", v)
		}
		ds.ID = id
	}
	return ds, nil
}

type Owner struct {
	Name         string `json:"name"`
	PasswordHash string `json:"-"`
}

// FileKind names one of the two NDJSON artifacts of a dataset.
type FileKind string

const (
	Pits      FileKind = "pits"
	Relations FileKind = "relations"
)

var FileKinds = []FileKind{Pits, Relations}

func ParseFileKind(s string) (FileKind, error) {
	switch FileKind(s) {
	case Pits, Relations:
		return FileKind(s), nil
	}
	return "", fmt.Errorf("unknown file kind %q", s)
}
