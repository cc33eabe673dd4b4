package core

import (
	"errors"
	"fmt"

	"github.com/agenthands/histograph/internal/core/model"
)

var ErrUnknownField = errors.New("unknown dataset field")

// graphIDProperty holds the dataset id on the graph node.
const graphIDProperty = "dataset"

// DatasetParams binds dataset metadata to query parameters. Only fields on
// the allow-list reach the graph, and the id travels as its own parameter
// so no query text depends on user data.
type DatasetParams struct {
	allowed map[string]struct{}
}

func NewDatasetParams(fields []string) *DatasetParams {
	p := &DatasetParams{allowed: make(map[string]struct{}, len(fields))}
	for _, f := range fields {
		if f == "id" || f == graphIDProperty {
			continue
		}
		p.allowed[f] = struct{}{}
	}
	return p
}

func (p *DatasetParams) props(ds model.Dataset) (map[string]interface{}, error) {
	props := make(map[string]interface{}, len(ds.Fields)+1)
	for k, v := range ds.Fields {
		if _, ok := p.allowed[k]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, k)
		}
		props[k] = v
	}
	return props, nil
}

// Create returns the parameters of driver.CreateDatasetQuery.
func (p *DatasetParams) Create(ds model.Dataset, owner string) (map[string]interface{}, error) {
	if ds.ID == "" {
		return nil, fmt.Errorf("dataset id is required")
	}
	props, err := p.props(ds)
	if err != nil {
		return nil, err
	}
	props[graphIDProperty] = ds.ID

	return map[string]interface{}{
		"id":    ds.ID,
		"owner": owner,
		"props": props,
	}, nil
}

// Update returns the parameters of driver.UpdateDatasetQuery. The id is only
// used for matching.
func (p *DatasetParams) Update(ds model.Dataset) (map[string]interface{}, error) {
	if ds.ID == "" {
		return nil, fmt.Errorf("dataset id is required")
	}
	props, err := p.props(ds)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"id":    ds.ID,
		"props": props,
	}, nil
}

// Decode turns graph node properties back into a dataset.
func (p *DatasetParams) Decode(props map[string]interface{}) model.Dataset {
	ds := model.Dataset{Fields: make(map[string]interface{}, len(props))}
	for k, v := range props {
		if k == graphIDProperty {
			ds.ID, _ = v.(string)
			continue
		}
		ds.Fields[k] = v
	}
	return ds
}
