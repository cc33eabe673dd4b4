package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/agenthands/histograph/internal/core/model"
	"github.com/agenthands/histograph/internal/driver"
	"github.com/agenthands/histograph/internal/search"
)

// Snapshots manages the per-dataset current snapshot files.
type Snapshots interface {
	CreateDir(dataset string) error
	Truncate(dataset string, kind model.FileKind) error
	RemoveDir(dataset string) error
}

// ChangeNotifier confirms that a snapshot file was emptied.
type ChangeNotifier interface {
	FileChanged(ctx context.Context, dataset string, kind model.FileKind) error
}

// Datasets sequences dataset operations over the graph store, the search
// index and the snapshot files. The stores are not transactional together:
// a failed Create or Delete can leave them disagreeing, and nothing here
// repairs that.
type Datasets struct {
	Driver      driver.GraphDriver
	Index       search.Index
	Snapshots   Snapshots
	Notifier    ChangeNotifier
	Params      *DatasetParams
	Corrections string

	pending sync.WaitGroup
}

func NewDatasets(d driver.GraphDriver, index search.Index, snapshots Snapshots, notifier ChangeNotifier, params *DatasetParams, corrections string) *Datasets {
	return &Datasets{
		Driver:      d,
		Index:       index,
		Snapshots:   snapshots,
		Notifier:    notifier,
		Params:      params,
		Corrections: corrections,
	}
}

func (d *Datasets) List(ctx context.Context) ([]model.Dataset, error) {
	res, err := d.Driver.ExecuteQuery(ctx, driver.GetDatasetsQuery, map[string]interface{}{
		"corr": d.Corrections,
	})
	if err != nil {
		return nil, graphError("list datasets", err)
	}

	datasets := make([]model.Dataset, 0, len(res.Records))
	for _, rec := range res.Records {
		ds, err := d.decode(rec)
		if err != nil {
			return nil, graphError("list datasets", err)
		}
		datasets = append(datasets, ds)
	}
	return datasets, nil
}

// Get returns nil without error when the dataset does not exist or is the
// correction namespace.
func (d *Datasets) Get(ctx context.Context, id string) (*model.Dataset, error) {
	res, err := d.Driver.ExecuteQuery(ctx, driver.GetDatasetQuery, map[string]interface{}{
		"id":   id,
		"corr": d.Corrections,
	})
	if err != nil {
		return nil, graphError("get dataset", err)
	}
	if len(res.Records) != 1 {
		return nil, nil
	}

	ds, err := d.decode(res.Records[0])
	if err != nil {
		return nil, graphError("get dataset", err)
	}
	return &ds, nil
}

func (d *Datasets) Exists(ctx context.Context, id string) (bool, error) {
	ds, err := d.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return ds != nil, nil
}

// Create makes the search index first so the dataset is never visible
// without one. A failure after that leaves the index in place.
func (d *Datasets) Create(ctx context.Context, ds model.Dataset, owner string) error {
	if ds.ID == d.Corrections {
		return fmt.Errorf("%w: %s", ErrReserved, ds.ID)
	}

	exists, err := d.Exists(ctx, ds.ID)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("dataset '%s' %w", ds.ID, ErrConflict)
	}

	params, err := d.Params.Create(ds, owner)
	if err != nil {
		return err
	}

	return d.createSteps(ds.ID, owner, params).Run(ctx)
}

func (d *Datasets) createSteps(id, owner string, params map[string]interface{}) Sequence {
	return Sequence{
		{
			Name:   "create search index",
			Source: SourceIndex,
			Run: func(ctx context.Context) error {
				return d.Index.Create(ctx, id)
			},
		},
		{
			Name:   "merge dataset node",
			Source: SourceGraph,
			Run: func(ctx context.Context) error {
				res, err := d.Driver.ExecuteQuery(ctx, driver.CreateDatasetQuery, params)
				if err != nil {
					return err
				}
				if len(res.Records) == 0 {
					return fmt.Errorf("owner '%s' not found", owner)
				}
				return nil
			},
		},
		{
			Name:   "create snapshot dir",
			Source: SourceFiles,
			Run: func(ctx context.Context) error {
				return d.Snapshots.CreateDir(id)
			},
		},
	}
}

// Update overwrites metadata fields. The id and the search index are left
// untouched.
func (d *Datasets) Update(ctx context.Context, ds model.Dataset) error {
	params, err := d.Params.Update(ds)
	if err != nil {
		return err
	}

	res, err := d.Driver.ExecuteQuery(ctx, driver.UpdateDatasetQuery, params)
	if err != nil {
		return graphError("update dataset", err)
	}
	if len(res.Records) == 0 {
		return fmt.Errorf("dataset '%s' %w", ds.ID, ErrNotFound)
	}
	return nil
}

// Delete removes the index, the dataset node with its ownership edge and the
// dataset's vacant nodes, in that order, stopping at the first failure. On
// success both snapshot files are emptied before returning, and the dataset
// directory is removed in the background once the notifier confirms them.
func (d *Datasets) Delete(ctx context.Context, id string) error {
	if err := d.deleteSteps(id).Run(ctx); err != nil {
		return err
	}

	for _, kind := range model.FileKinds {
		if err := d.Snapshots.Truncate(id, kind); err != nil {
			return &StoreError{Source: SourceFiles, Op: "truncate snapshot", Err: err}
		}
	}

	d.scheduleRemoval(context.WithoutCancel(ctx), id)
	return nil
}

func (d *Datasets) deleteSteps(id string) Sequence {
	params := map[string]interface{}{"id": id}
	return Sequence{
		{
			Name:   "delete search index",
			Source: SourceIndex,
			Run: func(ctx context.Context) error {
				return d.Index.Delete(ctx, id)
			},
		},
		{
			Name:   "delete dataset node",
			Source: SourceGraph,
			Run: func(ctx context.Context) error {
				_, err := d.Driver.ExecuteQuery(ctx, driver.DeleteDatasetQuery, params)
				return err
			},
		},
		{
			Name:   "delete vacant nodes",
			Source: SourceGraph,
			Run: func(ctx context.Context) error {
				_, err := d.Driver.ExecuteQuery(ctx, driver.DeleteVacantNodesQuery, params)
				return err
			},
		},
	}
}

func (d *Datasets) scheduleRemoval(ctx context.Context, id string) {
	d.pending.Add(1)
	go func() {
		defer d.pending.Done()

		for _, kind := range model.FileKinds {
			if err := d.Notifier.FileChanged(ctx, id, kind); err != nil {
				slog.ErrorContext(ctx, "Snapshot change not confirmed, keeping dataset dir",
					"dataset", id, "type", string(kind), "err", err)
				return
			}
		}
		if err := d.Snapshots.RemoveDir(id); err != nil {
			slog.ErrorContext(ctx, "Failed to remove dataset dir", "dataset", id, "err", err)
			return
		}
		slog.InfoContext(ctx, "Removed dataset dir", "dataset", id)
	}()
}

// Wait blocks until scheduled directory removals have finished.
func (d *Datasets) Wait() {
	d.pending.Wait()
}

// GetOwner returns nil without error for an unknown owner, leaving the
// caller to answer unauthorized rather than not found.
func (d *Datasets) GetOwner(ctx context.Context, name string) (*model.Owner, error) {
	res, err := d.Driver.ExecuteQuery(ctx, driver.GetOwnerQuery, map[string]interface{}{"name": name})
	if err != nil {
		return nil, graphError("get owner", err)
	}
	return decodeOwner(res), nil
}

func (d *Datasets) GetOwnerForDataset(ctx context.Context, id string) (*model.Owner, error) {
	res, err := d.Driver.ExecuteQuery(ctx, driver.GetOwnerForDatasetQuery, map[string]interface{}{"id": id})
	if err != nil {
		return nil, graphError("get dataset owner", err)
	}
	return decodeOwner(res), nil
}

// InitAdmin creates the administrative owner unless it already exists. An
// existing owner keeps its password.
func (d *Datasets) InitAdmin(ctx context.Context, name, passwordHash string) error {
	_, err := d.Driver.ExecuteQuery(ctx, driver.MergeAdminQuery, map[string]interface{}{
		"name":     name,
		"password": passwordHash,
	})
	if err != nil {
		return graphError("create admin owner", err)
	}
	return nil
}

func (d *Datasets) decode(rec *neo4j.Record) (model.Dataset, error) {
	raw, _ := rec.Get("dataset")
	props, ok := raw.(map[string]interface{})
	if !ok {
		return model.Dataset{}, fmt.Errorf("unexpected dataset record %T", raw)
	}
	return d.Params.Decode(props), nil
}

func decodeOwner(res neo4j.EagerResult) *model.Owner {
	if len(res.Records) != 1 {
		return nil
	}
	rec := res.Records[0]
	name, _ := rec.Get("name")
	password, _ := rec.Get("password")

	owner := &model.Owner{}
	owner.Name, _ = name.(string)
	owner.PasswordHash, _ = password.(string)
	return owner
}
