package server

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/agenthands/histograph/internal/auth"
	"github.com/agenthands/histograph/internal/core/model"
	"github.com/agenthands/histograph/internal/ingest"
	"github.com/agenthands/histograph/internal/validate"
)

type DatasetService interface {
	List(ctx context.Context) ([]model.Dataset, error)
	Get(ctx context.Context, id string) (*model.Dataset, error)
	Create(ctx context.Context, ds model.Dataset, owner string) error
	Update(ctx context.Context, ds model.Dataset) error
	Delete(ctx context.Context, id string) error
}

type Ingester interface {
	Ingest(ctx context.Context, req ingest.Request) (ingest.Outcome, error)
}

type CorrectionIntake interface {
	Accept(ctx context.Context, kind model.FileKind, body []byte) (int, error)
}

// SnapshotFiles locates the current snapshot of a dataset file.
type SnapshotFiles interface {
	Filename(dataset string, kind model.FileKind) string
}

type Server struct {
	Datasets    DatasetService
	Ingester    Ingester
	Corrections CorrectionIntake
	Validator   validate.Validator
	Files       SnapshotFiles
	Guard       *auth.Guard
}

func NewServer(datasets DatasetService, ingester Ingester, corrections CorrectionIntake, validator validate.Validator, files SnapshotFiles, guard *auth.Guard) *Server {
	return &Server{
		Datasets:    datasets,
		Ingester:    ingester,
		Corrections: corrections,
		Validator:   validator,
		Files:       files,
		Guard:       guard,
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), corsHandler())

	r.GET("/datasets", s.ListDatasets)
	r.POST("/datasets", s.Guard.RequireOwner(), s.CreateDataset)

	r.PUT("/datasets/corrections/:kind", requireKind(), s.Guard.RequireOwner(), s.PutCorrections)

	ds := r.Group("/datasets/:dataset")
	ds.GET("", s.datasetExists(), s.GetDataset)
	ds.PATCH("", s.datasetExists(), s.Guard.RequireDatasetOwner(), s.UpdateDataset)
	ds.DELETE("", s.datasetExists(), s.Guard.RequireDatasetOwner(), s.DeleteDataset)
	ds.GET("/:kind", requireKind(), s.datasetExists(), s.GetFile)
	ds.PUT("/:kind", requireKind(), s.datasetExists(), s.Guard.RequireDatasetOwner(), s.PutFile)

	return r
}
