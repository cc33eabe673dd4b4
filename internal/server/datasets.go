package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agenthands/histograph/internal/auth"
	"github.com/agenthands/histograph/internal/core/model"
	"github.com/agenthands/histograph/internal/validate"
)

func (s *Server) ListDatasets(c *gin.Context) {
	datasets, err := s.Datasets.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, datasets)
}

func (s *Server) GetDataset(c *gin.Context) {
	c.JSON(http.StatusOK, datasetOf(c))
}

func (s *Server) CreateDataset(c *gin.Context) {
	body, ok := bindObject(c)
	if !ok {
		return
	}
	ds, ok := s.validDataset(c, body)
	if !ok {
		return
	}

	if err := s.Datasets.Create(c.Request.Context(), ds, auth.OwnerName(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": fmt.Sprintf("Dataset '%s' created successfully", ds.ID)})
}

func (s *Server) UpdateDataset(c *gin.Context) {
	id := c.Param("dataset")
	body, ok := bindObject(c)
	if !ok {
		return
	}

	if bodyID, present := body["id"]; present && bodyID != id {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Dataset ID in URL must match dataset ID in JSON body"})
		return
	}
	body["id"] = id

	ds, ok := s.validDataset(c, body)
	if !ok {
		return
	}

	if err := s.Datasets.Update(c.Request.Context(), ds); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Dataset '%s' updated successfully", id)})
}

func (s *Server) DeleteDataset(c *gin.Context) {
	id := c.Param("dataset")
	if err := s.Datasets.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Dataset '%s' deleted successfully", id)})
}

func bindObject(c *gin.Context) (map[string]interface{}, bool) {
	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil || body == nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Request body must be a JSON object"})
		return nil, false
	}
	return body, true
}

func (s *Server) validDataset(c *gin.Context, body map[string]interface{}) (model.Dataset, bool) {
	if err := s.Validator.Validate(validate.KindDataset, body); err != nil {
		respondError(c, err)
		return model.Dataset{}, false
	}
	ds, err := model.DatasetFromMap(body)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
		return model.Dataset{}, false
	}
	return ds, true
}
