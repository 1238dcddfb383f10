// Package dao contains the data access objects of the registry.
package dao

import (
	glog "github.com/Laisky/go-utils/v6/log"
	mongoLib "go.mongodb.org/mongo-driver/mongo"

	"github.com/openmlhub/model-registry/library/db/mongo"
)

const (
	fileColName   = "modelfile"
	configColName = "modelconfig"
)

// Registry dao type
type Registry struct {
	logger glog.Logger
	db     mongo.DB
}

// New create new dao
func New(logger glog.Logger, db mongo.DB) *Registry {
	return &Registry{
		logger: logger,
		db:     db,
	}
}

// FilesCol get the stored model archives collection
func (d *Registry) FilesCol() *mongoLib.Collection {
	return d.db.GetCol(fileColName)
}

// ConfigsCol get the external source configs collection
func (d *Registry) ConfigsCol() *mongoLib.Collection {
	return d.db.GetCol(configColName)
}
