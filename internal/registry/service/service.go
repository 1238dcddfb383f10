// Package service implements the model source registry. It owns the
// single-active-source invariant: before any source is activated, every
// currently-active record in both collections is deactivated first.
package service

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/Laisky/errors/v2"
	glog "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/openmlhub/model-registry/internal/registry/dao"
	"github.com/openmlhub/model-registry/internal/registry/dto"
	"github.com/openmlhub/model-registry/internal/registry/model"
	mongoSDK "github.com/openmlhub/model-registry/library/db/mongo"
)

// DefaultListLimit caps list-files responses when the caller gives no limit.
const DefaultListLimit = 10

// ErrStoreUnavailable means the registry was started without a store
// connection. Endpoints translate it to a service-unavailable response.
var ErrStoreUnavailable = errors.New("model store is not available")

// Registry service type
type Registry struct {
	logger glog.Logger
	dao    *dao.Registry
}

// New create new registry service. dao may be nil when the store was
// never configured; every operation then fails with ErrStoreUnavailable.
func New(logger glog.Logger, d *dao.Registry) *Registry {
	return &Registry{
		logger: logger,
		dao:    d,
	}
}

func (s *Registry) guardStore() error {
	if s.dao == nil {
		return ErrStoreUnavailable
	}
	return nil
}

// ActivateFile stores the uploaded archive base64-encoded and makes it
// the single active source. The returned projection never carries the
// encoded payload.
func (s *Registry) ActivateFile(ctx context.Context,
	filename, contentType string, content []byte,
) (*dto.UploadedModel, error) {
	if err := validateArchiveName(filename); err != nil {
		return nil, err
	}
	if len(content) == 0 {
		return nil, &model.ValidationError{Reason: "empty file"}
	}
	if contentType == "" {
		contentType = "application/zip"
	}

	doc, err := model.NewModelFile(filename, int64(len(content)), contentType,
		base64.StdEncoding.EncodeToString(content))
	if err != nil {
		return nil, err
	}

	// input is valid, now the store may be touched
	if err := s.guardStore(); err != nil {
		return nil, err
	}
	if err := s.deactivateAll(ctx); err != nil {
		return nil, err
	}

	ret, err := s.dao.FilesCol().InsertOne(ctx, doc)
	if err != nil {
		return nil, errors.Wrap(err, "insert model file")
	}

	id, _ := ret.InsertedID.(primitive.ObjectID)
	s.logger.Info("activated uploaded model",
		zap.String("id", id.Hex()),
		zap.String("name", doc.Name),
		zap.Int64("size", doc.Size),
	)

	return &dto.UploadedModel{
		ID:          id.Hex(),
		Type:        "db",
		Name:        doc.Name,
		Size:        doc.Size,
		ContentType: doc.ContentType,
		Active:      true,
	}, nil
}

// ActivateURL registers an external model URL and makes it the single
// active source.
func (s *Registry) ActivateURL(ctx context.Context, rawURL string) (*dto.ActivatedURL, error) {
	cfg, err := model.NewModelConfig(model.SourceTypeURL, rawURL)
	if err != nil {
		return nil, err
	}

	if err := s.guardStore(); err != nil {
		return nil, err
	}
	if err := s.deactivateAll(ctx); err != nil {
		return nil, err
	}

	ret, err := s.dao.ConfigsCol().InsertOne(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "insert model config")
	}

	id, _ := ret.InsertedID.(primitive.ObjectID)
	s.logger.Info("activated model url",
		zap.String("id", id.Hex()),
		zap.String("url", cfg.URL),
	)

	return &dto.ActivatedURL{
		ID:     id.Hex(),
		Type:   model.SourceTypeURL,
		URL:    cfg.URL,
		Active: true,
	}, nil
}

// GetActive returns the current active source, URL configs taking
// precedence over stored archives. A nil source with nil error is the
// valid "no active source" state.
func (s *Registry) GetActive(ctx context.Context) (model.ModelSource, error) {
	if err := s.guardStore(); err != nil {
		return nil, err
	}

	byRecency := options.FindOne().SetSort(bson.D{{Key: "updated_at", Value: -1}})

	cfg := new(model.ModelConfig)
	err := s.dao.ConfigsCol().
		FindOne(ctx, bson.M{"active": true}, byRecency).
		Decode(cfg)
	if err == nil {
		s.reconcileActives(ctx, cfg.ID, true)
		return cfg, nil
	}
	if !mongoSDK.NotFound(err) {
		return nil, errors.Wrap(err, "find active model config")
	}

	file := new(model.ModelFile)
	err = s.dao.FilesCol().
		FindOne(ctx, bson.M{"active": true}, byRecency).
		Decode(file)
	if err == nil {
		s.reconcileActives(ctx, file.ID, false)
		return file, nil
	}
	if !mongoSDK.NotFound(err) {
		return nil, errors.Wrap(err, "find active model file")
	}

	return nil, nil
}

// reconcileActives deactivates every active record other than the
// winner. Concurrent activations can leave more than one active record
// behind (no cross-collection transaction); the most recently updated
// one is authoritative. Best effort: failures are logged, the read
// still succeeds.
func (s *Registry) reconcileActives(ctx context.Context, winner primitive.ObjectID, winnerIsConfig bool) {
	now := time.Now().UTC()
	update := bson.M{"$set": bson.M{"active": false, "updated_at": now}}

	losers := bson.M{"active": true, "_id": bson.M{"$ne": winner}}
	var stale int64

	if winnerIsConfig {
		// an active config shadows any active file as well
		ret, err := s.dao.FilesCol().UpdateMany(ctx, bson.M{"active": true}, update)
		if err != nil {
			s.logger.Warn("reconcile active model files", zap.Error(err))
		} else {
			stale += ret.ModifiedCount
		}
		ret, err = s.dao.ConfigsCol().UpdateMany(ctx, losers, update)
		if err != nil {
			s.logger.Warn("reconcile active model configs", zap.Error(err))
		} else {
			stale += ret.ModifiedCount
		}
	} else {
		ret, err := s.dao.FilesCol().UpdateMany(ctx, losers, update)
		if err != nil {
			s.logger.Warn("reconcile active model files", zap.Error(err))
		} else {
			stale += ret.ModifiedCount
		}
	}

	if stale > 0 {
		s.logger.Warn("deactivated stale active records",
			zap.Int64("n", stale),
			zap.String("winner", winner.Hex()),
		)
	}
}

// ListFiles returns the most recently updated archives, newest first,
// without the encoded payload.
func (s *Registry) ListFiles(ctx context.Context, limit int64) ([]*dto.FileMeta, error) {
	if err := s.guardStore(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}

	cur, err := s.dao.FilesCol().Find(ctx, bson.M{},
		options.Find().
			SetProjection(bson.M{"data_b64": 0}).
			SetSort(bson.D{{Key: "updated_at", Value: -1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, errors.Wrap(err, "find model files")
	}
	defer cur.Close(ctx)

	var files []*model.ModelFile
	if err = cur.All(ctx, &files); err != nil {
		return nil, errors.Wrap(err, "load model files")
	}

	metas := make([]*dto.FileMeta, 0, len(files))
	for _, f := range files {
		metas = append(metas, &dto.FileMeta{
			ID:          f.ID.Hex(),
			Name:        f.Name,
			Size:        f.Size,
			ContentType: f.ContentType,
			Active:      f.Active,
			UpdatedAt:   f.UpdatedAt,
		})
	}

	return metas, nil
}

// deactivateAll flips every active record in both collections to
// inactive. Together with the following insert this spans two-to-three
// store calls without a transaction; the window is documented and the
// next activation (or GetActive reconciliation) heals it.
func (s *Registry) deactivateAll(ctx context.Context) error {
	now := time.Now().UTC()
	update := bson.M{"$set": bson.M{"active": false, "updated_at": now}}

	if _, err := s.dao.FilesCol().UpdateMany(ctx, bson.M{"active": true}, update); err != nil {
		return errors.Wrap(err, "deactivate model files")
	}
	if _, err := s.dao.ConfigsCol().UpdateMany(ctx, bson.M{"active": true}, update); err != nil {
		return errors.Wrap(err, "deactivate model configs")
	}

	return nil
}
