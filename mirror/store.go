package mirror

import (
	"context"
	"errors"
	"fmt"

	"github.com/nightout-app/server/apperr"
	"github.com/nightout-app/server/db/sqlite"
	"github.com/nightout-app/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is a local, embedded mirror of the remote schema. All writes
// funnel through a single serialized loop so sqlite never sees concurrent
// writers; reads go straight to the snapshot. Upserts are idempotent and
// last-write-wins, so replaying a stale or duplicated batch converges to
// the same rows.
type Store struct {
	db     *gorm.DB
	writes chan writeReq
	done   chan struct{}
	logger *zap.Logger
}

type writeReq struct {
	fn    func(tx *gorm.DB) error
	reply chan error
}

// Open opens (or creates) a mirror at path. An empty path opens an
// in-memory mirror.
func Open(path string, logger *zap.Logger) (*Store, error) {
	var gdb *gorm.DB
	var err error
	if path == "" {
		gdb, err = sqlite.OpenMemory()
	} else {
		gdb, err = sqlite.Open(path)
	}
	if err != nil {
		return nil, fmt.Errorf("open mirror: %w", err)
	}
	if err := model.AutoMigrate(gdb); err != nil {
		return nil, fmt.Errorf("migrate mirror: %w", err)
	}

	s := &Store{
		db:     gdb,
		writes: make(chan writeReq, 64),
		done:   make(chan struct{}),
		logger: logger,
	}
	go s.writeLoop()
	return s, nil
}

func (s *Store) writeLoop() {
	for req := range s.writes {
		req.reply <- req.fn(s.db)
	}
	close(s.done)
}

// Close drains pending writes and stops the writer.
func (s *Store) Close() {
	close(s.writes)
	<-s.done
}

func (s *Store) submit(ctx context.Context, fn func(tx *gorm.DB) error) error {
	req := writeReq{fn: fn, reply: make(chan error, 1)}
	select {
	case s.writes <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Upsert inserts or replaces rows by primary key. Values must be a model
// pointer or a slice of models. Applying the same rows twice leaves a
// single copy with the latest values.
func (s *Store) Upsert(ctx context.Context, values interface{}) error {
	return s.submit(ctx, func(tx *gorm.DB) error {
		return tx.WithContext(ctx).
			Clauses(clause.OnConflict{UpdateAll: true}).
			Create(values).Error
	})
}

// DeleteNight removes a night and all its owned children.
func (s *Store) DeleteNight(ctx context.Context, nightID int64) error {
	return s.submit(ctx, func(tx *gorm.DB) error {
		return tx.WithContext(ctx).Transaction(func(txn *gorm.DB) error {
			for _, child := range model.NightChildren {
				if err := txn.Where("night_id = ?", nightID).Delete(child).Error; err != nil {
					return err
				}
			}
			return txn.Delete(&model.Night{}, nightID).Error
		})
	})
}

// Wipe clears every mirrored table (sign-out).
func (s *Store) Wipe(ctx context.Context) error {
	return s.submit(ctx, func(tx *gorm.DB) error {
		for _, child := range model.NightChildren {
			if err := tx.WithContext(ctx).Where("1 = 1").Delete(child).Error; err != nil {
				return err
			}
		}
		if err := tx.WithContext(ctx).Where("1 = 1").Delete(&model.Night{}).Error; err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Where("1 = 1").Delete(&model.Friendship{}).Error; err != nil {
			return err
		}
		return tx.WithContext(ctx).Where("1 = 1").Delete(&model.Profile{}).Error
	})
}

// ---- snapshot reads ----

// Profile returns the mirrored profile, if present.
func (s *Store) Profile(ctx context.Context, id int64) (*model.Profile, error) {
	var p model.Profile
	err := s.db.WithContext(ctx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("profile %d not mirrored", id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Night returns a mirrored night by id.
func (s *Store) Night(ctx context.Context, id int64) (*model.Night, error) {
	var n model.Night
	err := s.db.WithContext(ctx).First(&n, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("night %d not mirrored", id)
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// Nights returns mirrored nights for a profile, newest first.
func (s *Store) Nights(ctx context.Context, profileID int64) ([]model.Night, error) {
	var nights []model.Night
	err := s.db.WithContext(ctx).
		Where("profile_id = ?", profileID).
		Order("started_at DESC").
		Find(&nights).Error
	return nights, err
}

// ActiveNight returns the profile's mirrored active night, if any.
func (s *Store) ActiveNight(ctx context.Context, profileID int64) (*model.Night, error) {
	var n model.Night
	err := s.db.WithContext(ctx).
		Where("profile_id = ? AND ended_at IS NULL", profileID).
		Order("started_at DESC").
		First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("no active night mirrored")
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// Drinks returns a night's mirrored drinks in pour order.
func (s *Store) Drinks(ctx context.Context, nightID int64) ([]model.Drink, error) {
	var drinks []model.Drink
	err := s.db.WithContext(ctx).
		Where("night_id = ?", nightID).
		Order("logged_at ASC").
		Find(&drinks).Error
	return drinks, err
}

// Comments returns a night's mirrored comments, oldest first.
func (s *Store) Comments(ctx context.Context, nightID int64) ([]model.Comment, error) {
	var comments []model.Comment
	err := s.db.WithContext(ctx).
		Where("night_id = ?", nightID).
		Order("created_at ASC").
		Find(&comments).Error
	return comments, err
}

// Friendships returns the profile's mirrored friendship rows.
func (s *Store) Friendships(ctx context.Context, profileID int64) ([]model.Friendship, error) {
	var rows []model.Friendship
	err := s.db.WithContext(ctx).
		Where("requester_id = ? OR addressee_id = ?", profileID, profileID).
		Find(&rows).Error
	return rows, err
}
