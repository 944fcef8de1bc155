// Package gormstore implements [store.BlockStore] on gorm, for sqlite and PostgreSQL.
//
// The schema is created by gorm's AutoMigrate from the tags on [models.Page] and
// [models.Block]: the blocks table has nullable parent, next_sibling and page columns,
// each a foreign key with ON DELETE SET NULL. pages.first_block carries no foreign
// key.
//
// Usage:
//
//	st, err := gormstore.Open("sqlite://outline.db", gormstore.Options{Logger: log})
//	if err != nil {
//		return err
//	}
//	defer st.Close()
//
//	if err := st.Migrate(ctx); err != nil {
//		return err
//	}
package gormstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/surrealdb/surrealoutline/pkg/models"
	"github.com/surrealdb/surrealoutline/pkg/store"
)

// Store implements store.BlockStore using gorm.
type Store struct {
	db  *gorm.DB
	log zerolog.Logger
}

var _ store.BlockStore = (*Store)(nil)

// New wraps an open gorm connection.
func New(db *gorm.DB, log zerolog.Logger) *Store {
	return &Store{db: db, log: log}
}

// DB returns the underlying connection.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&models.Page{}, &models.Block{}); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) InsertBlock(ctx context.Context, content string, parentID, nextSiblingID *models.BlockID, pageID *models.PageID) (models.BlockID, error) {
	b := models.Block{Content: content, ParentID: parentID, NextSiblingID: nextSiblingID, PageID: pageID}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&b).Error; err != nil {
		return 0, fmt.Errorf("failed to insert block: %w", translate(err))
	}
	return b.ID, nil
}

func (s *Store) UpdateBlock(ctx context.Context, patch models.BlockPatch) error {
	return updateBlock(s.db.WithContext(ctx), patch)
}

func (s *Store) DeleteBlock(ctx context.Context, id models.BlockID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteBlock(tx, id)
	})
}

func (s *Store) InsertPage(ctx context.Context, title string, rootBlockID *models.BlockID) (models.PageID, error) {
	p := models.Page{Title: title, RootBlockID: rootBlockID}
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return 0, fmt.Errorf("failed to insert page: %w", translate(err))
	}
	return p.ID, nil
}

func (s *Store) UpdatePage(ctx context.Context, id models.PageID, patch models.PagePatch) error {
	return updatePage(s.db.WithContext(ctx), id, patch)
}

func (s *Store) DeletePage(ctx context.Context, id models.PageID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Block{}).Where("page = ?", id).Update("page", nil).Error; err != nil {
			return translate(err)
		}
		res := tx.Where("id = ?", id).Delete(&models.Page{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete page %s: %w", id, translate(res.Error))
		}
		if res.RowsAffected == 0 {
			return store.NotFound("page", id)
		}
		return nil
	})
}

func (s *Store) GetPage(ctx context.Context, id models.PageID) (*models.Page, error) {
	var pages []models.Page
	if err := s.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&pages).Error; err != nil {
		return nil, fmt.Errorf("failed to get page %s: %w", id, translate(err))
	}
	if len(pages) == 0 {
		return nil, nil
	}
	return &pages[0], nil
}

func (s *Store) ListPages(ctx context.Context) ([]models.Page, error) {
	var pages []models.Page
	if err := s.db.WithContext(ctx).Order("id").Find(&pages).Error; err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", translate(err))
	}
	return pages, nil
}

func (s *Store) FetchBlocksForPage(ctx context.Context, pageID models.PageID) ([]models.Block, error) {
	var blocks []models.Block
	if err := s.db.WithContext(ctx).Where("page = ?", pageID).Find(&blocks).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch blocks of page %s: %w", pageID, translate(err))
	}
	return blocks, nil
}

// Apply writes the change set in one transaction.
func (s *Store) Apply(ctx context.Context, cs models.ChangeSet) error {
	log := s.log.With().Str("batch", cs.BatchID.String()).Stringer("page", cs.PageID).Logger()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, patch := range cs.Updates {
			if err := updateBlock(tx, patch); err != nil {
				return err
			}
		}
		for _, id := range cs.Deletes {
			if err := deleteBlock(tx, id); err != nil {
				return err
			}
		}
		if cs.RootBlockID.Set || cs.Title.Set {
			if err := updatePage(tx, cs.PageID, cs.PagePatch()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Msg("change set rolled back")
		return err
	}
	log.Debug().Int("updates", len(cs.Updates)).Int("deletes", len(cs.Deletes)).Msg("change set applied")
	return nil
}

func updateBlock(db *gorm.DB, patch models.BlockPatch) error {
	values := map[string]any{}
	if v, ok := patch.Content.Get(); ok {
		values["content"] = v
	}
	if v, ok := patch.ParentID.Get(); ok {
		values["parent"] = nullable(v)
	}
	if v, ok := patch.NextSiblingID.Get(); ok {
		values["next_sibling"] = nullable(v)
	}
	if v, ok := patch.PageID.Get(); ok {
		if v == nil {
			values["page"] = nil
		} else {
			values["page"] = *v
		}
	}

	if len(values) == 0 {
		var n int64
		if err := db.Model(&models.Block{}).Where("id = ?", patch.ID).Count(&n).Error; err != nil {
			return translate(err)
		}
		if n == 0 {
			return store.NotFound("block", patch.ID)
		}
		return nil
	}

	res := db.Model(&models.Block{}).Where("id = ?", patch.ID).Updates(values)
	if res.Error != nil {
		return fmt.Errorf("failed to update block %s: %w", patch.ID, translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return store.NotFound("block", patch.ID)
	}
	return nil
}

// deleteBlock nulls the referrers itself so the result does not depend on the
// foreign_keys pragma of the sqlite connection.
func deleteBlock(db *gorm.DB, id models.BlockID) error {
	if err := db.Model(&models.Block{}).Where("parent = ?", id).Update("parent", nil).Error; err != nil {
		return translate(err)
	}
	if err := db.Model(&models.Block{}).Where("next_sibling = ?", id).Update("next_sibling", nil).Error; err != nil {
		return translate(err)
	}
	res := db.Where("id = ?", id).Delete(&models.Block{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete block %s: %w", id, translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return store.NotFound("block", id)
	}
	return nil
}

func updatePage(db *gorm.DB, id models.PageID, patch models.PagePatch) error {
	values := map[string]any{}
	if v, ok := patch.Title.Get(); ok {
		values["title"] = v
	}
	if v, ok := patch.RootBlockID.Get(); ok {
		values["first_block"] = nullable(v)
	}
	if len(values) == 0 {
		var n int64
		if err := db.Model(&models.Page{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return translate(err)
		}
		if n == 0 {
			return store.NotFound("page", id)
		}
		return nil
	}
	res := db.Model(&models.Page{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return fmt.Errorf("failed to update page %s: %w", id, translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return store.NotFound("page", id)
	}
	return nil
}

func nullable(ref *models.BlockID) any {
	if ref == nil {
		return nil
	}
	return *ref
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return fmt.Errorf("%w: %w", store.ErrConstraint, err)
	}
	return err
}
