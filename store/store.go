package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrDocNotFound is returned by Get, Update and field-path operations when
// the addressed document does not exist.
var ErrDocNotFound = errors.New("document not found")

// DeleteField is the sentinel value for Update: assigning it to a field path
// removes that path from the document.
var DeleteField = deleteSentinel{}

type deleteSentinel struct{}

// Document is a single JSON document in a named collection. Sub-collections
// (e.g. an event's attendees) are plain collections with a path-style name
// like "events/{id}/attendees".
type Document struct {
	ID         uint           `gorm:"primaryKey"`
	Collection string         `gorm:"uniqueIndex:idx_collection_doc;index;not null"`
	DocID      string         `gorm:"uniqueIndex:idx_collection_doc;not null"`
	Data       datatypes.JSON `gorm:"not null"`
	CreatedAt  time.Time      `gorm:"autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime:nano"`
}

// Doc is a decoded document handed back to callers.
type Doc struct {
	ID   string
	Data map[string]interface{}
}

// Store is the document-store collaborator. Writes are linearizable per
// document (each runs in its own transaction); there is no atomicity across
// documents — multi-document workflows in the service layer are sequences of
// independent calls.
type Store struct {
	DB *gorm.DB
}

func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&Document{}); err != nil {
		return nil, fmt.Errorf("failed to migrate document table: %w", err)
	}
	return &Store{DB: db}, nil
}

// lockRow adds FOR UPDATE to a read that precedes a whole-column rewrite.
// Without it, two concurrent writers on Postgres both read the same version
// and the later commit erases the earlier one's fields. SQLite rejects the
// syntax and serializes writers on its own, so it is skipped there.
func lockRow(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// Get returns the document's decoded data, or ErrDocNotFound.
func (s *Store) Get(ctx context.Context, collection, docID string) (map[string]interface{}, error) {
	var row Document
	err := s.DB.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, docID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDocNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeData(row.Data)
}

// Exists reports whether the document is present without decoding it.
func (s *Store) Exists(ctx context.Context, collection, docID string) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&Document{}).
		Where("collection = ? AND doc_id = ?", collection, docID).
		Count(&count).Error
	return count > 0, err
}

// Set creates or overwrites a document. With merge=true the given fields are
// folded into the existing document (nested maps merged recursively, every
// other value replaced); a missing document is created either way.
func (s *Store) Set(ctx context.Context, collection, docID string, fields map[string]interface{}, merge bool) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row Document
		err := lockRow(tx).Where("collection = ? AND doc_id = ?", collection, docID).First(&row).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			data, err := encodeData(fields)
			if err != nil {
				return err
			}
			return tx.Create(&Document{Collection: collection, DocID: docID, Data: data}).Error
		case err != nil:
			return err
		}

		next := fields
		if merge {
			current, err := decodeData(row.Data)
			if err != nil {
				return err
			}
			next = mergeMaps(current, fields)
		}
		data, err := encodeData(next)
		if err != nil {
			return err
		}
		row.Data = data
		return tx.Save(&row).Error
	})
}

// Update applies field-level changes to an existing document. Keys may be
// dotted paths into nested maps; intermediate maps are created as needed, and
// DeleteField removes the addressed path. Fails with ErrDocNotFound when the
// document is missing.
func (s *Store) Update(ctx context.Context, collection, docID string, fields map[string]interface{}) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row Document
		err := lockRow(tx).Where("collection = ? AND doc_id = ?", collection, docID).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDocNotFound
		}
		if err != nil {
			return err
		}

		doc, err := decodeData(row.Data)
		if err != nil {
			return err
		}
		for path, value := range fields {
			applyFieldPath(doc, strings.Split(path, "."), value)
		}
		data, err := encodeData(doc)
		if err != nil {
			return err
		}
		row.Data = data
		return tx.Save(&row).Error
	})
}

// Delete removes a document. Deleting a missing document is a no-op.
func (s *Store) Delete(ctx context.Context, collection, docID string) error {
	return s.DB.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, docID).
		Delete(&Document{}).Error
}

// DeleteCollection removes every document in a collection (e.g. the attendee
// sub-collection during event deletion).
func (s *Store) DeleteCollection(ctx context.Context, collection string) error {
	return s.DB.WithContext(ctx).
		Where("collection = ?", collection).
		Delete(&Document{}).Error
}

// List returns all documents of a collection ordered by document id.
func (s *Store) List(ctx context.Context, collection string) ([]Doc, error) {
	var rows []Document
	err := s.DB.WithContext(ctx).
		Where("collection = ?", collection).
		Order("doc_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return decodeRows(rows)
}

// Count returns the number of documents in a collection.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&Document{}).
		Where("collection = ?", collection).
		Count(&count).Error
	return int(count), err
}

// QueryEqual returns the documents whose top-level field equals value.
func (s *Store) QueryEqual(ctx context.Context, collection, field string, value interface{}) ([]Doc, error) {
	var rows []Document
	err := s.DB.WithContext(ctx).
		Where("collection = ?", collection).
		Where(datatypes.JSONQuery("data").Equals(value, field)).
		Order("doc_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return decodeRows(rows)
}

// UpdatedSince returns documents written after the cursor, oldest first. Used
// by the XP resync worker's incremental sweep.
func (s *Store) UpdatedSince(ctx context.Context, collection string, since time.Time) ([]Doc, error) {
	var rows []Document
	err := s.DB.WithContext(ctx).
		Where("collection = ? AND updated_at > ?", collection, since).
		Order("updated_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return decodeRows(rows)
}

// LastUpdatedAt returns the newest write time in a collection, or the zero
// time for an empty collection.
func (s *Store) LastUpdatedAt(ctx context.Context, collection string) (time.Time, error) {
	var row Document
	err := s.DB.WithContext(ctx).
		Where("collection = ?", collection).
		Order("updated_at DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return row.UpdatedAt, nil
}

func decodeRows(rows []Document) ([]Doc, error) {
	docs := make([]Doc, 0, len(rows))
	for _, row := range rows {
		data, err := decodeData(row.Data)
		if err != nil {
			return nil, err
		}
		docs = append(docs, Doc{ID: row.DocID, Data: data})
	}
	return docs, nil
}

func encodeData(fields map[string]interface{}) (datatypes.JSON, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return datatypes.JSON(raw), nil
}

func decodeData(data datatypes.JSON) (map[string]interface{}, error) {
	doc := map[string]interface{}{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return doc, nil
}

// mergeMaps folds incoming into current, merging nested maps and replacing
// everything else (arrays included).
func mergeMaps(current, incoming map[string]interface{}) map[string]interface{} {
	for key, value := range incoming {
		incomingMap, incomingOK := value.(map[string]interface{})
		currentMap, currentOK := current[key].(map[string]interface{})
		if incomingOK && currentOK {
			current[key] = mergeMaps(currentMap, incomingMap)
			continue
		}
		current[key] = value
	}
	return current
}

func applyFieldPath(doc map[string]interface{}, path []string, value interface{}) {
	key := path[0]
	if len(path) == 1 {
		if _, isDelete := value.(deleteSentinel); isDelete {
			delete(doc, key)
			return
		}
		doc[key] = value
		return
	}
	child, ok := doc[key].(map[string]interface{})
	if !ok {
		if _, isDelete := value.(deleteSentinel); isDelete {
			return // nothing to delete under a missing branch
		}
		child = map[string]interface{}{}
		doc[key] = child
	}
	applyFieldPath(child, path[1:], value)
}
