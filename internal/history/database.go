package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	recordsBucketName  = "results"
	failuresBucketName = "failures"
)

// ErrNotFound is returned when no record exists for an ID
var ErrNotFound = errors.New("not found")

// DB defines the interface for database operations
type DB interface {
	// SaveRecord saves a completed extraction, keyed by its result ID
	SaveRecord(record *Record) error

	// GetRecord retrieves a record by result ID
	GetRecord(id string) (*Record, error)

	// ListRecords returns all records
	ListRecords() ([]*Record, error)

	// DeleteRecord removes a record from the database
	DeleteRecord(id string) error

	// SaveFailure saves a failed extraction job
	SaveFailure(failure *Failure) error

	// ListFailures returns all failures
	ListFailures() ([]*Failure, error)

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{recordsBucketName, failuresBucketName} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

func (b *BoltDB) SaveRecord(record *Record) error {
	if record.Result == nil || record.Result.ID == "" {
		return fmt.Errorf("record has no result ID")
	}
	return b.put(recordsBucketName, record.Result.ID, record)
}

func (b *BoltDB) GetRecord(id string) (*Record, error) {
	var record *Record
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(recordsBucketName)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("result %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &record)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (b *BoltDB) ListRecords() ([]*Record, error) {
	return list[Record](b.db, recordsBucketName)
}

// DeleteRecord removes a record; deleting a missing ID reports ErrNotFound
func (b *BoltDB) DeleteRecord(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(recordsBucketName))
		if bucket.Get([]byte(id)) == nil {
			return fmt.Errorf("result %s: %w", id, ErrNotFound)
		}
		return bucket.Delete([]byte(id))
	})
}

func (b *BoltDB) SaveFailure(failure *Failure) error {
	return b.put(failuresBucketName, failure.ID, failure)
}

func (b *BoltDB) ListFailures() ([]*Failure, error) {
	return list[Failure](b.db, failuresBucketName)
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}

func (b *BoltDB) put(bucketName, id string, v any) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshaling %s entry: %w", bucketName, err)
		}
		return tx.Bucket([]byte(bucketName)).Put([]byte(id), data)
	})
}

func list[T any](db *bbolt.DB, bucketName string) ([]*T, error) {
	items := make([]*T, 0)
	err := db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).ForEach(func(k, v []byte) error {
			var item T
			if err := json.Unmarshal(v, &item); err != nil {
				return fmt.Errorf("unmarshaling %s entry %s: %w", bucketName, k, err)
			}
			items = append(items, &item)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}
