// Package jsondb keeps users and essays in memory and persists them as a
// JSON snapshot written on Close.
package jsondb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/essayshare/internal/essay"
	"github.com/patric-chuzhbe/essayshare/internal/models"
	"github.com/patric-chuzhbe/essayshare/internal/user"
)

// UserRecord is the persisted form of a user. Unlike user.User it keeps the digest.
type UserRecord struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

type CacheStruct struct {
	Users       map[string]*UserRecord
	Essays      map[int64]*essay.Essay
	NextUserID  int64
	NextEssayID int64
}

type JSONDB struct {
	fileName string
	mu       sync.RWMutex
	now      func() time.Time
	Cache    CacheStruct
}

// InitOption configures a JSONDB.
type InitOption func(*JSONDB)

// WithClock sets the time source used for created_at and updated_at.
func WithClock(now func() time.Time) InitOption {
	return func(db *JSONDB) {
		db.now = now
	}
}

// NewCache returns an empty cache.
func NewCache() CacheStruct {
	return CacheStruct{
		Users:       map[string]*UserRecord{},
		Essays:      map[int64]*essay.Essay{},
		NextUserID:  1,
		NextEssayID: 1,
	}
}

func initDBFile(fileName string) error {
	return writeToJSONFile(fileName, NewCache())
}

func writeToJSONFile(fileName string, cache interface{}) error {
	jsonData, err := json.MarshalIndent(cache, "", "\t")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %s", err)
	}

	file, err2 := os.OpenFile(fileName, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0644)
	if err2 != nil {
		return fmt.Errorf("error opening file: %s", err2)
	}
	defer file.Close()

	_, err = file.Write(jsonData)
	if err != nil {
		return fmt.Errorf("error writing to file: %s", err)
	}

	return nil
}

func parseJSONFile(fileName string, cache *CacheStruct) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	err = decoder.Decode(cache)
	if err != nil {
		return err
	}

	return nil
}

// New loads the snapshot from fileName, creating it when missing. An empty
// fileName keeps everything in memory.
func New(fileName string, optionsProto ...InitOption) (*JSONDB, error) {
	db := &JSONDB{
		fileName: fileName,
		now:      time.Now,
		Cache:    NewCache(),
	}
	for _, protoOption := range optionsProto {
		protoOption(db)
	}

	if fileName == "" {
		return db, nil
	}

	err := parseJSONFile(db.fileName, &db.Cache)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		err := initDBFile(fileName)
		if err != nil {
			return nil, err
		}
		err = parseJSONFile(db.fileName, &db.Cache)
		if err != nil {
			return nil, err
		}
	}
	db.fillMissing()

	return db, nil
}

func (db *JSONDB) fillMissing() {
	if db.Cache.Users == nil {
		db.Cache.Users = map[string]*UserRecord{}
	}
	if db.Cache.Essays == nil {
		db.Cache.Essays = map[int64]*essay.Essay{}
	}
	if db.Cache.NextUserID < 1 {
		db.Cache.NextUserID = 1
	}
	if db.Cache.NextEssayID < 1 {
		db.Cache.NextEssayID = 1
	}
}

func (db *JSONDB) timestamp() time.Time {
	return db.now().UTC()
}

func (db *JSONDB) Ping(ctx context.Context) error {
	return nil
}

// Close writes the snapshot to the file.
func (db *JSONDB) Close() error {
	if db.fileName == "" {
		return nil
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	return writeToJSONFile(db.fileName, db.Cache)
}

func (db *JSONDB) CreateUser(ctx context.Context, usr *user.User) (*user.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.Cache.Users[usr.Username]; exists {
		return nil, models.ErrDuplicateUsername
	}

	record := &UserRecord{
		ID:           db.Cache.NextUserID,
		Username:     usr.Username,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    db.timestamp(),
	}
	db.Cache.Users[usr.Username] = record
	db.Cache.NextUserID++

	return record.toUser(), nil
}

func (db *JSONDB) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	record, found := db.Cache.Users[username]
	if !found {
		return nil, models.ErrNotFound
	}

	return record.toUser(), nil
}

func (db *JSONDB) CreateEssay(ctx context.Context, e *essay.Essay) (*essay.Essay, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	createdAt := db.timestamp()
	stored := &essay.Essay{
		ID:        db.Cache.NextEssayID,
		Title:     e.Title,
		Content:   e.Content,
		UserID:    copyID(e.UserID),
		IsPublic:  e.IsPublic,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	db.Cache.Essays[stored.ID] = stored
	db.Cache.NextEssayID++

	return copyEssay(stored), nil
}

func (db *JSONDB) GetEssay(ctx context.Context, id int64) (*essay.Essay, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	stored, found := db.Cache.Essays[id]
	if !found {
		return nil, models.ErrNotFound
	}

	return copyEssay(stored), nil
}

func (db *JSONDB) ListPublicEssays(ctx context.Context) ([]essay.Essay, error) {
	return db.listEssays(func(e *essay.Essay) bool {
		return e.IsPublic
	}), nil
}

func (db *JSONDB) ListEssaysByOwner(ctx context.Context, userID int64) ([]essay.Essay, error) {
	return db.listEssays(func(e *essay.Essay) bool {
		return e.UserID != nil && *e.UserID == userID
	}), nil
}

func (db *JSONDB) UpdateEssay(ctx context.Context, id int64, fields essay.Fields) (*essay.Essay, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	stored, found := db.Cache.Essays[id]
	if !found {
		return nil, models.ErrNotFound
	}

	stored.Title = fields.Title
	stored.Content = fields.Content
	stored.IsPublic = fields.IsPublic
	stored.UpdatedAt = db.timestamp()

	return copyEssay(stored), nil
}

func (db *JSONDB) DeleteEssay(ctx context.Context, id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, found := db.Cache.Essays[id]; !found {
		return models.ErrNotFound
	}
	delete(db.Cache.Essays, id)

	return nil
}

func (db *JSONDB) GetEssayOwner(ctx context.Context, id int64) (*int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	stored, found := db.Cache.Essays[id]
	if !found {
		return nil, models.ErrNotFound
	}

	return copyID(stored.UserID), nil
}

func (db *JSONDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return int64(len(db.Cache.Users)), nil
}

func (db *JSONDB) GetNumberOfEssays(ctx context.Context) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return int64(len(db.Cache.Essays)), nil
}

func (db *JSONDB) listEssays(keep func(e *essay.Essay) bool) []essay.Essay {
	db.mu.RLock()
	defer db.mu.RUnlock()

	all := funk.Values(db.Cache.Essays).([]*essay.Essay)
	matching := funk.Filter(all, keep).([]*essay.Essay)

	result := make([]essay.Essay, 0, len(matching))
	for _, e := range matching {
		result = append(result, *copyEssay(e))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	return result
}

func (r *UserRecord) toUser() *user.User {
	return &user.User{
		ID:           r.ID,
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
	}
}

func copyEssay(e *essay.Essay) *essay.Essay {
	result := *e
	result.UserID = copyID(e.UserID)
	return &result
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	value := *id
	return &value
}
