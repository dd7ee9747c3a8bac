// Package memorystorage provides a volatile storage used when no database
// or file is configured.
package memorystorage

import (
	"context"

	"github.com/patric-chuzhbe/essayshare/internal/db/jsondb"
)

type MemoryStorage struct {
	*jsondb.JSONDB
}

func New(optionsProto ...jsondb.InitOption) (*MemoryStorage, error) {
	db, err := jsondb.New("", optionsProto...)
	if err != nil {
		return nil, err
	}

	return &MemoryStorage{JSONDB: db}, nil
}

func (theStorage *MemoryStorage) Close() error {
	return nil
}

func (theStorage *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}
