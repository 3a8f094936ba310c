package database

import (
	"log"

	"goal_tracker_backend/internal/config"

	badger "github.com/dgraph-io/badger/v4"
)

func InitBadger(cfg *config.StorageConfig) (*badger.DB, error) {
	path := cfg.BadgerPath
	if path == "" {
		path = "data/badger"
	}

	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	log.Println("Badger store opened at", path)
	return db, nil
}
