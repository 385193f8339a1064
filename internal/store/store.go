// Package store holds the Badger-backed TTL caches: external lookup answers
// and generated home feeds.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// Options configures the cache store.
type Options struct {
	// Path is the Badger directory. Empty runs in memory.
	Path string
	// LookupTTL is how long a found lookup answer is kept.
	LookupTTL time.Duration
	// MissTTL is how long a "no match" answer is kept.
	MissTTL time.Duration
	// FeedTTL is how long a generated home feed is kept.
	FeedTTL time.Duration
}

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	lookupTTL time.Duration
	missTTL   time.Duration
	feedTTL   time.Duration
}

// New opens the cache store.
func New(opts Options, logger *slog.Logger) (*Store, error) {
	var bopts badger.Options
	if opts.Path == "" {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		bopts = badger.DefaultOptions(opts.Path)
		bopts.CompactL0OnClose = true // Compact L0 tables on close for faster startup
	}
	bopts.Logger = nil // Disable Badger's internal logging

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	if opts.LookupTTL <= 0 {
		opts.LookupTTL = 7 * 24 * time.Hour
	}
	if opts.MissTTL <= 0 {
		opts.MissTTL = 6 * time.Hour
	}
	if opts.FeedTTL <= 0 {
		opts.FeedTTL = 24 * time.Hour
	}

	if logger != nil {
		logger.Info("Badger cache opened", "path", opts.Path, "in_memory", opts.Path == "")
	}

	return &Store{
		db:        db,
		logger:    logger,
		lookupTTL: opts.LookupTTL,
		missTTL:   opts.MissTTL,
		feedTTL:   opts.FeedTTL,
	}, nil
}

// Close gracefully closes the database.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("Closing cache store")
	}
	return s.db.Close()
}

// Ping verifies the database is usable.
func (s *Store) Ping() error {
	if s.db.IsClosed() {
		return errors.New("badger closed")
	}
	return s.db.View(func(*badger.Txn) error { return nil })
}

// getJSON reads key into v. It reports false when the key is absent or
// expired.
func (s *Store) getJSON(ctx context.Context, key []byte, v any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// setJSON writes v under key with a TTL.
func (s *Store) setJSON(ctx context.Context, key []byte, v any, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(key, data).WithTTL(ttl))
	})
}

// deleteKey removes key. Missing keys are not an error.
func (s *Store) deleteKey(ctx context.Context, key []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}
