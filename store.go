package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ocrtext/pkg/ocr"

	"github.com/gofiber/storage/memory/v2"
)

var errResultNotFound = errors.New("result not found or expired")

// storedPage is the per-page part of a stored result. Overlays are kept under
// their own keys.
type storedPage struct {
	Index      int    `json:"index"`
	Raw        string `json:"raw"`
	Cleaned    string `json:"cleaned"`
	Regions    int    `json:"regions"`
	Skipped    int    `json:"skipped"`
	HasOverlay bool   `json:"has_overlay"`
}

// storedResult is what the download and result endpoints serve.
type storedResult struct {
	ID          string        `json:"id"`
	FileName    string        `json:"file_name"`
	Kind        ocr.InputKind `json:"kind"`
	Language    ocr.Language  `json:"language"`
	Handwritten bool          `json:"handwritten"`
	Engine      string        `json:"engine"`
	Raw         string        `json:"raw"`
	Cleaned     string        `json:"cleaned"`
	Pages       []storedPage  `json:"pages"`
	Error       string        `json:"error,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	ExpiresAt   time.Time     `json:"expires_at"`
}

// resultStore keeps extraction results in memory for a limited time.
type resultStore struct {
	storage *memory.Storage
	ttl     time.Duration
}

func newResultStore(ttl time.Duration) *resultStore {
	gc := ttl / 2
	if gc < time.Second {
		gc = time.Second
	}
	if gc > 10*time.Minute {
		gc = 10 * time.Minute
	}
	return &resultStore{storage: memory.New(memory.Config{GCInterval: gc}), ttl: ttl}
}

func resultKey(id string) string { return "result:" + id }

func overlayKey(id string, page int) string { return fmt.Sprintf("overlay:%s:%d", id, page) }

// Save stores r and the overlay PNG of each page that has one.
func (s *resultStore) Save(r *storedResult, overlays map[int][]byte) error {
	r.ExpiresAt = r.CreatedAt.Add(s.ttl)
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	if err := s.storage.Set(resultKey(r.ID), data, s.ttl); err != nil {
		return err
	}
	for page, png := range overlays {
		if err := s.storage.Set(overlayKey(r.ID, page), png, s.ttl); err != nil {
			return err
		}
	}
	return nil
}

func (s *resultStore) Load(id string) (*storedResult, error) {
	data, err := s.storage.Get(resultKey(id))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, errResultNotFound
	}
	var r storedResult
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *resultStore) Overlay(id string, page int) ([]byte, error) {
	data, err := s.storage.Get(overlayKey(id, page))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, errResultNotFound
	}
	return data, nil
}

func (s *resultStore) Close() error { return s.storage.Close() }
