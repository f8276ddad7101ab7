package commonModels

import (
	"context"
	"time"
)

type Document struct {
	Id          string    `json:"id"`
	Name        string    `json:"filename"`
	Status      string    `json:"status"`
	TotalPages  int       `json:"total_pages"`
	ContentType DocType   `json:"content_type"`
	SizeBytes   int64     `json:"file_size"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type DocType string

var PDF DocType = "PDF"
var DOCX DocType = "DOCX"
var RTF DocType = "RTF"
var TXT DocType = "TXT"
var ERR DocType = "ERROR"

// cache keys used by the document views
const DocumentListKey = "documents"

func DocumentKey(id string) string {
	return "document:" + id
}

// DocumentCache is the cache the document views read from.
type DocumentCache interface {
	Invalidate(ctx context.Context, key string) error
	SetValue(ctx context.Context, key string, value []byte) error
	GetValue(ctx context.Context, key string) ([]byte, bool, error)
}

// DocumentSource fetches the finalized documents from the backend.
type DocumentSource interface {
	GetDocument(ctx context.Context, id string) (Document, error)
	ListDocuments(ctx context.Context) ([]Document, error)
}
