// Package store caches normalized email records in a local SQLite
// database so agents can re-read fetched mail without another round
// trip to the IMAP server. The cache is strictly a copy of core
// output; nothing in it feeds back into normalization.
package store

import (
	"context"

	"github.com/nhle/mailbridge/internal/model"
)

// MessageFilter controls filtering and pagination for cache queries.
type MessageFilter struct {
	Account string
	Mailbox string
	Query   string // substring match on subject
	Limit   int
	Offset  int
}

// Store is the persistence interface for the normalized-message cache.
type Store interface {
	UpsertMessages(ctx context.Context, account string, msgs []model.NormalizedEmail) error
	GetMessage(ctx context.Context, account, mailbox, id string) (*model.NormalizedEmail, error)
	ListMessages(ctx context.Context, f MessageFilter) ([]model.NormalizedEmail, error)
	Close() error
}
