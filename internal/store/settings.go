package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const tokenSecretKey = "token_secret"

// SecretKeeper persists the token signing secret next to the bags, so that
// issued tokens survive a restart.
type SecretKeeper interface {
	// TokenSecret stores candidate if no secret exists yet and returns the
	// stored secret.
	TokenSecret(ctx context.Context, candidate string) (string, error)
}

// TokenSecret inserts candidate unless a secret is already stored, then
// reads back whichever value won. Concurrent first starts agree on one value.
func (s *SQLBags) TokenSecret(ctx context.Context, candidate string) (string, error) {
	_, err := s.DB.ExecContext(ctx, s.Dialect.Rebind(
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT (key) DO NOTHING`),
		tokenSecretKey, candidate,
	)
	if err != nil {
		return "", storageError("token secret", fmt.Errorf("storing %s: %w", tokenSecretKey, err))
	}

	var secret string
	err = s.DB.QueryRowContext(ctx, s.Dialect.Rebind(
		`SELECT value FROM settings WHERE key = ?`), tokenSecretKey,
	).Scan(&secret)
	if err != nil {
		return "", storageError("token secret", fmt.Errorf("querying %s: %w", tokenSecretKey, err))
	}
	return secret, nil
}

// TokenSecret upserts the secret document with $setOnInsert so an existing
// value is never replaced.
func (s *MongoBags) TokenSecret(ctx context.Context, candidate string) (string, error) {
	var doc struct {
		Value string `bson:"value"`
	}
	err := s.settings.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: tokenSecretKey}},
		bson.D{{Key: "$setOnInsert", Value: bson.D{{Key: "value", Value: candidate}}}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return "", storageError("token secret", fmt.Errorf("storing %s: %w", tokenSecretKey, err))
	}
	return doc.Value, nil
}
