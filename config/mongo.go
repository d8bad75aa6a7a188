package config

import (
	"context"
	"crypto/tls"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NewMongo connects and pings MongoDB. The caller owns the client and must
// Disconnect it on shutdown.
func NewMongo(ctx context.Context, cfg MongoConfig) (*mongo.Client, error) {
	if cfg.URI == "" {
		return nil, errors.New("MONGO_URI is not set")
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	clientOpts := options.Client().ApplyURI(cfg.URI).
		SetServerSelectionTimeout(20 * time.Second).
		SetConnectTimeout(15 * time.Second).
		SetMaxPoolSize(10).
		SetMinPoolSize(1)

	// Atlas clusters reject some Go 1.24 TLS defaults; pin 1.2 when asked.
	if cfg.ForceTLS {
		clientOpts = clientOpts.SetTLSConfig(&tls.Config{
			InsecureSkipVerify: cfg.InsecureTLS,
			MinVersion:         tls.VersionTLS12,
			MaxVersion:         tls.VersionTLS12,
		})
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return client, nil
}
