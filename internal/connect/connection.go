package connect

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/description"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	serverSelectionTimeout = 5 * time.Second
	socketTimeout          = 30 * time.Second
)

// Probe tracks whether any MongoDB server is currently reachable. The driver
// keeps it fresh through topology events, so reads are always current.
type Probe struct {
	up     atomic.Bool
	logger *slog.Logger
}

func NewProbe(logger *slog.Logger) *Probe {
	if logger == nil {
		logger = slog.Default()
	}
	return &Probe{logger: logger}
}

func (p *Probe) Connected() bool {
	return p != nil && p.up.Load()
}

func (p *Probe) set(up bool) {
	if p.up.Swap(up) == up {
		return
	}
	if up {
		p.logger.Info("MongoDB reachable, serving from the database")
	} else {
		p.logger.Warn("MongoDB unreachable, falling back to the in-memory store")
	}
}

func (p *Probe) monitor() *event.ServerMonitor {
	return &event.ServerMonitor{
		TopologyDescriptionChanged: func(e *event.TopologyDescriptionChangedEvent) {
			p.set(anyServerKnown(e.NewDescription.Servers))
		},
	}
}

func anyServerKnown(servers []description.Server) bool {
	for _, s := range servers {
		if s.Kind != description.Unknown {
			return true
		}
	}
	return false
}

// MongoDBConnect builds a client whose topology updates drive probe. An
// unreachable server is not an error: the client keeps retrying in the
// background and the probe flips once it answers.
func MongoDBConnect(ctx context.Context, uri string, probe *Probe) (*mongo.Client, error) {
	clientOptions := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(serverSelectionTimeout).
		SetSocketTimeout(socketTimeout).
		SetServerMonitor(probe.monitor())

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, serverSelectionTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		probe.logger.Warn("MongoDB ping failed, starting in memory mode", "error", err)
		return client, nil
	}
	probe.set(true)
	return client, nil
}

func MongoDBDisconnect(client *mongo.Client) error {
	if client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect MongoDB: %w", err)
	}
	return nil
}

// RedisConnect returns a client only when the server answers a ping.
func RedisConnect(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis at %s: %w", addr, err)
	}
	return client, nil
}
