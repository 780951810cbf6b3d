package mongo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/docuconvo/auth/pkg/mongo"
)

func TestConnect_InvalidURL(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := mongo.Connect(ctx, mongo.Config{
		ConnectionURL: "not-a-mongo-url",
		RetryAttempts: 1,
		RetryInterval: time.Millisecond,
	})
	assert.ErrorIs(t, err, mongo.ErrFailedToConnectToMongo)
}
