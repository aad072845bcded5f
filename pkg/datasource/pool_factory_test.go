package datasource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPostgresPoolFactory_BadConnString(t *testing.T) {
	cfg := PoolConfig{MaxConns: 2, MinConns: 1, MaxIdleTime: time.Minute}

	_, err := PostgresPoolFactory(context.Background(), "://not-a-dsn", cfg)

	assert.Error(t, err, "unparseable connection string must fail before any dial")
}
