package mongostore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/talkincode/shopsync/internal/backend"
	"github.com/talkincode/shopsync/internal/backend/backendtest"
)

// These tests need a reachable server, e.g.
// SHOPSYNC_TEST_MONGO_URI=mongodb://localhost:27017 go test ./internal/backend/mongostore
func TestConformance(t *testing.T) {
	uri := os.Getenv("SHOPSYNC_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("SHOPSYNC_TEST_MONGO_URI not set")
	}
	n := 0
	backendtest.Run(t, func(t *testing.T) backend.Backend {
		n++
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s, err := Open(ctx, Options{URI: uri, Database: fmt.Sprintf("shopsync_test_%d_%d", time.Now().UnixNano(), n)})
		require.NoError(t, err)
		t.Cleanup(func() {
			_ = s.Drop(context.Background())
			_ = s.Close()
		})
		return s
	})
}
