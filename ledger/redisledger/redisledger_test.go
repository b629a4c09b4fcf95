package redisledger

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cryptotopic/client-go/ledger/ledgertest"
)

func TestLedger_Conformance(t *testing.T) {
	addr := os.Getenv("CRYPTOTOPIC_REDIS_ADDR")
	if addr == "" {
		t.Skip("CRYPTOTOPIC_REDIS_ADDR not set")
	}

	ctx := context.Background()
	l, err := New(ctx, Config{
		Addr:   addr,
		Prefix: fmt.Sprintf("cryptotopic-test-%d:", time.Now().UnixNano()),
	})
	require.NoError(t, err)
	defer l.Close()

	ledgertest.Run(t, l)
}

func TestNew_RequiresAddr(t *testing.T) {
	_, err := New(context.Background(), Config{})
	require.Error(t, err)
}
