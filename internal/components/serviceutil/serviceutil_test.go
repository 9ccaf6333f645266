package serviceutil

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStartHttpServerReturnsListenError(t *testing.T) {
	taken, err := net.Listen("tcp", "0.0.0.0:0")
	require.NoError(t, err)
	defer taken.Close()
	port := taken.Addr().(*net.TCPAddr).Port

	err = StartHttpServer(context.Background(), port, http.NotFoundHandler())
	require.ErrorContains(t, err, "listen on port")
}

func TestStartHttpServerStopsWithContext(t *testing.T) {
	free, err := net.Listen("tcp", "0.0.0.0:0")
	require.NoError(t, err)
	port := free.Addr().(*net.TCPAddr).Port
	free.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, StartHttpServer(ctx, port, http.NotFoundHandler()))
}
