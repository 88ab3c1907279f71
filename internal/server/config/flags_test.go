package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	os.Args = []string{"server",
		"-a", "127.0.0.1:8081", "-h", "127.0.0.1:50052", "-d", "db", "-s", "secret", "-t", "90",
		"-u", "user", "-p", "password", "-b", "bucket", "-g", "eu-west-1", "-e", "http://endpoint",
		"-unrelated", "ignored",
	}

	got := &Config{}
	require.NotPanics(t, func() { parseFlags(got) })

	want := &Config{
		EndpointAddrHTTP: "127.0.0.1:8081",
		EndpointAddrGRPC: "127.0.0.1:50052",
		DatabaseDSN:      "db",
		SecretKey:        "secret",
		SessionTTL:       90 * time.Minute,
		S3RootUser:       "user",
		S3RootPassword:   "password",
		S3Bucket:         "bucket",
		S3Region:         "eu-west-1",
		S3BaseEndpoint:   "http://endpoint",
	}
	assert.Empty(t, cmp.Diff(want, got))
}

func TestParseFlags_BadValuePanics(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	os.Args = []string{"server", "-t", "two-hours"}
	require.Panics(t, func() { parseFlags(&Config{}) })
}
