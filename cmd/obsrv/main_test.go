package main

import (
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config-obsrv.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func Test_Run_Unknown_Flag(t *testing.T) {
	assert.Equal(t, 1, run([]string{"--port", "80"}))
}

func Test_Run_Help(t *testing.T) {
	assert.Equal(t, 1, run([]string{"-h"}))
}

func Test_Run_Extra_Arguments(t *testing.T) {
	path := writeConfig(t, `{}`)
	assert.Equal(t, 1, run([]string{"--config", path, "extra"}))
}

func Test_Run_Missing_Config(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.json")
	assert.Equal(t, 1, run([]string{"--config", missing}))
}

func Test_Run_Bad_Config(t *testing.T) {
	assert.Equal(t, 1, run([]string{"--config", writeConfig(t, `{"bindPort": "http"}`)}))
}

func Test_Run_Bind_Failure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	path := writeConfig(t, `{"bindAddress": "127.0.0.1", "bindPort": `+strconv.Itoa(port)+`, "logLevel": "error"}`)
	assert.Equal(t, 1, run([]string{"--config", path}))
}
