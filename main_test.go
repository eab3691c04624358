package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elastic/bchecker/exec"
	"github.com/elastic/bchecker/server"
)

func TestNewSpawner(t *testing.T) {
	sp, err := newSpawner(config{isolation: "process", name: "x"})
	require.NoError(t, err)
	if assert.IsType(t, &exec.Spawner{}, sp) {
		assert.Equal(t, []string{"worker", "--name", "x"}, sp.(*exec.Spawner).Args)
	}

	sp, err = newSpawner(config{isolation: "goroutine", name: "x"})
	require.NoError(t, err)
	assert.IsType(t, &server.GoroutineSpawner{}, sp)

	_, err = newSpawner(config{isolation: "thread"})
	assert.EqualError(t, err, `unknown isolation "thread", want process or goroutine`)
}

func TestFlags(t *testing.T) {
	cmd := rootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--addr", ":9999", "--grace", "1s", "--isolation", "goroutine"}))

	for _, test := range []struct {
		flag, value string
	}{
		{"addr", ":9999"},
		{"grace", time.Second.String()},
		{"isolation", "goroutine"},
		{"name", "bchecker"},
		{"metrics-addr", ""},
	} {
		f := cmd.Flags().Lookup(test.flag)
		require.NotNil(t, f, test.flag)
		assert.Equal(t, test.value, f.Value.String(), test.flag)
	}

	worker, _, err := cmd.Find([]string{"worker"})
	require.NoError(t, err)
	assert.True(t, worker.Hidden)
}

func TestVersion(t *testing.T) {
	var b bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&b)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.True(t, strings.HasPrefix(b.String(), "bchecker dev (none) "))
}

func TestServeRejectsBadIsolation(t *testing.T) {
	err := serve(config{addr: "127.0.0.1:0", isolation: "fork"})
	assert.Error(t, err)
}
