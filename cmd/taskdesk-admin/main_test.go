package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/taskdesk/config"
)

func TestIsLikelyRemoteHost(t *testing.T) {
	tests := []struct {
		host string
		want bool
	}{
		{"", false},
		{"localhost", false},
		{"LOCALHOST", false},
		{"127.0.0.1", false},
		{"::1", false},
		{"db.local", false},
		{"10.0.0.5", true},
		{"db.prod.example.com", true},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			assert.Equal(t, tt.want, isLikelyRemoteHost(tt.host))
		})
	}
}

func TestConfirmAction(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"y\n", false},
		{"YES\n", false},
		{"n\n", true},
		{"\n", true},
		{"", true},
	}
	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			err := confirmAction(&commandContext{Out: &out, In: strings.NewReader(tt.input)}, "reset things")
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Contains(t, out.String(), "About to reset things.")
		})
	}
}

func TestRunDBResetRefusesRemoteHostWithoutFlag(t *testing.T) {
	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config: config.AppConfig{Postgres: config.DBConfig{Host: "db.prod.example.com", Name: "taskdesk"}},
		Out:    io.Discard,
		In:     strings.NewReader(""),
	}
	err := runDBReset(cmdCtx, []string{"--yes"})
	require.ErrorContains(t, err, "--allow-remote")
}

func TestParseGetUserFlags(t *testing.T) {
	_, err := parseGetUserFlags(nil)
	require.ErrorContains(t, err, "--email")

	opts, err := parseGetUserFlags([]string{"--email", "a@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", opts.Email)
}

func TestGetUserFromMemoryStoreReportsMissingProfile(t *testing.T) {
	var out bytes.Buffer
	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config: config.AppConfig{Users: config.UsersConfig{Store: config.UsersStoreMemory}},
		Out:    &out,
	}
	require.NoError(t, runGetUser(cmdCtx, []string{"--email", "Nobody@Example.com"}))
	assert.Contains(t, out.String(), "no profile stored for Nobody@Example.com")
}

func TestPrintUsageListsCommands(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printUsage(&out))
	for _, name := range []string{"migrate", "db-reset", "get-user"} {
		assert.Contains(t, out.String(), name)
	}
}
