package main

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd(t *testing.T) {
	cmd := newRootCmd()
	listen := cmd.Flags().Lookup("listen")
	require.NotNil(t, listen)
	assert.Equal(t, ":8080", listen.DefValue)
	assert.NotNil(t, cmd.Flags().Lookup("work-dir"))

	tests := []struct {
		name string
		args []string
	}{
		{"extra argument", []string{"serve"}},
		{"unknown flag", []string{"-listen", ":8080"}},
		{"bad address", []string{"--listen", ":notaport", "--work-dir", t.TempDir()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRootCmd()
			cmd.SetOut(io.Discard)
			cmd.SetErr(io.Discard)
			cmd.SetArgs(tt.args)
			assert.Error(t, cmd.Execute())
		})
	}
}
