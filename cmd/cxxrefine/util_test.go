package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/cxxrefine/framework/cxx"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		arg  string
		path string
		pos  cxx.Position
	}{
		{"src/a.cpp:3:5", "src/a.cpp", cxx.Position{Line: 2, Character: 4}},
		{"a.h:10", "a.h", cxx.Position{Line: 9}},
		{"C:/work/a.h:1:1", "C:/work/a.h", cxx.Position{}},
	}
	for _, tt := range tests {
		path, pos, err := parseLocation(tt.arg)
		require.NoError(t, err, tt.arg)
		assert.Equal(t, tt.path, path, tt.arg)
		assert.Equal(t, tt.pos, pos, tt.arg)
	}

	for _, bad := range []string{"a.h", ":3:4", "a.h:0:1", "a.h:2:0"} {
		_, _, err := parseLocation(bad)
		assert.Error(t, err, bad)
	}
}

func TestPrintValue(t *testing.T) {
	value := map[string][]string{"public": {"width", "height"}}

	var out bytes.Buffer
	flagJSON = false
	require.NoError(t, printValue(&out, value))
	assert.Equal(t, "public:\n  - width\n  - height\n", out.String())

	out.Reset()
	flagJSON = true
	defer func() { flagJSON = false }()
	require.NoError(t, printValue(&out, value))
	assert.JSONEq(t, `{"public": ["width", "height"]}`, out.String())
}
