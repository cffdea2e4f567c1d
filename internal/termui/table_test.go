package termui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderAlignsColumns(t *testing.T) {
	tbl := NewTable("EMAIL", "ROLE")
	tbl.AddRow("admin@zxsgit.local", "admin")
	tbl.AddRow("a@b.co", "member")

	var buf bytes.Buffer
	require.NoError(t, tbl.Render(&buf))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)

	assert.True(t, strings.HasPrefix(lines[0], "EMAIL"))
	assert.True(t, strings.HasPrefix(lines[1], "---"))
	role := strings.Index(lines[0], "ROLE")
	assert.Equal(t, len("admin@zxsgit.local")+2, role)
	assert.Equal(t, role, strings.LastIndex(lines[2], "admin"))
	assert.Equal(t, role, strings.Index(lines[3], "member"))
	assert.NotContains(t, buf.String(), "\x1b[", "no escape codes when writing to a buffer")
}

func TestRenderEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTable("ID", "NAME").Render(&buf))
	assert.Contains(t, buf.String(), "ID")
	assert.Contains(t, buf.String(), "NAME")
}
