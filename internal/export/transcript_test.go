package export

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyunix/oni-chat/internal/domain"
)

func sampleThread() *domain.Thread {
	return &domain.Thread{
		ID:        "c_0000abcd",
		Title:     "Bread <questions>",
		UpdatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Messages: []domain.Message{
			{Role: domain.RoleUser, Content: "How long to proof?"},
			{Role: domain.RoleAssistant, Content: "About **4 hours**.\nCheck the dough.<script>alert(1)</script>"},
		},
	}
}

func TestMarkdown_OrderAndSpeakers(t *testing.T) {
	md := Markdown(sampleThread())

	assert.True(t, strings.HasPrefix(md, "# Bread <questions>\n\n"))
	assert.Contains(t, md, "_Updated 2026-03-01T12:00:00Z_")
	you := strings.Index(md, "### You\n\nHow long to proof?")
	oni := strings.Index(md, "### OniAI\n\nAbout **4 hours**.")
	require.NotEqual(t, -1, you)
	require.NotEqual(t, -1, oni)
	assert.Less(t, you, oni)
}

func TestHTML_RendersAndDropsRawHTML(t *testing.T) {
	out, err := HTML(sampleThread())
	require.NoError(t, err)

	assert.Contains(t, out, "<title>Bread &lt;questions&gt;</title>")
	assert.Contains(t, out, "<strong>4 hours</strong>")
	assert.Contains(t, out, "<br>")
	assert.NotContains(t, out, "<script>")
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatMarkdown, "MD": FormatMarkdown, "markdown": FormatMarkdown, "html": FormatHTML} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("pdf")
	assert.Error(t, err)
}

func TestMarkdown_EmptyThreadUsesDefaultTitle(t *testing.T) {
	md := Markdown(&domain.Thread{})
	assert.Equal(t, "# New chat\n\n", md)
}
