package web

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderMarkdown(t *testing.T) {
	html := RenderMarkdown("Devices with **compliance state** and `serialNumber`.")
	assert.Contains(t, html, "<strong>compliance state</strong>")
	assert.Contains(t, html, "<code>serialNumber</code>")
}

func TestRenderMarkdown_Empty(t *testing.T) {
	assert.Equal(t, "", RenderMarkdown(""))
}

func TestRenderMarkdown_StripsScript(t *testing.T) {
	html := RenderMarkdown(`hello <script>alert(1)</script>`)
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "hello")
}
