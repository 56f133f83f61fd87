package log

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelsAndFormat(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetLevel(1)
	})

	SetLevel(2)
	Infof("hidden %d", 1)
	Warnf("relay %s rejected", "wss://example")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "[warning]")
	assert.Contains(t, buf.String(), "relay wss://example rejected")

	buf.Reset()
	SetLevel(0)
	Debugf("percent %s", "100%")
	assert.Contains(t, buf.String(), "percent 100%")
}
