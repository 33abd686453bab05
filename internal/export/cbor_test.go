package export

import (
	"bytes"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/iksnae/harness-session/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCBORExporter_Export(t *testing.T) {
	report := testReport(t)
	var buf bytes.Buffer
	require.NoError(t, (&CBORExporter{}).Export(report, &buf))

	var decoded map[string]any
	require.NoError(t, cbor.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "session-1", decoded["sessionId"])
	assert.Contains(t, decoded, "flat")
	assert.Contains(t, decoded, "display")
}

func TestCBORExporter_Deterministic(t *testing.T) {
	var a, b bytes.Buffer
	require.NoError(t, (&CBORExporter{}).Export(testReport(t), &a))
	require.NoError(t, (&CBORExporter{}).Export(testReport(t), &b))
	assert.Equal(t, a.Bytes(), b.Bytes())

	digest, err := internal.Digest(testReport(t))
	require.NoError(t, err)
	assert.Len(t, digest, 64)
}
