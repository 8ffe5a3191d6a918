package activity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizeRawDataMasksDefaultFields(t *testing.T) {
	raw := json.RawMessage(`{"password":"secret-value","token":"abcd1234","secret":"shh","repo":"api"}`)
	out := SanitizeRawData(DefaultMasker(), raw)
	require.NotNil(t, out)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(out, &payload))
	require.NotEqual(t, "secret-value", payload["password"])
	require.NotEqual(t, "abcd1234", payload["token"])
	require.NotEqual(t, "shh", payload["secret"])
	require.Contains(t, payload, "repo")
}

func TestSanitizeRawDataDropsUnparseablePayloads(t *testing.T) {
	require.Nil(t, SanitizeRawData(DefaultMasker(), json.RawMessage(`not-json`)))
	require.Nil(t, SanitizeRawData(DefaultMasker(), json.RawMessage(`[1,2,3]`)))
	require.Nil(t, SanitizeRawData(DefaultMasker(), nil))
}
