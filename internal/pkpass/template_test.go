package pkpass

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mobilid/internal/platform/config"
)

func backKeys(t *testing.T, cfg config.Pass, mailbox string) []string {
	t.Helper()
	rec := testRecord()
	rec.Attributes.Mailbox = mailbox
	var keys []string
	for _, f := range Render(cfg, rec).Generic.BackFields {
		keys = append(keys, f.Key)
	}
	return keys
}

func TestRender_Identity(t *testing.T) {
	doc := Render(testPassConfig(), testRecord())

	assert.Equal(t, 1, doc.FormatVersion)
	assert.Equal(t, "1234567", doc.SerialNumber)
	assert.Equal(t, "pass.edu.oc.id", doc.PassTypeIdentifier)
	assert.Equal(t, "TEAM123", doc.TeamIdentifier)
	assert.True(t, doc.SharingProhibited)
	assert.Equal(t, "auth-token", doc.AuthenticationToken)
	require.NotNil(t, doc.Barcode)
	assert.Equal(t, "hash-one", doc.Barcode.Message)
	assert.Equal(t, "1234567", doc.Barcode.AltText)
	assert.Equal(t, "PKBarcodeFormatQR", doc.Barcode.Format)
	assert.Equal(t, "4/10", doc.Generic.SecondaryFields[2].Value)
}

func TestRender_NoWebServiceOmitsToken(t *testing.T) {
	cfg := testPassConfig()
	cfg.WebServiceURL = ""
	doc := Render(cfg, testRecord())
	assert.Empty(t, doc.AuthenticationToken)
}

func TestRender_Expiration(t *testing.T) {
	cfg := testPassConfig()
	assert.Empty(t, Render(cfg, testRecord()).ExpirationDate, "no policy, no expiration")

	cfg.Expiration = 25 * time.Hour
	assert.Equal(t, "2024-03-02T13:00:00Z", Render(cfg, testRecord()).ExpirationDate)
}

func TestRender_BackFields(t *testing.T) {
	cfg := testPassConfig()
	cfg.Tribute = ""
	assert.Equal(t, []string{"pin", "print"}, backKeys(t, cfg, ""))

	cfg.Tribute = "Team MOBIL-ID"
	cfg.ShowHashField = true
	assert.Equal(t, []string{"pin", "print", "boxnumber", "tribute", "hash"}, backKeys(t, cfg, "412"))
}

func TestRender_LocationsAndBeacons(t *testing.T) {
	cfg := testPassConfig()
	cfg.Locations = []config.Location{{Latitude: 35.611219, Longitude: -97.467255, RelevantText: "Welcome to Garvey!", MaxDistance: 20}}
	cfg.Beacons = []config.Beacon{{ProximityUUID: "1F234454-CF6D-4A0F-ADF2-F4911BA9FFA9", Major: 1, Minor: 1}}

	out, err := json.Marshal(Render(cfg, testRecord()))
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(out, &m))
	assert.Len(t, m["locations"], 1)
	assert.Len(t, m["beacons"], 1)
}

func TestRender_Deterministic(t *testing.T) {
	a, err := json.Marshal(Render(testPassConfig(), testRecord()))
	require.NoError(t, err)
	b, err := json.Marshal(Render(testPassConfig(), testRecord()))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
