package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realmlist/metarboard/internal/store"
)

func archivePayload(t *testing.T, dbPath, endpoint, station string, payload []byte) int64 {
	t.Helper()
	st, err := store.Open(dbPath, nil, nil)
	require.NoError(t, err)
	defer st.Close()

	id, err := st.StoreRawPayload(nil, "aviationweather", endpoint, station, payload)
	require.NoError(t, err)
	require.NotZero(t, id)
	return id
}

func TestLoadArchivedPayload(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "metarboard.db")
	payload := []byte(`[{"icaoId": "EHGR", "rawOb": "EHGR 171425Z 24012KT 9999 FEW025 14/08 Q1012"}]`)
	id := archivePayload(t, dbPath, "metar", "EHGR", payload)

	p, err := loadArchivedPayload(dbPath, id)
	require.NoError(t, err)
	assert.Equal(t, payload, p.Payload)
	assert.Equal(t, "metar", p.Endpoint)
	assert.Equal(t, "EHGR", p.StationID)

	_, err = loadArchivedPayload(dbPath, id+1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no archived payload")
}

func TestRenderCmd_PayloadID(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "metarboard.db")
	cfgPath := filepath.Join(dir, "metarboard.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf("[storage]\ndb_path = %q\n", dbPath)), 0644))

	id := archivePayload(t, dbPath, "taf", "EHGR",
		[]byte(`[{"icaoId": "EHGR", "rawTAF": "TAF EHGR 171100Z 1712/1818 24010KT 9999 SCT030"}]`))

	g := &Globals{Config: cfgPath}
	require.NoError(t, (&RenderCmd{Kind: "metar", PayloadID: id, At: "1425"}).Run(g))

	err := (&RenderCmd{Kind: "metar", PayloadID: id + 1}).Run(g)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no archived payload")
}

func TestRenderCmd_PayloadIDNeedsConfig(t *testing.T) {
	g := &Globals{Config: filepath.Join(t.TempDir(), "missing.toml")}
	wd, wdErr := os.Getwd()
	require.NoError(t, wdErr)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	err := (&RenderCmd{Kind: "metar", PayloadID: 1}).Run(g)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--payload-id")
}
