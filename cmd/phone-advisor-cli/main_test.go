package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/phone-advisor/internal/recommend"
	"github.com/spherical-ai/phone-advisor/pkg/client"
)

const testCSV = `Name,Brand,Model,Price,Battery capacity (mAh),Screen size (inches),RAM (MB),Internal storage (GB),Rear camera,Operating system
Galaxy A15,Samsung,A15,300,5000,6.5,4096,128,50,Android
Galaxy S24,Samsung,S24,900,4000,6.2,8192,256,50,Android
Pixel 8,Google,8,699,4575,6.2,8192,128,50,Android
`

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "phones.csv")
	require.NoError(t, os.WriteFile(path, []byte(testCSV), 0o644))
	t.Setenv("CATALOG_PATH", path)
	t.Setenv("EMBEDDING_BASE_URL", "")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestCLI_LocalCommands(t *testing.T) {
	var brands []string
	require.NoError(t, json.Unmarshal([]byte(runCLI(t, "brands", "--json")), &brands))
	assert.Equal(t, []string{"Google", "Samsung"}, brands)

	var stats client.Stats
	require.NoError(t, json.Unmarshal([]byte(runCLI(t, "stats", "--json")), &stats))
	assert.Equal(t, client.Stats{MaxPrice: 900, MaxBattery: 5000, MaxRAM: 8192, MaxCamera: 50}, stats)

	var filtered client.FilterResponse
	require.NoError(t, json.Unmarshal([]byte(runCLI(t, "filter", "--brand", "samsung", "--max-price", "950", "--json")), &filtered))
	require.Equal(t, 2, filtered.Count)
	assert.Equal(t, "Galaxy A15", filtered.Results[0].Name)

	var rec client.Recommendation
	require.NoError(t, json.Unmarshal([]byte(runCLI(t, "recommend", "google", "phone", "--json")), &rec))
	require.Len(t, rec.Recommendations, 1)
	assert.Equal(t, "Pixel 8", rec.Recommendations[0].Name)

	var v map[string]string
	require.NoError(t, json.Unmarshal([]byte(runCLI(t, "version", "--json")), &v))
	assert.Equal(t, "dev", v["version"])
}

func TestParseEvalCases(t *testing.T) {
	input := `
# warm-up
samsung under 500 | Galaxy A15
  best camera phone
|
`
	cases, err := parseEvalCases(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []evalCase{
		{Message: "samsung under 500", Expected: "Galaxy A15"},
		{Message: "best camera phone"},
	}, cases)
}

type fakeBackend struct {
	backend
	recs map[string]*client.Recommendation
}

func (f *fakeBackend) Recommend(_ context.Context, message string) (*client.Recommendation, error) {
	rec, ok := f.recs[message]
	if !ok {
		return nil, errors.New("unexpected message")
	}
	return rec, nil
}

func TestRunEval(t *testing.T) {
	b := &fakeBackend{recs: map[string]*client.Recommendation{
		"samsung": {Recommendations: []client.Match{
			{Phone: client.Phone{Name: "Galaxy S24"}},
			{Phone: client.Phone{Name: "Galaxy A15"}},
		}},
		"nothing": {},
	}}

	summary := runEval(context.Background(), b, []evalCase{
		{Message: "samsung", Expected: "galaxy a15"},
		{Message: "nothing", Expected: "Pixel 8"},
		{Message: "boom"},
	}, nil)

	assert.Equal(t, 3, summary.Cases)
	assert.Equal(t, 1, summary.Empty)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 2, summary.Labeled)
	assert.Equal(t, 1, summary.Hits)

	require.Len(t, summary.Results, 3)
	assert.Equal(t, 2, summary.Results[0].Rank)
	assert.Equal(t, "Galaxy S24", summary.Results[0].Top)
	assert.Zero(t, summary.Results[1].Rank)
	assert.Equal(t, "unexpected message", summary.Results[2].Error)
}

func TestConversions(t *testing.T) {
	brand := "Samsung"
	ram := 8192
	camera := 48
	p := toPreferences(client.Preferences{Brand: &brand, MinRAM: &ram, MinCameraMP: &camera})
	assert.Equal(t, &brand, p.Brand)
	assert.Equal(t, &ram, p.MinMemory)
	assert.Equal(t, &camera, p.MinCamera)
	assert.Nil(t, p.MaxPrice)

	matches := toMatches([]recommend.Match{{MatchPercentage: 87.5, Reasons: []string{"Strong battery"}}})
	require.Len(t, matches, 1)
	assert.Equal(t, 87.5, matches[0].MatchPercentage)
	assert.Equal(t, []string{"Strong battery"}, matches[0].Reasons)
}
