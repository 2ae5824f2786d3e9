package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/function61/gokit/assert"
)

func TestParseConfig(t *testing.T) {
	conf, err := parseConfig(strings.NewReader(`{
	"regions": ["eu-west-1", "us-east-1"],
	"report_bucket": {"bucket": "reports", "region": "eu-west-1"}
}`))
	assert.Ok(t, err)

	assert.EqualString(t, strings.Join(conf.Regions, ","), "eu-west-1,us-east-1")
	assert.EqualString(t, conf.ReportBucket.Bucket, "reports")
}

func TestParseConfigValidation(t *testing.T) {
	for _, tc := range []struct {
		input         string
		expectedError string
	}{
		{`{"regions": []}`, "regions: at least one required"},
		{`{"regions": ["eu-west-1", "eu-west-1"]}`, "regions: duplicate eu-west-1"},
		{`{"regions": [""]}`, "regions: empty region"},
		{`{"regions": ["eu-west-1"], "report_bucket": {"bucket": "reports"}}`, "report_bucket: bucket and region required"},
	} {
		tc := tc
		t.Run(tc.expectedError, func(t *testing.T) {
			_, err := parseConfig(strings.NewReader(tc.input))
			assert.EqualString(t, err.Error(), tc.expectedError)
		})
	}

	// unknown fields are typos waiting to happen
	_, err := parseConfig(strings.NewReader(`{"regions": ["eu-west-1"], "region": "us-east-1"}`))
	assert.Assert(t, err != nil)
}

func TestLoadConfigFallsBackToAwsRegion(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nonexistent.json")

	t.Setenv("AWS_REGION", "ap-southeast-2")

	conf, err := loadConfig(missing)
	assert.Ok(t, err)
	assert.EqualString(t, strings.Join(conf.Regions, ","), "ap-southeast-2")
	assert.Assert(t, conf.ReportBucket == nil)

	t.Setenv("AWS_REGION", "")

	_, err = loadConfig(missing)
	assert.EqualString(t, err.Error(), "no ldapcertwatch.json and AWS_REGION not set")
}

func TestDisplayConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.json")
	assert.Ok(t, os.WriteFile(path, []byte(`{"regions": ["eu-north-1"]}`), 0600))

	output := &bytes.Buffer{}
	assert.Ok(t, displayConfig(path, output))

	assert.Assert(t, strings.Contains(output.String(), "eu-north-1"))
	assert.Assert(t, !strings.Contains(output.String(), "report_bucket"))
}
