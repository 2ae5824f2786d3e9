package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/function61/gokit/jsonfile"
)

const defaultConfigFile = "ldapcertwatch.json"

type config struct {
	Regions      []string      `json:"regions"`
	ReportBucket *reportBucket `json:"report_bucket,omitempty"` // (optional) bucket to upload JSON reports to
}

type reportBucket struct {
	Bucket string `json:"bucket"`
	Region string `json:"region"` // e.g. "us-east-1"
}

// missing config file is fine: then we'll check only the region the SDK would use
func loadConfig(path string) (*config, error) {
	file, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}

		return defaultConfig()
	}
	defer file.Close()

	return parseConfig(file)
}

func parseConfig(input io.Reader) (*config, error) {
	conf := &config{}
	if err := jsonfile.Unmarshal(input, conf, true); err != nil {
		return nil, err
	}

	if err := conf.validate(); err != nil {
		return nil, err
	}

	return conf, nil
}

func defaultConfig() (*config, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		return nil, fmt.Errorf("no %s and AWS_REGION not set", defaultConfigFile)
	}

	return &config{
		Regions: []string{region},
	}, nil
}

func (c *config) validate() error {
	if len(c.Regions) == 0 {
		return errors.New("regions: at least one required")
	}

	seen := map[string]bool{}
	for _, region := range c.Regions {
		if region == "" {
			return errors.New("regions: empty region")
		}

		if seen[region] {
			return fmt.Errorf("regions: duplicate %s", region)
		}
		seen[region] = true
	}

	if c.ReportBucket != nil && (c.ReportBucket.Bucket == "" || c.ReportBucket.Region == "") {
		return errors.New("report_bucket: bucket and region required")
	}

	return nil
}

func displayConfig(configPath string, out io.Writer) error {
	conf, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	return jsonfile.Marshal(out, conf)
}
