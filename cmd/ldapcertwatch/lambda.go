package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/function61/gokit/logex"
)

// AWS-facing constructors, swapped out in tests
type lambdaDeps struct {
	collectors func(conf config) ([]snapshotCollector, error)
	uploader   func(bucket reportBucket) (reportUploader, error)
}

func insideLambda() bool {
	return os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}

// meant to be triggered by a CloudWatch Events schedule, e.g. "rate(1 day)"
func lambdaEntrypoint() {
	logger := logex.StandardLogger()

	configPath := os.Getenv("LDAPCERTWATCH_CONFIG")
	if configPath == "" {
		configPath = defaultConfigFile
	}

	deps := lambdaDeps{
		collectors: func(conf config) ([]snapshotCollector, error) {
			return awsCollectors(conf, logger)
		},
		uploader: func(bucket reportBucket) (reportUploader, error) {
			return newBucketReportUploader(bucket)
		},
	}

	lambda.Start(func(ctx context.Context, ev events.CloudWatchEvent) error {
		return lambdaHandler(ctx, ev, configPath, deps, logger)
	})
}

func lambdaHandler(
	ctx context.Context,
	ev events.CloudWatchEvent,
	configPath string,
	deps lambdaDeps,
	logger *log.Logger,
) error {
	logl := logex.Levels(logger)

	conf, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	// evaluate as of the scheduled time, so a delayed invocation reports the same day counts
	now := ev.Time.UTC()
	if ev.Time.IsZero() {
		now = time.Now().UTC()
	}

	collectors, err := deps.collectors(*conf)
	if err != nil {
		return err
	}

	report, err := checkRegions(ctx, collectors, now, logex.Prefix("check", logger))
	if err != nil {
		return err
	}

	for _, finding := range report.Findings {
		logl.Info.Printf("%s %s", finding.Status, finding.StatusExtended)
	}

	if conf.ReportBucket == nil {
		return nil
	}

	uploader, err := deps.uploader(*conf.ReportBucket)
	if err != nil {
		return err
	}

	key, err := uploader.Upload(ctx, report)
	if err != nil {
		return err
	}

	logl.Info.Printf("report uploaded to s3://%s/%s", conf.ReportBucket.Bucket, key)

	return nil
}
