package main

import (
	"bytes"
	"context"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/function61/gokit/aws/s3facade"
	"github.com/function61/gokit/jsonfile"
	"github.com/function61/ldapcertwatch/pkg/findingreport"
)

type reportUploader interface {
	// returns the key the report was stored at
	Upload(ctx context.Context, report findingreport.Report) (string, error)
}

// stores JSON reports in an S3 bucket, one object per run
type bucketReportUploader struct {
	reportsBucket *s3facade.BucketContext
}

var _ reportUploader = (*bucketReportUploader)(nil)

func newBucketReportUploader(conf reportBucket) (*bucketReportUploader, error) {
	sess, err := session.NewSession(aws.NewConfig().WithRegion(conf.Region))
	if err != nil {
		return nil, err
	}

	return &bucketReportUploader{&s3facade.BucketContext{
		Name: aws.String(conf.Bucket),
		S3:   s3.New(sess),
	}}, nil
}

func (b *bucketReportUploader) Upload(ctx context.Context, report findingreport.Report) (string, error) {
	return uploadReport(ctx, b.reportsBucket.S3, b.reportsBucket.Name, report)
}

func uploadReport(
	ctx context.Context,
	s3Client s3iface.S3API,
	bucket *string,
	report findingreport.Report,
) (string, error) {
	reportJson := &bytes.Buffer{}
	if err := jsonfile.Marshal(reportJson, report); err != nil {
		return "", err
	}

	key := reportKey(report.EvaluatedAt)

	_, err := s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      bucket,
		Key:         aws.String(key),
		Body:        bytes.NewReader(reportJson.Bytes()),
		ContentType: aws.String("application/json"),
	})
	return key, err
}

// "ldapcertwatch/2023/2023-01-01T00-00-00Z.json"
func reportKey(evaluatedAt time.Time) string {
	utc := evaluatedAt.UTC()
	return "ldapcertwatch/" + utc.Format("2006") + "/" + utc.Format("2006-01-02T15-04-05Z") + ".json"
}
