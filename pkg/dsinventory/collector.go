// Snapshots AWS Directory Service directories and their LDAPS certificates, one region at a time
package dsinventory

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/directoryservice"
	"github.com/aws/aws-sdk-go/service/directoryservice/directoryserviceiface"
	"github.com/function61/gokit/logex"
	"github.com/function61/ldapcertwatch/pkg/dsdomain"
)

type Collector struct {
	ds     directoryserviceiface.DirectoryServiceAPI
	region string
	logl   *logex.Leveled
}

func New(ds directoryserviceiface.DirectoryServiceAPI, region string, logger *log.Logger) *Collector {
	return &Collector{
		ds:     ds,
		region: region,
		logl:   logex.Levels(logger),
	}
}

// uses the default credential chain (env, shared config, instance/Lambda role)
func NewForRegion(sess *session.Session, region string, logger *log.Logger) *Collector {
	return New(
		directoryservice.New(sess, aws.NewConfig().WithRegion(region)),
		region,
		logger)
}

func (c *Collector) Region() string {
	return c.region
}

func (c *Collector) Collect(ctx context.Context) (*dsdomain.Snapshot, error) {
	descriptions, err := c.describeDirectories(ctx)
	if err != nil {
		return nil, fmt.Errorf("describeDirectories: %w", err)
	}

	snapshot := dsdomain.NewSnapshot()

	for _, description := range descriptions {
		dir := dsdomain.Directory{
			Id:           aws.StringValue(description.DirectoryId),
			Name:         aws.StringValue(description.Name),
			Type:         aws.StringValue(description.Type),
			Region:       c.region,
			Certificates: []dsdomain.Certificate{},
		}

		certs, err := c.listCertificates(ctx, dir.Id)
		if err != nil {
			return nil, fmt.Errorf("listCertificates %s: %w", dir.Id, err)
		}

		dir.Certificates = certs

		// names aren't unique within a region (only ids are), but snapshot is keyed by name
		if snapshot.ByName(dir.Name) != nil {
			disambiguated := fmt.Sprintf("%s (%s)", dir.Name, dir.Id)
			c.logl.Info.Printf("directory name %s taken, using %s", dir.Name, disambiguated)
			dir.Name = disambiguated
		}

		if err := snapshot.Add(dir); err != nil {
			return nil, err
		}
	}

	c.logl.Info.Printf("region=%s directories=%d", c.region, snapshot.Len())

	return snapshot, nil
}

func (c *Collector) describeDirectories(ctx context.Context) ([]*directoryservice.DirectoryDescription, error) {
	descriptions := []*directoryservice.DirectoryDescription{}

	var nextToken *string
	for {
		resp, err := c.ds.DescribeDirectoriesWithContext(ctx, &directoryservice.DescribeDirectoriesInput{
			NextToken: nextToken,
		})
		if err != nil {
			return nil, err
		}

		descriptions = append(descriptions, resp.DirectoryDescriptions...)

		if aws.StringValue(resp.NextToken) == "" {
			return descriptions, nil
		}

		nextToken = resp.NextToken
	}
}

func (c *Collector) listCertificates(ctx context.Context, directoryId string) ([]dsdomain.Certificate, error) {
	certs := []dsdomain.Certificate{}

	var nextToken *string
	for {
		resp, err := c.ds.ListCertificatesWithContext(ctx, &directoryservice.ListCertificatesInput{
			DirectoryId: aws.String(directoryId),
			NextToken:   nextToken,
		})
		if err != nil {
			// SimpleAD and AD Connector directories don't do LDAPS
			if isUnsupportedOperation(err) {
				c.logl.Info.Printf("directory %s does not support certificates", directoryId)
				return certs, nil
			}

			return nil, err
		}

		for _, info := range resp.CertificatesInfo {
			certs = append(certs, certificateFromInfo(info))
		}

		if aws.StringValue(resp.NextToken) == "" {
			return certs, nil
		}

		nextToken = resp.NextToken
	}
}

// a nil ExpiryDateTime stays as zero time, which the evaluator reports as invalid
func certificateFromInfo(info *directoryservice.CertificateInfo) dsdomain.Certificate {
	return dsdomain.Certificate{
		Id:             aws.StringValue(info.CertificateId),
		CommonName:     aws.StringValue(info.CommonName),
		State:          dsdomain.ParseCertificateState(aws.StringValue(info.State)),
		Type:           dsdomain.ParseCertificateType(aws.StringValue(info.Type)),
		ExpiryDateTime: aws.TimeValue(info.ExpiryDateTime),
	}
}

func isUnsupportedOperation(err error) bool {
	awsErr, ok := err.(awserr.Error)
	return ok && awsErr.Code() == directoryservice.ErrCodeUnsupportedOperationException
}
