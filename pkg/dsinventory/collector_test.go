package dsinventory

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/directoryservice"
	"github.com/aws/aws-sdk-go/service/directoryservice/directoryserviceiface"
	"github.com/function61/gokit/assert"
	"github.com/function61/ldapcertwatch/pkg/dsdomain"
)

func TestCollect(t *testing.T) {
	expires := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	ds := &fakeDirectoryService{
		directoryPages: [][]*directoryservice.DirectoryDescription{
			{
				{DirectoryId: aws.String("d-1111111111"), Name: aws.String("corp.example.com"), Type: aws.String("MicrosoftAD")},
			},
			{
				{DirectoryId: aws.String("d-2222222222"), Name: aws.String("simple.example.com"), Type: aws.String("SimpleAD")},
			},
		},
		certificatePages: map[string][][]*directoryservice.CertificateInfo{
			"d-1111111111": {
				{
					{
						CertificateId:  aws.String("c-1"),
						CommonName:     aws.String("ldaps.corp.example.com"),
						State:          aws.String(directoryservice.CertificateStateRegistered),
						Type:           aws.String(directoryservice.CertificateTypeClientLdaps),
						ExpiryDateTime: aws.Time(expires),
					},
				},
				{
					{
						CertificateId:  aws.String("c-2"),
						CommonName:     aws.String("old.corp.example.com"),
						State:          aws.String(directoryservice.CertificateStateDeregistered),
						Type:           aws.String(directoryservice.CertificateTypeClientLdaps),
						ExpiryDateTime: aws.Time(expires),
					},
					{
						CertificateId: aws.String("c-3"),
						CommonName:    aws.String("broken.corp.example.com"),
						State:         aws.String(directoryservice.CertificateStateRegistered),
						Type:          aws.String(directoryservice.CertificateTypeClientCertAuth),
					},
				},
			},
		},
		unsupported: map[string]bool{
			"d-2222222222": true,
		},
	}

	snapshot, err := New(ds, "eu-west-1", nil).Collect(context.Background())
	assert.Ok(t, err)

	assert.Assert(t, snapshot.Len() == 2)

	corp := snapshot.ByName("corp.example.com")
	assert.EqualString(t, corp.Id, "d-1111111111")
	assert.EqualString(t, corp.Type, "MicrosoftAD")
	assert.EqualString(t, corp.Region, "eu-west-1")

	ids := []string{}
	for _, cert := range corp.Certificates {
		ids = append(ids, cert.Id)
	}
	assert.EqualString(t, strings.Join(ids, ","), "c-1,c-2,c-3")

	assert.Assert(t, corp.Certificates[0].State == dsdomain.CertificateStateRegistered)
	assert.Assert(t, corp.Certificates[0].Type == dsdomain.CertificateTypeClientLDAPS)
	assert.Assert(t, corp.Certificates[0].ExpiryDateTime.Equal(expires))
	assert.Assert(t, corp.Certificates[1].State == dsdomain.CertificateStateDeregistered)
	assert.Assert(t, corp.Certificates[2].Type == dsdomain.CertificateTypeClientCertAuth)
	assert.Assert(t, corp.Certificates[2].ExpiryDateTime.IsZero())

	// unsupported operation is not an error, just no certs
	simple := snapshot.ByName("simple.example.com")
	assert.Assert(t, simple != nil)
	assert.Assert(t, len(simple.Certificates) == 0)

	// directory order preserved across pages
	assert.EqualString(t, snapshot.All()[0].Name, "corp.example.com")
	assert.EqualString(t, snapshot.All()[1].Name, "simple.example.com")
}

func TestCollectSameNameTwiceInRegion(t *testing.T) {
	expires := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	certificate := func(id string) []*directoryservice.CertificateInfo {
		return []*directoryservice.CertificateInfo{
			{
				CertificateId:  aws.String(id),
				State:          aws.String(directoryservice.CertificateStateRegistered),
				Type:           aws.String(directoryservice.CertificateTypeClientLdaps),
				ExpiryDateTime: aws.Time(expires),
			},
		}
	}

	snapshot, err := New(&fakeDirectoryService{
		directoryPages: [][]*directoryservice.DirectoryDescription{
			{
				{DirectoryId: aws.String("d-1111111111"), Name: aws.String("corp.example.com")},
				{DirectoryId: aws.String("d-2222222222"), Name: aws.String("corp.example.com")},
			},
		},
		certificatePages: map[string][][]*directoryservice.CertificateInfo{
			"d-1111111111": {certificate("c-1")},
			"d-2222222222": {certificate("c-2")},
		},
	}, "eu-west-1", nil).Collect(context.Background())
	assert.Ok(t, err)

	// both directories (and their certificates) make it, the latter under a name that includes its id
	assert.Assert(t, snapshot.Len() == 2)
	assert.EqualString(t, snapshot.All()[0].Name, "corp.example.com")
	assert.EqualString(t, snapshot.All()[1].Name, "corp.example.com (d-2222222222)")
	assert.EqualString(t, snapshot.ByName("corp.example.com").Certificates[0].Id, "c-1")
	assert.EqualString(t, snapshot.ByName("corp.example.com (d-2222222222)").Certificates[0].Id, "c-2")
}

func TestCollectNoDirectories(t *testing.T) {
	snapshot, err := New(&fakeDirectoryService{}, "us-east-1", nil).Collect(context.Background())
	assert.Ok(t, err)
	assert.Assert(t, snapshot.Len() == 0)
}

func TestCollectPropagatesApiErrors(t *testing.T) {
	_, err := New(&fakeDirectoryService{
		describeErr: awserr.New(directoryservice.ErrCodeClientException, "access denied", nil),
	}, "us-east-1", nil).Collect(context.Background())
	assert.Assert(t, err != nil)
	assert.Assert(t, strings.HasPrefix(err.Error(), "describeDirectories: ClientException: access denied"))

	_, err = New(&fakeDirectoryService{
		directoryPages: [][]*directoryservice.DirectoryDescription{
			{
				{DirectoryId: aws.String("d-1111111111"), Name: aws.String("corp.example.com")},
			},
		},
		listErr: errors.New("connection reset"),
	}, "us-east-1", nil).Collect(context.Background())
	assert.EqualString(t, err.Error(), "listCertificates d-1111111111: connection reset")
}

// pages are served in order, with NextToken pointing to the next page's index
type fakeDirectoryService struct {
	directoryserviceiface.DirectoryServiceAPI
	directoryPages   [][]*directoryservice.DirectoryDescription
	certificatePages map[string][][]*directoryservice.CertificateInfo
	unsupported      map[string]bool
	describeErr      error
	listErr          error
}

func (f *fakeDirectoryService) DescribeDirectoriesWithContext(
	_ aws.Context,
	input *directoryservice.DescribeDirectoriesInput,
	_ ...request.Option,
) (*directoryservice.DescribeDirectoriesOutput, error) {
	if f.describeErr != nil {
		return nil, f.describeErr
	}

	if len(f.directoryPages) == 0 {
		return &directoryservice.DescribeDirectoriesOutput{}, nil
	}

	page := pageIndex(input.NextToken)

	return &directoryservice.DescribeDirectoriesOutput{
		DirectoryDescriptions: f.directoryPages[page],
		NextToken:             nextPageToken(page, len(f.directoryPages)),
	}, nil
}

func (f *fakeDirectoryService) ListCertificatesWithContext(
	_ aws.Context,
	input *directoryservice.ListCertificatesInput,
	_ ...request.Option,
) (*directoryservice.ListCertificatesOutput, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}

	directoryId := aws.StringValue(input.DirectoryId)

	if f.unsupported[directoryId] {
		return nil, awserr.New(
			directoryservice.ErrCodeUnsupportedOperationException,
			"LDAPS is not supported for this directory type",
			nil)
	}

	pages := f.certificatePages[directoryId]
	if len(pages) == 0 {
		return &directoryservice.ListCertificatesOutput{}, nil
	}

	page := pageIndex(input.NextToken)

	return &directoryservice.ListCertificatesOutput{
		CertificatesInfo: pages[page],
		NextToken:        nextPageToken(page, len(pages)),
	}, nil
}

func pageIndex(token *string) int {
	if token == nil {
		return 0
	}

	return len(*token) // token "x" => page 1, "xx" => page 2 ..
}

func nextPageToken(current int, total int) *string {
	if current+1 >= total {
		return nil
	}

	return aws.String(strings.Repeat("x", current+1))
}
