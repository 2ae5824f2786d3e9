package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/function61/gokit/logex"
	"github.com/function61/ldapcertwatch/pkg/dsdomain"
	"github.com/function61/ldapcertwatch/pkg/dsinventory"
	"github.com/function61/ldapcertwatch/pkg/findingreport"
	"github.com/function61/ldapcertwatch/pkg/ldapcertexpiry"
	"golang.org/x/sync/errgroup"
)

type snapshotCollector interface {
	Region() string
	Collect(ctx context.Context) (*dsdomain.Snapshot, error)
}

func awsCollectors(conf config, logger *log.Logger) ([]snapshotCollector, error) {
	sess, err := session.NewSession()
	if err != nil {
		return nil, err
	}

	collectors := []snapshotCollector{}
	for _, region := range conf.Regions {
		collectors = append(collectors, dsinventory.NewForRegion(
			sess,
			region,
			logex.Prefix("dsinventory/"+region, logger)))
	}

	return collectors, nil
}

// regions are collected and evaluated concurrently. findings keep the order of collectors.
func checkRegions(
	ctx context.Context,
	collectors []snapshotCollector,
	now time.Time,
	logger *log.Logger,
) (findingreport.Report, error) {
	logl := logex.Levels(logger)

	findingsByRegion := make([][]ldapcertexpiry.Finding, len(collectors))
	regions := []string{}

	tasks, ctx := errgroup.WithContext(ctx)

	for idx, collector := range collectors {
		idx := idx
		collector := collector
		regions = append(regions, collector.Region())

		tasks.Go(func() error {
			snapshot, err := collector.Collect(ctx)
			if err != nil {
				return fmt.Errorf("%s: %w", collector.Region(), err)
			}

			findings, err := ldapcertexpiry.Evaluate(snapshot, now)
			if err != nil {
				// not fatal: the rest of the certificates still got evaluated
				var invalidErr *ldapcertexpiry.InvalidCertificatesError
				if !errors.As(err, &invalidErr) {
					return err
				}

				logl.Error.Printf("%s: %v", collector.Region(), err)
			}

			findingsByRegion[idx] = findings

			return nil
		})
	}

	if err := tasks.Wait(); err != nil {
		return findingreport.Report{}, err
	}

	allFindings := []ldapcertexpiry.Finding{}
	for _, findings := range findingsByRegion {
		allFindings = append(allFindings, findings...)
	}

	logl.Info.Printf("evaluated %d certificate(s) in %d region(s)", len(allFindings), len(regions))

	return findingreport.New(now, regions, allFindings), nil
}

func checkSnapshotFile(path string, now time.Time, logger *log.Logger) (findingreport.Report, error) {
	snapshot, err := readSnapshotFile(path)
	if err != nil {
		return findingreport.Report{}, err
	}

	regions := []string{}
	seen := map[string]bool{}
	for _, dir := range snapshot.All() {
		if !seen[dir.Region] {
			regions = append(regions, dir.Region)
			seen[dir.Region] = true
		}
	}

	findings, err := ldapcertexpiry.Evaluate(snapshot, now)
	if err != nil {
		var invalidErr *ldapcertexpiry.InvalidCertificatesError
		if !errors.As(err, &invalidErr) {
			return findingreport.Report{}, err
		}

		logex.Levels(logger).Error.Println(err.Error())
	}

	return findingreport.New(now, regions, findings), nil
}

func readSnapshotFile(path string) (*dsdomain.Snapshot, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	snapshot, err := dsdomain.ReadSnapshot(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return snapshot, nil
}

// "" => now
func parseNow(date string) (time.Time, error) {
	if date == "" {
		return time.Now().UTC(), nil
	}

	return time.Parse("2006-01-02", date)
}
