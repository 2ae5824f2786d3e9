package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/function61/gokit/dynversion"
	"github.com/function61/gokit/logex"
	"github.com/function61/gokit/osutil"
	"github.com/function61/ldapcertwatch/pkg/dsdomain"
	"github.com/function61/ldapcertwatch/pkg/dsinventory"
	"github.com/function61/ldapcertwatch/pkg/findingreport"
	"github.com/spf13/cobra"
)

// exit code for when the check ran fine but found certificates about to expire
const exitCodeFindings = 2

func main() {
	if insideLambda() {
		lambdaEntrypoint()
		return
	}

	configPath := defaultConfigFile

	app := &cobra.Command{
		Use:     os.Args[0],
		Short:   "Warns about Directory Service LDAP certificates that are about to expire",
		Version: dynversion.Version,
	}

	app.PersistentFlags().StringVarP(&configPath, "config", "c", configPath, "Path to configuration file")

	app.AddCommand(checkEntry(&configPath))
	app.AddCommand(checkSnapshotEntry())
	app.AddCommand(inventoryDumpEntry())
	app.AddCommand(watchEntry(&configPath))
	app.AddCommand(configDisplayEntry(&configPath))

	if err := app.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func checkEntry(configPath *string) *cobra.Command {
	format := string(findingreport.FormatTable)
	nowDate := ""
	failOnFindings := false
	upload := false

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check certificate expiration in all configured regions",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			rootLogger := logex.StandardLogger()

			hasFailures, err := check(
				osutil.CancelOnInterruptOrTerminate(rootLogger),
				*configPath,
				format,
				nowDate,
				upload,
				rootLogger)
			if err != nil {
				panic(err)
			}

			if hasFailures && failOnFindings {
				os.Exit(exitCodeFindings)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", format, "Output format: table | json | events")
	cmd.Flags().StringVarP(&nowDate, "now", "", nowDate, "Evaluate as if today were YYYY-MM-DD")
	cmd.Flags().BoolVarP(&failOnFindings, "fail-on-findings", "", failOnFindings, "Exit with code 2 if any certificate is about to expire")
	cmd.Flags().BoolVarP(&upload, "upload", "u", upload, "Upload JSON report to the configured S3 bucket")

	return cmd
}

func checkSnapshotEntry() *cobra.Command {
	format := string(findingreport.FormatTable)
	nowDate := ""

	cmd := &cobra.Command{
		Use:   "check-snapshot [file]",
		Short: "Check certificate expiration from a previously dumped inventory",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := func() error {
				outputFormat, err := findingreport.ParseFormat(format)
				if err != nil {
					return err
				}

				now, err := parseNow(nowDate)
				if err != nil {
					return err
				}

				report, err := checkSnapshotFile(args[0], now, logex.StandardLogger())
				if err != nil {
					return err
				}

				return findingreport.Write(os.Stdout, report, outputFormat)
			}(); err != nil {
				panic(err)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", format, "Output format: table | json | events")
	cmd.Flags().StringVarP(&nowDate, "now", "", nowDate, "Evaluate as if today were YYYY-MM-DD")

	return cmd
}

func inventoryDumpEntry() *cobra.Command {
	return &cobra.Command{
		Use:   "inventory-dump [region]",
		Short: "Write a region's directories and certificates as JSON (input for check-snapshot)",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			rootLogger := logex.StandardLogger()

			if err := inventoryDump(
				osutil.CancelOnInterruptOrTerminate(rootLogger),
				args[0],
				rootLogger,
			); err != nil {
				panic(err)
			}
		},
	}
}

func watchEntry(configPath *string) *cobra.Command {
	interval := 6 * time.Hour
	addr := ":8080"

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-check periodically and serve latest findings at /findings",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			rootLogger := logex.StandardLogger()

			conf, err := loadConfig(*configPath)
			if err != nil {
				panic(err)
			}

			if err := watch(
				osutil.CancelOnInterruptOrTerminate(rootLogger),
				*conf,
				interval,
				addr,
				rootLogger,
			); err != nil {
				panic(err)
			}
		},
	}

	cmd.Flags().DurationVarP(&interval, "interval", "i", interval, "How often to re-check")
	cmd.Flags().StringVarP(&addr, "addr", "", addr, "HTTP listen address")

	return cmd
}

func configDisplayEntry(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "conf-display",
		Short: "Display effective configuration",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if err := displayConfig(*configPath, os.Stdout); err != nil {
				panic(err)
			}
		},
	}
}

// returns true if any certificate is about to expire
func check(
	ctx context.Context,
	configPath string,
	format string,
	nowDate string,
	upload bool,
	logger *log.Logger,
) (bool, error) {
	outputFormat, err := findingreport.ParseFormat(format)
	if err != nil {
		return false, err
	}

	now, err := parseNow(nowDate)
	if err != nil {
		return false, err
	}

	conf, err := loadConfig(configPath)
	if err != nil {
		return false, err
	}

	collectors, err := awsCollectors(*conf, logger)
	if err != nil {
		return false, err
	}

	report, err := checkRegions(ctx, collectors, now, logex.Prefix("check", logger))
	if err != nil {
		return false, err
	}

	if err := findingreport.Write(os.Stdout, report, outputFormat); err != nil {
		return false, err
	}

	if upload {
		if conf.ReportBucket == nil {
			return false, fmt.Errorf("--upload given but %s has no report_bucket", configPath)
		}

		uploader, err := newBucketReportUploader(*conf.ReportBucket)
		if err != nil {
			return false, err
		}

		key, err := uploader.Upload(ctx, report)
		if err != nil {
			return false, fmt.Errorf("upload: %w", err)
		}

		logex.Levels(logger).Info.Printf("report uploaded to s3://%s/%s", conf.ReportBucket.Bucket, key)
	}

	return report.HasFailures(), nil
}

func inventoryDump(ctx context.Context, region string, logger *log.Logger) error {
	sess, err := session.NewSession()
	if err != nil {
		return err
	}

	snapshot, err := dsinventory.NewForRegion(sess, region, logex.Prefix("dsinventory/"+region, logger)).Collect(ctx)
	if err != nil {
		return err
	}

	return dsdomain.WriteSnapshot(os.Stdout, snapshot)
}
