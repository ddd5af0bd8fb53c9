package s3store

import (
	"context"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/docker/go-units"
)

// DownloadParams ...
type DownloadParams struct {
	Bucket      string
	Key         string
	PartSize    int64
	Concurrency int
}

// Download fetches an object into dst using parallel ranged GET requests.
func Download(ctx context.Context, client manager.DownloadAPIClient, params DownloadParams, dst io.WriterAt, logger log.Logger) (int64, error) {
	downloader := manager.NewDownloader(client, func(d *manager.Downloader) {
		if params.PartSize > 0 {
			d.PartSize = params.PartSize
		}
		if params.Concurrency > 0 {
			d.Concurrency = params.Concurrency
		}
	})

	logger.Debugf("Downloading %s/%s in %s parts with concurrency %d",
		params.Bucket, params.Key, units.BytesSize(float64(downloader.PartSize)), downloader.Concurrency)

	start := time.Now()
	n, err := downloader.Download(ctx, dst, &s3.GetObjectInput{
		Bucket: aws.String(params.Bucket),
		Key:    aws.String(params.Key),
	})
	if err != nil {
		return n, &Error{Op: "download", Bucket: params.Bucket, Key: params.Key, Err: err}
	}

	logger.Donef("Downloaded %s in %s", units.HumanSizeWithPrecision(float64(n), 3), time.Since(start).Round(time.Millisecond))
	return n, nil
}
