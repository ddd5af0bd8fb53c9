package main

import (
	"fmt"
	"strings"
)

// parseS3URL splits an s3://bucket/key URL.
func parseS3URL(rawURL string) (string, string, error) {
	rest, ok := strings.CutPrefix(rawURL, "s3://")
	if !ok {
		return "", "", fmt.Errorf("invalid S3 URL %q: must start with s3://", rawURL)
	}

	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("invalid S3 URL %q: missing bucket", rawURL)
	}
	if key == "" {
		return "", "", fmt.Errorf("invalid S3 URL %q: missing key", rawURL)
	}
	return bucket, key, nil
}
