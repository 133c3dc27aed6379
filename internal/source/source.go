// Package source opens trip datasets from the local filesystem or from S3.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrInvalidURI is returned for an s3 uri without bucket or key
var ErrInvalidURI = errors.New("invalid s3 uri")

// ObjectGetter is the part of the S3 client used to fetch datasets
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Opener opens dataset locations, the S3 client is created on first use
type Opener struct {
	region string
	client ObjectGetter
}

func NewOpener(region string) *Opener {
	return &Opener{region: region}
}

// WithClient sets the client used for s3 locations
func (o *Opener) WithClient(client ObjectGetter) *Opener {
	o.client = client
	return o
}

// IsS3 reports whether the location is an s3 uri
func IsS3(location string) bool {
	return strings.HasPrefix(location, "s3://")
}

// ParseS3URI splits s3://bucket/key into its bucket and key
func ParseS3URI(uri string) (bucket, key string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidURI, err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidURI, uri)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", fmt.Errorf("%w: %q has no key", ErrInvalidURI, uri)
	}
	return u.Host, key, nil
}

// Open returns a reader of the dataset at location, a local path or an s3 uri
func (o *Opener) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if !IsS3(location) {
		f, err := os.Open(location)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		return f, nil
	}

	bucket, key, err := ParseS3URI(location)
	if err != nil {
		return nil, err
	}
	if o.client == nil {
		cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(o.region))
		if err != nil {
			return nil, fmt.Errorf("unable to load SDK config: %w", err)
		}
		o.client = s3.NewFromConfig(cfg)
	}

	out, err := o.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to download %s from S3: %w", location, err)
	}
	return out.Body, nil
}
