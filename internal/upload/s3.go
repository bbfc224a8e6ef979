// Package upload copies finished capture files to S3.
package upload

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pion/logging"
)

var ErrInvalidURI = errors.New("upload: invalid S3 URI")

// Location is a bucket and key prefix parsed from s3://bucket/prefix.
type Location struct {
	Bucket string
	Prefix string
}

// ParseS3URI splits an s3:// URI. The prefix, when present, ends in a slash.
func ParseS3URI(uri string) (Location, error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return Location{}, fmt.Errorf("%w: %q", ErrInvalidURI, uri)
	}
	bucket, prefix, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return Location{}, fmt.Errorf("%w: %q", ErrInvalidURI, uri)
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return Location{Bucket: bucket, Prefix: prefix}, nil
}

// Key is the object key for a local file name.
func (l Location) Key(name string) string { return l.Prefix + name }

// URI is the s3:// location of the object for name.
func (l Location) URI(name string) string {
	return fmt.Sprintf("s3://%s/%s", l.Bucket, l.Key(name))
}

// PutObjectAPI is the part of the S3 client the uploader needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Uploader struct {
	Client      PutObjectAPI
	Location    Location
	DeleteLocal bool
	Log         logging.LeveledLogger
}

// NewUploader builds an uploader backed by the default AWS credential chain.
func NewUploader(ctx context.Context, uri, region string, lf logging.LoggerFactory) (*Uploader, error) {
	loc, err := ParseS3URI(uri)
	if err != nil {
		return nil, err
	}
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	if lf == nil {
		lf = logging.NewDefaultLoggerFactory()
	}
	return &Uploader{
		Client:   s3.NewFromConfig(cfg),
		Location: loc,
		Log:      lf.NewLogger("upload"),
	}, nil
}

// Upload puts the file at path under the configured prefix and returns its
// s3:// location. With DeleteLocal the file is removed even when the upload
// failed.
func (u *Uploader) Upload(ctx context.Context, path string) (string, error) {
	name := filepath.Base(path)
	err := u.put(ctx, path, name)
	if u.DeleteLocal {
		if rmErr := os.Remove(path); rmErr != nil {
			err = errors.Join(err, fmt.Errorf("delete local file: %w", rmErr))
		} else if u.Log != nil {
			u.Log.Debugf("deleted %s", path)
		}
	}
	if err != nil {
		return "", err
	}
	loc := u.Location.URI(name)
	if u.Log != nil {
		u.Log.Infof("uploaded %s to %s", path, loc)
	}
	return loc, nil
}

func (u *Uploader) put(ctx context.Context, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	_, err = u.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(u.Location.Bucket),
		Key:    aws.String(u.Location.Key(name)),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", name, err)
	}
	return nil
}
