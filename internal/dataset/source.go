package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// DefaultURL is the published company financials CSV.
const DefaultURL = "https://raw.githubusercontent.com/Eduardo0912/Man_y_ana_datos/refs/heads/main/Datos_proyecto_limpio.csv"

// Source opens the raw payload behind a dataset location.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	Location() string
}

// S3Options configures the s3:// source.
type S3Options struct {
	Region          string
	Endpoint        string
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string
}

// SourceOptions configures every source kind.
type SourceOptions struct {
	Timeout    time.Duration
	HTTPClient *http.Client
	S3         S3Options
	// S3Client overrides the client built from S3.
	S3Client ObjectGetter
}

// NewSource selects a source from the location scheme: http(s)://, s3://,
// file:// or a bare filesystem path.
func NewSource(location string, opts SourceOptions) (Source, error) {
	loc := strings.TrimSpace(location)
	if loc == "" {
		loc = DefaultURL
	}
	switch {
	case strings.HasPrefix(loc, "http://"), strings.HasPrefix(loc, "https://"):
		hc := opts.HTTPClient
		if hc == nil {
			timeout := opts.Timeout
			if timeout <= 0 {
				timeout = 30 * time.Second
			}
			hc = &http.Client{Timeout: timeout}
		}
		return &httpSource{url: loc, client: hc}, nil
	case strings.HasPrefix(loc, "s3://"):
		u, err := url.Parse(loc)
		if err != nil {
			return nil, fmt.Errorf("parse s3 location: %w", err)
		}
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return nil, fmt.Errorf("s3 location must be s3://bucket/key, got %q", loc)
		}
		return &s3Source{location: loc, bucket: u.Host, key: key, client: opts.S3Client, opts: opts.S3}, nil
	case strings.HasPrefix(loc, "file://"):
		return fileSource(strings.TrimPrefix(loc, "file://")), nil
	default:
		return fileSource(loc), nil
	}
}

type httpSource struct {
	url    string
	client *http.Client
}

func (s *httpSource) Location() string { return s.url }

func (s *httpSource) Open(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		resp.Body.Close()
		return nil, fmt.Errorf("fetch: unexpected status %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}
	return resp.Body, nil
}

type fileSource string

func (s fileSource) Location() string { return string(s) }

func (s fileSource) Open(context.Context) (io.ReadCloser, error) {
	f, err := os.Open(string(s))
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}

// ObjectGetter is the subset of the S3 API used by the s3:// source.
type ObjectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type s3Source struct {
	location string
	bucket   string
	key      string
	client   ObjectGetter
	opts     S3Options
}

func (s *s3Source) Location() string { return s.location }

func (s *s3Source) Open(ctx context.Context) (io.ReadCloser, error) {
	client := s.client
	if client == nil {
		c, err := newS3Client(ctx, s.opts)
		if err != nil {
			return nil, err
		}
		client = c
	}
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("s3 object %s/%s not found: %w", s.bucket, s.key, err)
		}
		return nil, fmt.Errorf("s3 get object: %w", err)
	}
	return out.Body, nil
}

func newS3Client(ctx context.Context, o S3Options) (*s3.Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if o.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(o.Region))
	}
	if o.AccessKeyID != "" && o.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.AccessKeyID, o.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(so *s3.Options) {
		if o.Endpoint != "" {
			so.BaseEndpoint = aws.String(o.Endpoint)
		}
		so.UsePathStyle = o.PathStyle
	}), nil
}
