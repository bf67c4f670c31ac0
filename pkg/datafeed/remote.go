package datafeed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	kerrors "github.com/vango-dev/klinecore/internal/errors"
)

// HTTPFeed fetches chart payloads over HTTP.
type HTTPFeed struct {
	// URL is the request URL with one %s verb for the escaped symbol, e.g.
	// "https://query1.finance.yahoo.com/v8/finance/chart/%s?interval=1d".
	URL string

	// Client defaults to http.DefaultClient.
	Client *http.Client
}

// History implements Feed.
func (f *HTTPFeed) History(ctx context.Context, symbol string) ([]Candle, error) {
	target := fmt.Sprintf(f.URL, url.PathEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, kerrors.New("E703").WithDetail(target).Wrap(err)
	}
	req.Header.Set("Accept", "application/json")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, kerrors.New("E703").WithDetail(target).Wrap(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrUnknownSymbol
	case resp.StatusCode != http.StatusOK:
		io.Copy(io.Discard, resp.Body)
		return nil, kerrors.New("E703").WithDetailf("%s: %s", target, resp.Status)
	}

	_, candles, err := ParseChart(resp.Body)
	return candles, err
}

// ObjectGetter is the subset of the S3 client used by ObjectFeed.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// ObjectFeed reads chart payloads stored as <prefix><symbol>.json objects in
// an S3-compatible bucket.
type ObjectFeed struct {
	client ObjectGetter
	bucket string
	prefix string
}

// NewObjectFeed creates a feed reading from bucket under prefix.
func NewObjectFeed(client ObjectGetter, bucket, prefix string) *ObjectFeed {
	return &ObjectFeed{client: client, bucket: bucket, prefix: prefix}
}

// Key returns the object key holding symbol's payload.
func (f *ObjectFeed) Key(symbol string) string {
	return f.prefix + symbol + ".json"
}

// History implements Feed.
func (f *ObjectFeed) History(ctx context.Context, symbol string) ([]Candle, error) {
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(f.Key(symbol)),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, ErrUnknownSymbol
		}
		return nil, kerrors.New("E703").WithDetailf("s3://%s/%s", f.bucket, f.Key(symbol)).Wrap(err)
	}
	defer out.Body.Close()

	_, candles, err := ParseChart(out.Body)
	return candles, err
}

// ParseObjectURL splits "s3://bucket/prefix/" into bucket and prefix.
func ParseObjectURL(raw string) (bucket, prefix string, err error) {
	rest, ok := strings.CutPrefix(raw, "s3://")
	if !ok {
		return "", "", fmt.Errorf("datafeed: %q is not an s3:// URL", raw)
	}
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("datafeed: %q has no bucket", raw)
	}
	return bucket, prefix, nil
}

// NewS3Client creates an S3 client for region. A non-empty endpoint selects
// an S3-compatible server with path-style addressing. Credentials come from
// AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and AWS_SESSION_TOKEN; without
// them requests are anonymous.
func NewS3Client(region, endpoint string) *s3.Client {
	opts := s3.Options{
		Region:      region,
		Credentials: envCredentials(),
	}
	if endpoint != "" {
		opts.BaseEndpoint = aws.String(endpoint)
		opts.UsePathStyle = true
	}
	return s3.New(opts)
}

func envCredentials() aws.CredentialsProvider {
	id, secret := os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY")
	if id == "" || secret == "" {
		return aws.AnonymousCredentials{}
	}
	creds := aws.Credentials{
		AccessKeyID:     id,
		SecretAccessKey: secret,
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Source:          "environment",
	}
	return aws.NewCredentialsCache(aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		return creds, nil
	}))
}
