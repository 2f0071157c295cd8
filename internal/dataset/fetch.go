package dataset

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// DefaultSource is the SpaceX launch CSV the dashboard was built around.
const DefaultSource = "https://cf-courses-data.s3.us.cloud-object-storage.appdomain.cloud/IBM-DS0321EN-SkillsNetwork/datasets/spacex_launch_geo.csv"

// Fetcher loads a Table from a URL or a local file.
type Fetcher struct {
	client *http.Client
	log    *zap.Logger
}

// NewFetcher returns a Fetcher whose HTTP requests give up after timeout.
func NewFetcher(timeout time.Duration, log *zap.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
		},
		log: log.Named("fetch"),
	}
}

// Fetch reads and parses source. http and https sources are downloaded,
// anything else is opened as a file path. There is no retry.
func (f *Fetcher) Fetch(ctx context.Context, source string) (*Table, error) {
	start := time.Now()

	var (
		body []byte
		err  error
	)
	if isRemote(source) {
		body, err = f.download(ctx, source)
	} else {
		body, err = os.ReadFile(source)
		err = errors.Wrapf(err, "read %s", source)
	}
	if err != nil {
		return nil, err
	}

	t, err := Parse(bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", source)
	}

	f.log.Info("dataset loaded",
		zap.String("source", source),
		zap.Int("bytes", len(body)),
		zap.Int("records", t.Len()),
		zap.Int("sites", len(t.sites)),
		zap.Duration("took", time.Since(start).Round(time.Millisecond)),
	)
	return t, nil
}

func (f *Fetcher) download(ctx context.Context, source string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}
	return body, nil
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}
