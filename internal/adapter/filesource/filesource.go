// Package filesource reads a ZONDE feed from a local file. Used for
// offline analysis and for running the service without KMA credentials.
package filesource

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/couchcryptid/sounding-skewt/internal/domain"
)

// Source fetches raw sounding text from a file on each call, so the file
// can be swapped between cycles.
type Source struct {
	path    string
	station string
}

func New(path, station string) *Source {
	return &Source{path: path, station: station}
}

func (s *Source) Fetch(ctx context.Context) (domain.RawFeed, error) {
	if err := ctx.Err(); err != nil {
		return domain.RawFeed{}, err
	}
	text, err := os.ReadFile(s.path)
	if err != nil {
		return domain.RawFeed{}, fmt.Errorf("read sounding file: %w", err)
	}
	return domain.RawFeed{
		Station:     s.station,
		Text:        text,
		RetrievedAt: time.Now().UTC(),
	}, nil
}
