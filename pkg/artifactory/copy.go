package artifactory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// CopyResult reports the transfer of one artifact. Err is nil on success.
type CopyResult struct {
	Path      string
	LocalPath string
	Size      int64
	SHA256    string
	TargetURL string
	Duration  time.Duration
	Err       error
}

// Copier downloads artifacts from Source and uploads them to Target under
// the same path.
type Copier struct {
	Source *Client
	Target *Client
	// Dir holds the downloaded files. They are left in place.
	Dir string
	// Parallel bounds concurrent transfers. Values below 1 mean one at a
	// time.
	Parallel int
	// OnResult is called as each artifact completes, never concurrently.
	OnResult func(CopyResult)
}

// Copy transfers one artifact.
func (c *Copier) Copy(ctx context.Context, artifactPath string) CopyResult {
	start := time.Now()
	res := CopyResult{Path: artifactPath, TargetURL: c.Target.Endpoint().ArtifactURL(artifactPath)}

	dl, err := c.Source.Download(ctx, artifactPath, c.Dir)
	if err != nil {
		res.Err = err
		res.Duration = time.Since(start)
		return res
	}
	res.LocalPath = dl.LocalPath
	res.Size = dl.Size
	res.SHA256 = dl.SHA256

	res.Err = c.Target.Upload(ctx, artifactPath, dl.LocalPath, dl.SHA256)
	res.Duration = time.Since(start)
	return res
}

// CopyAll transfers every path. A failed artifact is recorded in its result
// and does not stop the others. Results are in the order of paths.
func (c *Copier) CopyAll(ctx context.Context, paths []string) []CopyResult {
	results := make([]CopyResult, len(paths))
	limit := c.Parallel
	if limit < 1 {
		limit = 1
	}

	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	g.SetLimit(limit)
	for i, p := range paths {
		g.Go(func() error {
			res := c.Copy(ctx, p)
			if res.Err != nil {
				slog.Warn("artifact transfer failed", "path", p, "error", res.Err)
			} else {
				slog.Info("artifact transferred", "path", p, "bytes", res.Size)
			}
			results[i] = res
			if c.OnResult != nil {
				mu.Lock()
				c.OnResult(res)
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()
	return results
}

// Failed counts results carrying an error.
func Failed(results []CopyResult) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
