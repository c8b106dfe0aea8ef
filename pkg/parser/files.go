package parser

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ParseFile opens path and parses it with p
func ParseFile(p Parser, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &FileError{Path: path, Err: fmt.Errorf("failed to open: %w", err)}
	}
	defer f.Close()

	return p.Parse(f, path)
}

// ParseFiles parses each path independently with at most workers files in
// flight. A file that cannot be read is reported in the second return value
// and does not stop the others; the lines read before a failure still yield a
// result. Both slices are sorted by path.
func ParseFiles(ctx context.Context, p Parser, paths []string, workers int) ([]*Result, []*FileError) {
	if workers < 1 {
		workers = 1
	}

	var (
		mu      sync.Mutex
		results []*Result
		failed  []*FileError
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				mu.Lock()
				failed = append(failed, &FileError{Path: path, Err: err})
				mu.Unlock()
				return nil
			}

			res, err := ParseFile(p, path)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				fe, ok := err.(*FileError)
				if !ok {
					fe = &FileError{Path: path, Err: err}
				}
				failed = append(failed, fe)
				if res != nil && res.TotalLines > 0 {
					results = append(results, res)
				}
				return nil
			}
			results = append(results, res)
			return nil
		})
	}

	// Workers never return an error
	_ = g.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Path < results[j].Path })
	sort.Slice(failed, func(i, j int) bool { return failed[i].Path < failed[j].Path })

	return results, failed
}

// DuplicateSources returns the report names shared by more than one result,
// mapped to the paths that produced them. Stores key reports by name, so
// such results would replace each other.
func DuplicateSources(results []*Result) map[string][]string {
	paths := make(map[string][]string)
	for _, res := range results {
		name := res.Report.SourceName
		paths[name] = append(paths[name], res.Path)
	}
	for name, p := range paths {
		if len(p) < 2 {
			delete(paths, name)
		}
	}
	return paths
}
