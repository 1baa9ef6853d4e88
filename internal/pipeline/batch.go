package pipeline

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/a3tai/mcp-paper-parser/internal/model"
)

// Input is one document of a batch.
type Input struct {
	Filename string
	Data     []byte
	// Open loads the bytes lazily when Data is nil.
	Open func() ([]byte, error)
}

// Result pairs a batch input with its outcome. Exactly one of Document and
// Err is set.
type Result struct {
	Filename string
	Document *model.ParsedDocument
	Err      error
}

// BatchParse parses inputs with at most workers concurrent parses; workers
// <= 0 uses GOMAXPROCS. A failing document does not stop the batch. Results
// are returned in input order. The returned error is ctx.Err(); inputs not
// started before cancellation carry it as their Err.
func (p *Pipeline) BatchParse(ctx context.Context, inputs []Input, workers int) ([]Result, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	results := make([]Result, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, in := range inputs {
		if err := gctx.Err(); err != nil {
			for j := i; j < len(inputs); j++ {
				results[j] = Result{Filename: inputs[j].Filename, Err: err}
			}
			_ = g.Wait()
			return results, err
		}
		g.Go(func() error {
			results[i] = p.parseInput(gctx, in)
			return nil
		})
	}
	_ = g.Wait()

	p.logger.Info("batch finished", "documents", len(inputs), "workers", workers)
	return results, ctx.Err()
}

func (p *Pipeline) parseInput(ctx context.Context, in Input) Result {
	res := Result{Filename: in.Filename}
	data := in.Data
	if data == nil && in.Open != nil {
		var err error
		if data, err = in.Open(); err != nil {
			res.Err = err
			return res
		}
	}
	res.Document, res.Err = p.Parse(ctx, data, in.Filename)
	if res.Err != nil {
		p.logger.Warn("document failed", "file", in.Filename, "error", res.Err)
	}
	return res
}
