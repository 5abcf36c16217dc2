package filter

import (
	"fmt"

	"github.com/robert-malhotra/h5view/internal/message"
)

// Pipeline undoes a dataset's filters for each chunk read.
type Pipeline struct {
	stages []Filter
}

// NewPipeline builds the decoder for fp, which may be nil.
func NewPipeline(fp *message.FilterPipeline) (*Pipeline, error) {
	p := &Pipeline{}
	if fp == nil {
		return p, nil
	}
	for _, info := range fp.Filters {
		f, err := New(info)
		if err != nil {
			return nil, fmt.Errorf("creating filter %d: %w", info.ID, err)
		}
		if f != nil {
			p.stages = append(p.stages, f)
		}
	}
	return p, nil
}

// Decode runs the stages last to first. Bit i of mask marks stage i as
// skipped when the chunk was written.
func (p *Pipeline) Decode(input []byte, mask uint32) ([]byte, error) {
	data := input
	for i := len(p.stages) - 1; i >= 0; i-- {
		if mask&(1<<uint(i)) != 0 {
			continue
		}
		out, err := p.stages[i].Decode(data)
		if err != nil {
			return nil, fmt.Errorf("filter %d: %w", p.stages[i].ID(), err)
		}
		data = out
	}
	return data, nil
}

func (p *Pipeline) Empty() bool { return len(p.stages) == 0 }

func (p *Pipeline) Len() int { return len(p.stages) }
