package pagerank

import (
	"math"

	"github.com/pregelrank/pregelrank/bspgraph"
	"github.com/pregelrank/pregelrank/bspgraph/message"
	"golang.org/x/xerrors"
)

// IncomingScoreMessage carries the share of a vertex score that flows along
// one outgoing edge.
type IncomingScoreMessage struct {
	Score float64
}

// Type implements message.Message.
func (pr IncomingScoreMessage) Type() string { return "score" }

// Value returns the score carried by the message.
func (pr IncomingScoreMessage) Value() float64 { return pr.Score }

// makeComputeFunc returns the vertex program for a single PageRank iteration.
func makeComputeFunc(dampingFactor, perVertexTolerance float64) bspgraph.ComputeFunc {
	return func(p *bspgraph.Partition, v *bspgraph.Vertex, msgIt message.Iterator) error {
		var (
			superstep = p.Superstep()
			numVerts  = float64(p.NumVertices())
			newScore  float64
		)

		switch superstep {
		case 0:
			// Uniform start; scores sum to 1.
			newScore = 1.0 / numVerts
		default:
			var incoming float64
			for msgIt.Next() {
				scalar, ok := msgIt.Message().(message.Scalar)
				if !ok {
					return xerrors.Errorf("unexpected message type %q", msgIt.Message().Type())
				}
				incoming += scalar.Value()
			}
			if err := msgIt.Error(); err != nil {
				return err
			}

			// Dangling mass from the previous step is shared uniformly.
			danglingMass := p.Aggregator(danglingInputAccName(superstep)).Get().(float64)
			newScore = (1.0-dampingFactor)/numVerts + dampingFactor*(incoming+danglingMass/numVerts)

			absDelta := math.Abs(v.Value().(float64) - newScore)
			p.Aggregator(sadAccName).Aggregate(absDelta)
			if absDelta < perVertexTolerance {
				v.Freeze()
				p.Aggregator(haltedAccName).Aggregate(1)
			}
		}

		v.SetValue(newScore)

		// A vertex without out-links contributes its whole score to the
		// dangling mass consumed by the next superstep.
		numOutLinks := len(v.Edges())
		if numOutLinks == 0 {
			p.Aggregator(danglingOutputAccName(superstep)).Aggregate(newScore)
			return nil
		}

		return p.BroadcastToNeighbors(v, IncomingScoreMessage{Score: newScore / float64(numOutLinks)})
	}
}
