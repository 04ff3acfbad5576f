package tableclient

import (
	"fmt"

	"github.com/c360/replaystream/element"
	"github.com/c360/replaystream/errors"
	"github.com/c360/replaystream/sample"
)

// NATS subjects of the replay service.
const (
	subjectInfo        = "replay.v1.info"
	subjectSampleOpen  = "replay.v1.sample.open"
	subjectSampleNext  = "replay.v1.sample.next"
	subjectSampleClose = "replay.v1.sample.close"
	subjectReset       = "replay.v1.reset"

	// Broadcast, not request/reply: the server announces table lifecycle
	// changes (creation, reset, checkpoint restore) here.
	subjectTablesChanged = "replay.v1.tables.changed"
)

// Error codes carried in wire responses.
const (
	codeRateLimiterTimeout = "rate_limiter_timeout"
	codeNotFound           = "not_found"
	codeInvalidArgument    = "invalid_argument"
	codeNoSignature        = "no_signature"
	codeInternal           = "internal"
)

// wireError is the error envelope every response may carry instead of a
// payload.
type wireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// toError maps a wire error onto the client's error taxonomy.
func (e *wireError) toError() error {
	switch e.Code {
	case codeRateLimiterTimeout:
		return errors.ErrRateLimiterTimeout
	case codeNotFound:
		return fmt.Errorf("%w: %s", errors.ErrTableNotFound, e.Message)
	case codeInvalidArgument:
		return fmt.Errorf("%w: %s", errors.ErrInvalidArgument, e.Message)
	case codeNoSignature:
		return fmt.Errorf("%w: %s", errors.ErrNoSignature, e.Message)
	default:
		return fmt.Errorf("replay service error (%s): %s", e.Code, e.Message)
	}
}

// wireLeaf is one flattened signature entry.
type wireLeaf struct {
	Path  string `json:"path"`
	DType string `json:"dtype"`
	Shape []int  `json:"shape"`
}

// wireRateLimiter mirrors sample.RateLimiterInfo.
type wireRateLimiter struct {
	SamplesPerInsert float64 `json:"samples_per_insert"`
	MinSizeToSample  int64   `json:"min_size_to_sample"`
}

// wireTableInfo is one table's metadata as the server declares it.
type wireTableInfo struct {
	Name        string           `json:"name"`
	Sampler     string           `json:"sampler"`
	Remover     string           `json:"remover"`
	MaxSize     int64            `json:"max_size"`
	CurrentSize int64            `json:"current_size"`
	RateLimiter *wireRateLimiter `json:"rate_limiter,omitempty"`
	Signature   []wireLeaf       `json:"signature,omitempty"`
}

// wireTensor is one dense tensor; Data is base64 in the JSON encoding.
type wireTensor struct {
	DType string `json:"dtype"`
	Shape []int  `json:"shape"`
	Data  []byte `json:"data"`
}

// wireItem is one sampled item with its full sequence of timesteps.
type wireItem struct {
	Key         uint64         `json:"key"`
	Probability float64        `json:"probability"`
	TableSize   uint64         `json:"table_size"`
	Priority    float64        `json:"priority"`
	Timesteps   [][]wireTensor `json:"timesteps"`
}

type infoResponse struct {
	Tables map[string]wireTableInfo `json:"tables"`
	Error  *wireError               `json:"error,omitempty"`
}

type openRequest struct {
	Table    string `json:"table"`
	StreamID string `json:"stream_id"`
}

type openResponse struct {
	Error *wireError `json:"error,omitempty"`
}

type nextRequest struct {
	StreamID  string `json:"stream_id"`
	MaxItems  int    `json:"max_items"`
	TimeoutMS int64  `json:"timeout_ms"`
}

type nextResponse struct {
	Items []wireItem `json:"items"`
	Error *wireError `json:"error,omitempty"`
}

type closeRequest struct {
	StreamID string `json:"stream_id"`
}

type closeResponse struct {
	Error *wireError `json:"error,omitempty"`
}

type resetRequest struct {
	Table string `json:"table"`
}

type resetResponse struct {
	Error *wireError `json:"error,omitempty"`
}

type tablesChangedEvent struct {
	Tables []string `json:"tables"`
}

// decodeSignature rebuilds an element.Spec from wire leaves. Returns nil
// for an absent signature.
func decodeSignature(leaves []wireLeaf) (*element.Spec, error) {
	if len(leaves) == 0 {
		return nil, nil
	}

	dtypes := make(map[string]element.DType, len(leaves))
	shapes := make(map[string]element.Shape, len(leaves))
	for _, l := range leaves {
		dt, err := element.ParseDType(l.DType)
		if err != nil {
			return nil, fmt.Errorf("signature leaf %q: %w", l.Path, err)
		}
		dtypes[l.Path] = dt
		shapes[l.Path] = element.Shape(l.Shape)
	}

	spec, err := element.NewSpec(dtypes, shapes)
	if err != nil {
		return nil, err
	}
	return &spec, nil
}

// decodeTableInfo converts one table's wire metadata.
func decodeTableInfo(w wireTableInfo) (sample.TableInfo, error) {
	signature, err := decodeSignature(w.Signature)
	if err != nil {
		return sample.TableInfo{}, fmt.Errorf("table %q: %w", w.Name, err)
	}

	info := sample.TableInfo{
		Name:        w.Name,
		Sampler:     w.Sampler,
		Remover:     w.Remover,
		MaxSize:     w.MaxSize,
		CurrentSize: w.CurrentSize,
		Signature:   signature,
	}
	if w.RateLimiter != nil {
		info.RateLimiter = sample.RateLimiterInfo{
			SamplesPerInsert: w.RateLimiter.SamplesPerInsert,
			MinSizeToSample:  w.RateLimiter.MinSizeToSample,
		}
	}
	return info, nil
}

// decodeTensor converts one wire tensor, checking dtype and data size.
func decodeTensor(w wireTensor) (element.Tensor, error) {
	dt, err := element.ParseDType(w.DType)
	if err != nil {
		return element.Tensor{}, err
	}
	return element.NewTensor(dt, element.Shape(w.Shape), w.Data)
}

// decodeItem converts one sampled item into its domain form.
func decodeItem(w wireItem) (sample.PrioritizedItem, error) {
	item := sample.PrioritizedItem{
		Info: sample.Info{
			Key:         w.Key,
			Probability: w.Probability,
			TableSize:   w.TableSize,
			Priority:    w.Priority,
		},
		Timesteps: make([]sample.Timestep, len(w.Timesteps)),
	}
	for i, step := range w.Timesteps {
		decoded := make(sample.Timestep, len(step))
		for j, t := range step {
			tensor, err := decodeTensor(t)
			if err != nil {
				return sample.PrioritizedItem{}, fmt.Errorf("item %d timestep %d leaf %d: %w", w.Key, i, j, err)
			}
			decoded[j] = tensor
		}
		item.Timesteps[i] = decoded
	}
	return item, nil
}

// encodeSignature flattens a spec into wire leaves; used by test servers
// and kept symmetric with decodeSignature.
func encodeSignature(spec *element.Spec) []wireLeaf {
	if spec == nil {
		return nil
	}
	leaves := make([]wireLeaf, 0, spec.Len())
	for _, l := range spec.Leaves() {
		leaves = append(leaves, wireLeaf{
			Path:  l.Path,
			DType: l.DType.String(),
			Shape: l.Shape,
		})
	}
	return leaves
}

// encodeItem is the inverse of decodeItem.
func encodeItem(item sample.PrioritizedItem) wireItem {
	w := wireItem{
		Key:         item.Info.Key,
		Probability: item.Info.Probability,
		TableSize:   item.Info.TableSize,
		Priority:    item.Info.Priority,
		Timesteps:   make([][]wireTensor, len(item.Timesteps)),
	}
	for i, step := range item.Timesteps {
		encoded := make([]wireTensor, len(step))
		for j, t := range step {
			encoded[j] = wireTensor{
				DType: t.DType.String(),
				Shape: t.Shape,
				Data:  t.Data,
			}
		}
		w.Timesteps[i] = encoded
	}
	return w
}
