package stream

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/c360/replaystream/errors"
)

// NewFromTableSignature builds a stream whose spec is taken from the
// table's declared signature instead of being supplied by the caller. For
// whole sequence emission the sequence length is prepended to every leaf
// of the signature. Unlike New this makes a metadata round trip, bounded
// by resolveTimeout; a zero or negative resolveTimeout leaves the round
// trip bounded only by ctx.
func NewFromTableSignature(ctx context.Context, client Client, table string,
	resolveTimeout time.Duration, opts Options) (*Stream, error) {

	if client == nil {
		return nil, errors.InvalidArgumentf("client must not be nil")
	}
	if table == "" {
		return nil, errors.InvalidArgumentf("table must not be empty")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	infoCtx := ctx
	if resolveTimeout > 0 {
		var cancel context.CancelFunc
		infoCtx, cancel = context.WithTimeout(ctx, resolveTimeout)
		defer cancel()
	}

	info, err := client.ServerInfo(infoCtx)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: unable to resolve signature of table %q within %s",
				errors.ErrDeadlineExceeded, table, resolveTimeout)
		}
		return nil, errors.Wrap(err, "Stream", "NewFromTableSignature", "fetch server info")
	}

	ti, ok := info[table]
	if !ok {
		return nil, fmt.Errorf("%w: unable to find table %q, the server knows tables [%s]",
			errors.ErrTableNotFound, table, strings.Join(tableNames(info), ", "))
	}
	if ti.Signature == nil {
		return nil, fmt.Errorf("%w: unable to infer a spec for table %q", errors.ErrNoSignature, table)
	}

	spec := *ti.Signature
	if !opts.EmitTimesteps {
		spec = spec.WithLeadingDim(opts.SequenceLength)
	}
	return New(client, table, spec, opts)
}
