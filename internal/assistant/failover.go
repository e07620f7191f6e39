package assistant

import (
	"context"
	"log"

	"github.com/antoniostano/ridewise/internal/reliability"
)

// FailoverAdapter serves canned answers when the primary adapter hits quota
// or rate limits, so the chat stays responsive instead of erroring out.
// Non-quota failures propagate; those indicate a real problem worth showing.
type FailoverAdapter struct {
	primary Adapter
	canned  CannedAdapter
}

func NewFailoverAdapter(primary Adapter) *FailoverAdapter {
	return &FailoverAdapter{primary: primary}
}

func (f *FailoverAdapter) Available() bool {
	return f.primary != nil && f.primary.Available()
}

func (f *FailoverAdapter) Generate(ctx context.Context, req Request) (Reply, error) {
	if !f.Available() {
		return Reply{}, ErrUnavailable
	}

	reply, err := f.primary.Generate(ctx, req)
	if err == nil {
		return reply, nil
	}
	if reliability.IsQuotaFailure(err.Error()) {
		log.Printf("assistant: quota exhausted, serving canned reply: %v", err)
		return f.canned.Generate(ctx, req)
	}
	return Reply{}, err
}
