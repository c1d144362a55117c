package enclave

import (
	"context"

	"github.com/suirifyprotocol/suirify-sub000/interfaces"
)

// LocalSigner runs the signer in-process. Test double for the socket client;
// production deployments keep the key in the separate enclave daemon.
type LocalSigner struct {
	signer *SimpleSigner
}

// NewLocalSigner wraps a SimpleSigner as an interfaces.Signer.
func NewLocalSigner(signer *SimpleSigner) *LocalSigner {
	return &LocalSigner{signer: signer}
}

// Sign signs the payload with the in-process key.
func (l *LocalSigner) Sign(ctx context.Context, data []byte) (*interfaces.SignResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	signature, err := l.signer.SignPayload(data)
	if err != nil {
		return nil, err
	}
	return &interfaces.SignResult{Signature: signature, PublicKey: l.signer.PublicKey()}, nil
}

var _ interfaces.Signer = (*LocalSigner)(nil)
