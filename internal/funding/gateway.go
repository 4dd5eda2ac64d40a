package funding

import (
	"context"
	"sync"

	"github.com/congo-pay/congo_wallet/internal/paystack"
)

// Gateway is the payment gateway capability the deposit engine consumes.
type Gateway interface {
	InitializeTransaction(ctx context.Context, in paystack.InitializeRequest) (paystack.Session, error)
	VerifyTransaction(ctx context.Context, reference string) (paystack.Verification, error)
}

var _ Gateway = (*paystack.Client)(nil)

// StaticGateway simulates a gateway that accepts every session and reports
// every known reference as paid.
type StaticGateway struct {
	CheckoutURL string

	mu       sync.Mutex
	sessions map[string]paystack.InitializeRequest
}

// InitializeTransaction records the request and returns a synthetic session.
func (g *StaticGateway) InitializeTransaction(_ context.Context, in paystack.InitializeRequest) (paystack.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sessions == nil {
		g.sessions = make(map[string]paystack.InitializeRequest)
	}
	g.sessions[in.Reference] = in
	base := g.CheckoutURL
	if base == "" {
		base = "https://checkout.example.test/"
	}
	return paystack.Session{AuthorizationURL: base + in.Reference, AccessCode: in.Reference, Reference: in.Reference}, nil
}

// VerifyTransaction reports success for references it initialized.
func (g *StaticGateway) VerifyTransaction(_ context.Context, reference string) (paystack.Verification, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	in, ok := g.sessions[reference]
	if !ok {
		return paystack.Verification{Reference: reference, Status: "abandoned"}, nil
	}
	return paystack.Verification{Reference: reference, Status: "success", Amount: in.Amount}, nil
}

// Session returns the request recorded for reference.
func (g *StaticGateway) Session(reference string) (paystack.InitializeRequest, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	in, ok := g.sessions[reference]
	return in, ok
}
