package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/viralforge/reelpay/internal/application"
	"github.com/viralforge/reelpay/internal/ports"
)

// Faucet is the mock medium exposed under /v1/token in development.
type Faucet interface {
	ports.ValueTransfer
	ports.Mintable
	Symbol() string
	ToUnits(amount decimal.Decimal) (int64, error)
	FromUnits(units int64) decimal.Decimal
}

type Handler struct {
	authority *application.Authority
	registry  *application.Registry
	ledger    *application.EscrowLedger
	engine    *application.Engine
	verifier  ports.TokenVerifier
	faucet    Faucet
}

type HandlerDeps struct {
	Authority *application.Authority
	Registry  *application.Registry
	Ledger    *application.EscrowLedger
	Engine    *application.Engine
	Verifier  ports.TokenVerifier
	Faucet    Faucet
}

func NewHandler(deps HandlerDeps) *Handler {
	return &Handler{
		authority: deps.Authority,
		registry:  deps.Registry,
		ledger:    deps.Ledger,
		engine:    deps.Engine,
		verifier:  deps.Verifier,
		faucet:    deps.Faucet,
	}
}

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { writeMessage(w, http.StatusOK, "ok") })
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) { writeMessage(w, http.StatusOK, "ready") })

	r.Route("/v1", func(r chi.Router) {
		r.Get("/products/{product_id}/policy", handler.getCommissionPolicy)
		r.Get("/products/{product_id}/policy/resolved", handler.resolvePolicy)
		r.Get("/advertisers/{account}", handler.getAdvertiser)
		r.Get("/marketers/{account}", handler.getMarketer)
		r.Get("/escrow/{advertiser}", handler.getEscrow)
		r.Get("/rewards/{account}", handler.getClaimable)
		r.Get("/orders/{order_id}", handler.getOrder)
		r.Get("/roles/{role}/members/{account}", handler.hasRole)
		r.Get("/settlement", handler.settlementInfo)

		r.Group(func(r chi.Router) {
			r.Use(handler.authMiddleware)
			r.Post("/roles/{role}/grants", handler.grantRole)
			r.Post("/roles/{role}/revocations", handler.revokeRole)
			r.Post("/roles/{role}/renounce", handler.renounceRole)

			r.Post("/advertisers", handler.registerAdvertiser)
			r.Put("/advertisers/{account}", handler.updateAdvertiser)
			r.Post("/marketers", handler.registerMarketer)
			r.Put("/products/{product_id}/policy", handler.setCommissionPolicy)

			r.Post("/escrow/deposits", handler.depositEscrow)
			r.Post("/rewards/claims", handler.claimRewards)

			r.Post("/orders/approved", handler.submitApprovedOrder)
			r.Post("/orders/direct", handler.processDirectPayment)

			if handler.faucet != nil {
				r.Post("/token/approvals", handler.tokenApprove)
				r.Post("/token/mint", handler.tokenMint)
			}
		})

		if handler.faucet != nil {
			r.Get("/token/balances/{account}", handler.tokenBalance)
		}
	})
	return r
}
