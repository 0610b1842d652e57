package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/viralforge/reelpay/internal/application"
	"github.com/viralforge/reelpay/internal/contracts"
	"github.com/viralforge/reelpay/internal/domain"
)

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status, code, msg := mapDomainError(err)
	logHTTPOperationError(r.Context(), operation, status, code, msg, err)
	writeError(w, status, code, msg, requestIDFromContext(r.Context()))
}

func decode(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json body", requestIDFromContext(r.Context()))
		return false
	}
	return true
}

func pathAccount(r *http.Request, name string) domain.Account {
	return domain.NormalizeAccount(chi.URLParam(r, name))
}

func (h *Handler) hasRole(w http.ResponseWriter, r *http.Request) {
	role := domain.NormalizeRole(chi.URLParam(r, "role"))
	account := pathAccount(r, "account")
	ok, err := h.authority.HasRole(r.Context(), role, account)
	if err != nil {
		h.fail(w, r, "has_role", err)
		return
	}
	writeSuccess(w, http.StatusOK, "", contracts.RoleMembershipResponse{Role: string(role), Account: account.String(), Member: ok})
}

func (h *Handler) grantRole(w http.ResponseWriter, r *http.Request) {
	h.changeRole(w, r, true)
}

func (h *Handler) revokeRole(w http.ResponseWriter, r *http.Request) {
	h.changeRole(w, r, false)
}

func (h *Handler) changeRole(w http.ResponseWriter, r *http.Request, grant bool) {
	var req contracts.RoleGrantRequest
	if !decode(w, r, &req) {
		return
	}
	role := domain.NormalizeRole(chi.URLParam(r, "role"))
	account := domain.NormalizeAccount(req.Account)
	actor := actorFromContext(r.Context())
	var err error
	operation := "grant_role"
	if grant {
		err = h.authority.GrantRole(r.Context(), actor, role, account)
	} else {
		operation = "revoke_role"
		err = h.authority.RevokeRole(r.Context(), actor, role, account)
	}
	if err != nil {
		h.fail(w, r, operation, err)
		return
	}
	writeSuccess(w, http.StatusOK, "role updated", contracts.RoleMembershipResponse{Role: string(role), Account: account.String(), Member: grant})
}

func (h *Handler) renounceRole(w http.ResponseWriter, r *http.Request) {
	role := domain.NormalizeRole(chi.URLParam(r, "role"))
	actor := actorFromContext(r.Context())
	if err := h.authority.RenounceRole(r.Context(), actor, role); err != nil {
		h.fail(w, r, "renounce_role", err)
		return
	}
	writeSuccess(w, http.StatusOK, "role renounced", contracts.RoleMembershipResponse{Role: string(role), Account: actor.Account.String(), Member: false})
}

func (h *Handler) registerAdvertiser(w http.ResponseWriter, r *http.Request) {
	var req contracts.RegisterAdvertiserRequest
	if !decode(w, r, &req) {
		return
	}
	adv, err := h.registry.RegisterAdvertiser(r.Context(), actorFromContext(r.Context()), application.RegisterAdvertiserInput{
		Account: req.Account, Name: req.Name, DefaultRateBps: req.DefaultRateBps, MinTopUp: req.MinTopUp,
	})
	if err != nil {
		h.fail(w, r, "register_advertiser", err)
		return
	}
	writeSuccess(w, http.StatusCreated, "advertiser registered", toAdvertiserResponse(adv))
}

func (h *Handler) updateAdvertiser(w http.ResponseWriter, r *http.Request) {
	var req contracts.UpdateAdvertiserRequest
	if !decode(w, r, &req) {
		return
	}
	adv, err := h.registry.UpdateAdvertiser(r.Context(), actorFromContext(r.Context()), application.UpdateAdvertiserInput{
		Account: chi.URLParam(r, "account"), DefaultRateBps: req.DefaultRateBps, MinTopUp: req.MinTopUp,
	})
	if err != nil {
		h.fail(w, r, "update_advertiser", err)
		return
	}
	writeSuccess(w, http.StatusOK, "advertiser updated", toAdvertiserResponse(adv))
}

func (h *Handler) getAdvertiser(w http.ResponseWriter, r *http.Request) {
	adv, err := h.registry.GetAdvertiser(r.Context(), pathAccount(r, "account"))
	if err != nil {
		h.fail(w, r, "get_advertiser", err)
		return
	}
	writeSuccess(w, http.StatusOK, "", toAdvertiserResponse(adv))
}

func (h *Handler) registerMarketer(w http.ResponseWriter, r *http.Request) {
	var req contracts.RegisterMarketerRequest
	if !decode(w, r, &req) {
		return
	}
	m, err := h.registry.RegisterMarketer(r.Context(), actorFromContext(r.Context()), application.RegisterMarketerInput{Account: req.Account, Handle: req.Handle})
	if err != nil {
		h.fail(w, r, "register_marketer", err)
		return
	}
	writeSuccess(w, http.StatusCreated, "marketer registered", contracts.MarketerResponse{Account: m.Account.String(), Handle: m.Handle})
}

func (h *Handler) getMarketer(w http.ResponseWriter, r *http.Request) {
	m, err := h.registry.GetMarketer(r.Context(), pathAccount(r, "account"))
	if err != nil {
		h.fail(w, r, "get_marketer", err)
		return
	}
	writeSuccess(w, http.StatusOK, "", contracts.MarketerResponse{Account: m.Account.String(), Handle: m.Handle})
}

func (h *Handler) setCommissionPolicy(w http.ResponseWriter, r *http.Request) {
	var req contracts.SetCommissionPolicyRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.registry.SetCommissionPolicy(r.Context(), actorFromContext(r.Context()), application.SetCommissionPolicyInput{
		ProductID: chi.URLParam(r, "product_id"), MarketerRateBps: req.MarketerRateBps, PlatformRateBps: req.PlatformRateBps, Active: req.Active,
	})
	if err != nil {
		h.fail(w, r, "set_commission_policy", err)
		return
	}
	writeSuccess(w, http.StatusOK, "policy saved", toPolicyResponse(p))
}

func (h *Handler) getCommissionPolicy(w http.ResponseWriter, r *http.Request) {
	p, err := h.registry.GetCommissionPolicy(r.Context(), chi.URLParam(r, "product_id"))
	if err != nil {
		h.fail(w, r, "get_commission_policy", err)
		return
	}
	writeSuccess(w, http.StatusOK, "", toPolicyResponse(p))
}

func (h *Handler) resolvePolicy(w http.ResponseWriter, r *http.Request) {
	advertiser := domain.NormalizeAccount(r.URL.Query().Get("advertiser"))
	if advertiser.IsZero() {
		h.fail(w, r, "resolve_policy", domain.ErrInvalidInput)
		return
	}
	p, err := h.registry.ResolvePolicy(r.Context(), chi.URLParam(r, "product_id"), advertiser)
	if err != nil {
		h.fail(w, r, "resolve_policy", err)
		return
	}
	writeSuccess(w, http.StatusOK, "", contracts.ResolvedPolicyResponse{
		ProductID: p.ProductID, Advertiser: p.Advertiser.String(), MarketerBps: p.MarketerBps, PlatformBps: p.PlatformBps, FromPolicy: p.FromPolicy,
	})
}

func (h *Handler) depositEscrow(w http.ResponseWriter, r *http.Request) {
	var req contracts.DepositEscrowRequest
	if !decode(w, r, &req) {
		return
	}
	e, err := h.ledger.DepositEscrow(r.Context(), actorFromContext(r.Context()), req.Amount)
	if err != nil {
		h.fail(w, r, "deposit_escrow", err)
		return
	}
	writeSuccess(w, http.StatusOK, "escrow deposited", contracts.EscrowBalanceResponse{Advertiser: e.Advertiser.String(), Balance: e.Balance, TotalDeposited: e.TotalDeposited})
}

func (h *Handler) getEscrow(w http.ResponseWriter, r *http.Request) {
	e, err := h.ledger.GetEscrow(r.Context(), pathAccount(r, "advertiser"))
	if err != nil {
		h.fail(w, r, "get_escrow", err)
		return
	}
	writeSuccess(w, http.StatusOK, "", contracts.EscrowBalanceResponse{Advertiser: e.Advertiser.String(), Balance: e.Balance, TotalDeposited: e.TotalDeposited})
}

func (h *Handler) getClaimable(w http.ResponseWriter, r *http.Request) {
	account := pathAccount(r, "account")
	amount, err := h.ledger.ClaimableRewards(r.Context(), account)
	if err != nil {
		h.fail(w, r, "get_claimable", err)
		return
	}
	writeSuccess(w, http.StatusOK, "", contracts.ClaimableResponse{Account: account.String(), Claimable: amount})
}

func (h *Handler) claimRewards(w http.ResponseWriter, r *http.Request) {
	res, err := h.ledger.ClaimRewards(r.Context(), actorFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, "claim_rewards", err)
		return
	}
	writeSuccess(w, http.StatusOK, "rewards claimed", contracts.ClaimResponse{Account: res.Beneficiary.String(), Amount: res.Amount})
}

func (h *Handler) submitApprovedOrder(w http.ResponseWriter, r *http.Request) {
	var req contracts.SubmitApprovedOrderRequest
	if !decode(w, r, &req) {
		return
	}
	rec, err := h.engine.SubmitApprovedOrder(r.Context(), actorFromContext(r.Context()), application.SubmitApprovedOrderInput{
		OrderID: req.OrderID, ProductID: req.ProductID, Advertiser: req.Advertiser, Marketer: req.Marketer, Buyer: req.Buyer, Amount: req.Amount,
	})
	if err != nil {
		h.fail(w, r, "submit_approved_order", err)
		return
	}
	writeSuccess(w, http.StatusOK, "order settled", toOrderResponse(rec))
}

func (h *Handler) processDirectPayment(w http.ResponseWriter, r *http.Request) {
	var req contracts.DirectPaymentRequest
	if !decode(w, r, &req) {
		return
	}
	rec, err := h.engine.ProcessDirectPayment(r.Context(), actorFromContext(r.Context()), application.DirectPaymentInput{
		OrderID: req.OrderID, ProductID: req.ProductID, Advertiser: req.Advertiser, Marketer: req.Marketer, Amount: req.Amount,
	})
	if err != nil {
		h.fail(w, r, "process_direct_payment", err)
		return
	}
	writeSuccess(w, http.StatusOK, "payment settled", toOrderResponse(rec))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := strings.TrimSpace(chi.URLParam(r, "order_id"))
	rec, err := h.engine.GetOrder(r.Context(), orderID)
	if err != nil {
		h.fail(w, r, "get_order", err)
		return
	}
	writeSuccess(w, http.StatusOK, "", toOrderResponse(rec))
}

func (h *Handler) settlementInfo(w http.ResponseWriter, r *http.Request) {
	platform, err := h.registry.PlatformWallet(r.Context())
	if err != nil {
		h.fail(w, r, "settlement_info", err)
		return
	}
	engine, err := h.ledger.SettlementEngine(r.Context())
	if err != nil {
		h.fail(w, r, "settlement_info", err)
		return
	}
	liabilities, err := h.ledger.Liabilities(r.Context())
	if err != nil {
		h.fail(w, r, "settlement_info", err)
		return
	}
	writeSuccess(w, http.StatusOK, "", map[string]any{
		"custody":         h.ledger.Custody().String(),
		"engine":          engine.String(),
		"platform_wallet": platform.String(),
		"liabilities":     liabilities,
	})
}

// tokenMint is limited to ADMIN members.
func (h *Handler) tokenMint(w http.ResponseWriter, r *http.Request) {
	var req contracts.MintRequest
	if !decode(w, r, &req) {
		return
	}
	isAdmin, err := h.authority.HasRole(r.Context(), domain.RoleAdmin, actorFromContext(r.Context()).Account)
	if err != nil {
		h.fail(w, r, "token_mint", err)
		return
	}
	if !isAdmin {
		h.fail(w, r, "token_mint", domain.ErrUnauthorized)
		return
	}
	account := domain.NormalizeAccount(req.Account)
	amount := req.Amount
	if req.DisplayAmount != "" {
		parsed, err := decimal.NewFromString(req.DisplayAmount)
		if err != nil {
			h.fail(w, r, "token_mint", domain.ErrInvalidInput)
			return
		}
		if amount, err = h.faucet.ToUnits(parsed); err != nil {
			h.fail(w, r, "token_mint", err)
			return
		}
	}
	if err := h.faucet.Mint(r.Context(), account, amount); err != nil {
		h.fail(w, r, "token_mint", err)
		return
	}
	bal, _ := h.faucet.BalanceOf(r.Context(), account)
	writeSuccess(w, http.StatusOK, "minted", h.tokenBalanceResponse(account, bal))
}

func (h *Handler) tokenApprove(w http.ResponseWriter, r *http.Request) {
	var req contracts.ApproveRequest
	if !decode(w, r, &req) {
		return
	}
	owner := actorFromContext(r.Context()).Account
	if err := h.faucet.Approve(r.Context(), owner, domain.NormalizeAccount(req.Spender), req.Amount); err != nil {
		h.fail(w, r, "token_approve", err)
		return
	}
	writeMessage(w, http.StatusOK, "approved")
}

func (h *Handler) tokenBalance(w http.ResponseWriter, r *http.Request) {
	account := pathAccount(r, "account")
	bal, err := h.faucet.BalanceOf(r.Context(), account)
	if err != nil {
		h.fail(w, r, "token_balance", err)
		return
	}
	writeSuccess(w, http.StatusOK, "", h.tokenBalanceResponse(account, bal))
}

func (h *Handler) tokenBalanceResponse(account domain.Account, units int64) contracts.TokenBalanceResponse {
	return contracts.TokenBalanceResponse{
		Account: account.String(),
		Balance: units,
		Display: h.faucet.FromUnits(units).String(),
		Symbol:  h.faucet.Symbol(),
	}
}

func toAdvertiserResponse(a domain.Advertiser) contracts.AdvertiserResponse {
	return contracts.AdvertiserResponse{Account: a.Account.String(), Name: a.Name, DefaultRateBps: a.DefaultRateBps, MinTopUp: a.MinTopUp}
}

func toPolicyResponse(p domain.CommissionPolicy) contracts.CommissionPolicyResponse {
	return contracts.CommissionPolicyResponse{ProductID: p.ProductID, MarketerRateBps: p.MarketerRateBps, PlatformRateBps: p.PlatformRateBps, Active: p.Active}
}

func toOrderResponse(o domain.OrderRecord) contracts.OrderResponse {
	return contracts.OrderResponse{
		OrderID:         o.OrderID,
		Status:          string(o.Status()),
		Flow:            string(o.Flow),
		ProductID:       o.ProductID,
		Advertiser:      o.Advertiser.String(),
		Marketer:        o.Marketer.String(),
		Buyer:           o.Buyer.String(),
		Platform:        o.Platform.String(),
		Amount:          o.Amount,
		MarketerCut:     o.Split.MarketerCut,
		PlatformCut:     o.Split.PlatformCut,
		AdvertiserShare: o.Split.AdvertiserShare,
		ProcessedAt:     o.ProcessedAt.UTC().Format(time.RFC3339),
	}
}
