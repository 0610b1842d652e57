package ports

import "context"

type txCtxKey struct{}

type txState struct {
	tx          Tx
	interacting bool
}

// ContextWithTx is used by Store implementations to mark ctx as running inside tx.
func ContextWithTx(ctx context.Context, tx Tx) context.Context {
	return context.WithValue(ctx, txCtxKey{}, &txState{tx: tx})
}

// TxFromContext returns the open transaction carried by ctx, if any, and
// whether it is currently calling out to the value-transfer medium.
func TxFromContext(ctx context.Context) (tx Tx, interacting bool, ok bool) {
	st, ok := ctx.Value(txCtxKey{}).(*txState)
	if !ok || st == nil {
		return nil, false, false
	}
	return st.tx, st.interacting, true
}

// Interacting marks the rest of the transaction as an external call. Any
// WithinTx attempted from ctx after this point is a reentrant call.
func Interacting(ctx context.Context) context.Context {
	st, ok := ctx.Value(txCtxKey{}).(*txState)
	if !ok || st == nil {
		return ctx
	}
	return context.WithValue(ctx, txCtxKey{}, &txState{tx: st.tx, interacting: true})
}
