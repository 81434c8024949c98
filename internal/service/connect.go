package service

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// Service and procedure names.
const (
	AnalyticsServiceName = "finagent.v1.AnalyticsService"
	LedgerServiceName    = "finagent.v1.LedgerService"

	GetSpendingInsightsProcedure = "/" + AnalyticsServiceName + "/GetSpendingInsights"

	RecordTransactionProcedure  = "/" + LedgerServiceName + "/RecordTransaction"
	ParseTextProcedure          = "/" + LedgerServiceName + "/ParseText"
	ParseReceiptProcedure       = "/" + LedgerServiceName + "/ParseReceipt"
	EditSplitReviewProcedure    = "/" + LedgerServiceName + "/EditSplitReview"
	ConfirmSplitReviewProcedure = "/" + LedgerServiceName + "/ConfirmSplitReview"
	CancelSplitReviewProcedure  = "/" + LedgerServiceName + "/CancelSplitReview"
	ListDebtsProcedure          = "/" + LedgerServiceName + "/ListDebts"
	SetDebtPaidProcedure        = "/" + LedgerServiceName + "/SetDebtPaid"
	ListBalancesProcedure       = "/" + LedgerServiceName + "/ListBalances"
)

// jsonCodec carries plain Go structs as JSON. It replaces Connect's
// protobuf-based "json" codec for these services.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// WithJSONCodec must be passed to every handler and client of these services.
func WithJSONCodec() connect.Option {
	return connect.WithCodec(jsonCodec{})
}

func unary[Req, Res any](mux *http.ServeMux, procedure string, fn func(context.Context, *connect.Request[Req]) (*connect.Response[Res], error), opts []connect.HandlerOption) {
	mux.Handle(procedure, connect.NewUnaryHandler(procedure, fn, append([]connect.HandlerOption{WithJSONCodec()}, opts...)...))
}

// NewAnalyticsServiceHandler builds an HTTP handler for svc and returns the
// path to mount it on.
func NewAnalyticsServiceHandler(svc *AnalyticsService, opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	unary(mux, GetSpendingInsightsProcedure, svc.GetSpendingInsights, opts)
	return "/" + AnalyticsServiceName + "/", mux
}

// NewLedgerServiceHandler builds an HTTP handler for svc and returns the
// path to mount it on.
func NewLedgerServiceHandler(svc *LedgerService, opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	unary(mux, RecordTransactionProcedure, svc.RecordTransaction, opts)
	unary(mux, ParseTextProcedure, svc.ParseText, opts)
	unary(mux, ParseReceiptProcedure, svc.ParseReceipt, opts)
	unary(mux, EditSplitReviewProcedure, svc.EditSplitReview, opts)
	unary(mux, ConfirmSplitReviewProcedure, svc.ConfirmSplitReview, opts)
	unary(mux, CancelSplitReviewProcedure, svc.CancelSplitReview, opts)
	unary(mux, ListDebtsProcedure, svc.ListDebts, opts)
	unary(mux, SetDebtPaidProcedure, svc.SetDebtPaid, opts)
	unary(mux, ListBalancesProcedure, svc.ListBalances, opts)
	return "/" + LedgerServiceName + "/", mux
}

// AnalyticsServiceClient calls AnalyticsService.
type AnalyticsServiceClient struct {
	GetSpendingInsights *connect.Client[GetSpendingInsightsRequest, GetSpendingInsightsResponse]
}

// NewAnalyticsServiceClient creates a client for the service at baseURL.
func NewAnalyticsServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *AnalyticsServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{WithJSONCodec()}, opts...)
	return &AnalyticsServiceClient{
		GetSpendingInsights: connect.NewClient[GetSpendingInsightsRequest, GetSpendingInsightsResponse](httpClient, baseURL+GetSpendingInsightsProcedure, opts...),
	}
}

// LedgerServiceClient calls LedgerService.
type LedgerServiceClient struct {
	RecordTransaction  *connect.Client[RecordTransactionRequest, RecordTransactionResponse]
	ParseText          *connect.Client[ParseTextRequest, ParseTextResponse]
	ParseReceipt       *connect.Client[ParseReceiptRequest, ParseReceiptResponse]
	EditSplitReview    *connect.Client[EditSplitReviewRequest, ReviewResponse]
	ConfirmSplitReview *connect.Client[ReviewRequest, ConfirmSplitReviewResponse]
	CancelSplitReview  *connect.Client[ReviewRequest, ReviewResponse]
	ListDebts          *connect.Client[ListDebtsRequest, ListDebtsResponse]
	SetDebtPaid        *connect.Client[SetDebtPaidRequest, SetDebtPaidResponse]
	ListBalances       *connect.Client[ListBalancesRequest, ListBalancesResponse]
}

// NewLedgerServiceClient creates a client for the service at baseURL.
func NewLedgerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *LedgerServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{WithJSONCodec()}, opts...)
	return &LedgerServiceClient{
		RecordTransaction:  connect.NewClient[RecordTransactionRequest, RecordTransactionResponse](httpClient, baseURL+RecordTransactionProcedure, opts...),
		ParseText:          connect.NewClient[ParseTextRequest, ParseTextResponse](httpClient, baseURL+ParseTextProcedure, opts...),
		ParseReceipt:       connect.NewClient[ParseReceiptRequest, ParseReceiptResponse](httpClient, baseURL+ParseReceiptProcedure, opts...),
		EditSplitReview:    connect.NewClient[EditSplitReviewRequest, ReviewResponse](httpClient, baseURL+EditSplitReviewProcedure, opts...),
		ConfirmSplitReview: connect.NewClient[ReviewRequest, ConfirmSplitReviewResponse](httpClient, baseURL+ConfirmSplitReviewProcedure, opts...),
		CancelSplitReview:  connect.NewClient[ReviewRequest, ReviewResponse](httpClient, baseURL+CancelSplitReviewProcedure, opts...),
		ListDebts:          connect.NewClient[ListDebtsRequest, ListDebtsResponse](httpClient, baseURL+ListDebtsProcedure, opts...),
		SetDebtPaid:        connect.NewClient[SetDebtPaidRequest, SetDebtPaidResponse](httpClient, baseURL+SetDebtPaidProcedure, opts...),
		ListBalances:       connect.NewClient[ListBalancesRequest, ListBalancesResponse](httpClient, baseURL+ListBalancesProcedure, opts...),
	}
}
