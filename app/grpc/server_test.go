package grpc

import (
	"context"
	"fmt"
	"net"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-fees/app/clock"
	"github.com/vibast-solutions/ms-go-fees/app/entity"
	"github.com/vibast-solutions/ms-go-fees/app/fees"
	"github.com/vibast-solutions/ms-go-fees/app/service"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

type grpcCountries map[string]entity.CountryFeeConfig

func (s grpcCountries) Get(_ context.Context, currency string) (entity.CountryFeeConfig, error) {
	cfg, ok := s[fees.NormalizeCurrency(currency)]
	if !ok {
		return entity.CountryFeeConfig{}, fmt.Errorf("%w: %s", fees.ErrCurrencyNotConfigured, currency)
	}
	return cfg, nil
}

type grpcOverrides map[string]*entity.OrganizerFeeOverride

func (s grpcOverrides) FindByOrganizerID(_ context.Context, organizerID string) (*entity.OrganizerFeeOverride, error) {
	return s[organizerID], nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	usd := entity.CountryFeeConfig{
		Currency:          "USD",
		ServiceFeePercent: decimal.RequireFromString("0.05"),
		ProviderRates: map[entity.PaymentProvider]entity.ProviderRate{
			entity.ProviderStripe: {Percent: decimal.RequireFromString("0.029"), Fixed: decimal.RequireFromString("0.30")},
		},
	}
	overrides := grpcOverrides{
		"org-1": {OrganizerID: "org-1", Enabled: true, ServiceFeePercent: decimal.NewNullDecimal(decimal.RequireFromString("3"))},
	}
	resolver := fees.NewResolver(grpcCountries{"USD": usd}, overrides)
	feeService := service.NewFeeService(resolver, nil, nil, nil, nil, nil, clock.NewSystem())
	return NewServer(feeService)
}

func mustStruct(t *testing.T, fields map[string]interface{}) *structpb.Struct {
	t.Helper()
	in, err := structpb.NewStruct(fields)
	if err != nil {
		t.Fatalf("failed to build struct: %v", err)
	}
	return in
}

func TestQuoteFeesReturnsBreakdown(t *testing.T) {
	srv := newTestServer(t)

	out, err := srv.QuoteFees(context.Background(), mustStruct(t, map[string]interface{}{
		"currency":     "USD",
		"subtotal":     "100",
		"ticket_count": 2,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	quote := out.GetFields()["quote"].GetStructValue()
	if got := quote.GetFields()["buyer_total"].GetStringValue(); got != "108.35" {
		t.Fatalf("expected buyer_total 108.35, got %q", got)
	}
}

func TestQuoteFeesValidation(t *testing.T) {
	srv := newTestServer(t)

	_, err := srv.QuoteFees(context.Background(), mustStruct(t, map[string]interface{}{"currency": "US"}))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}

	_, err = srv.QuoteFees(context.Background(), mustStruct(t, map[string]interface{}{
		"currency":     "USD",
		"provider":     "paypal",
		"subtotal":     "10",
		"ticket_count": 1,
	}))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument for unknown provider, got %v", err)
	}
}

func TestResolveParametersUnknownCurrency(t *testing.T) {
	srv := newTestServer(t)

	_, err := srv.ResolveParameters(context.Background(), mustStruct(t, map[string]interface{}{"currency": "EUR"}))
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestResolveParametersOverOrganizerOverride(t *testing.T) {
	srv := newTestServer(t)

	out, err := srv.ResolveParameters(context.Background(), mustStruct(t, map[string]interface{}{
		"organizer_id": "org-1",
		"currency":     "usd",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	params := out.GetFields()["parameters"].GetStructValue()
	if got := params.GetFields()["service_fee_percent"].GetStringValue(); got != "0.03" {
		t.Fatalf("expected override percent 0.03, got %q", got)
	}
	if !params.GetFields()["is_custom"].GetBoolValue() {
		t.Fatal("expected is_custom true")
	}
}

func TestFeeServiceOverTheWire(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	grpcSrv := grpc.NewServer(grpc.ChainUnaryInterceptor(RecoveryInterceptor(), RequestIDInterceptor(), LoggingInterceptor()))
	RegisterFeeServiceServer(grpcSrv, newTestServer(t))
	go func() {
		_ = grpcSrv.Serve(lis)
	}()
	t.Cleanup(grpcSrv.Stop)

	conn, err := grpc.NewClient(
		"passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	in := mustStruct(t, map[string]interface{}{"currency": "USD", "subtotal": "100", "ticket_count": 2})

	out := new(structpb.Struct)
	err = conn.Invoke(context.Background(), "/fees.v1.FeeService/QuoteFees", in, out)
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument without request id, got %v", err)
	}

	ctx := metadata.AppendToOutgoingContext(context.Background(), requestIDHeader, "req-1")
	if err := conn.Invoke(ctx, "/fees.v1.FeeService/QuoteFees", in, out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.GetFields()["quote"].GetStructValue().GetFields()["service_fee"].GetStringValue(); got != "5.00" {
		t.Fatalf("expected service_fee 5.00, got %q", got)
	}
}
