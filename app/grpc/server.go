package grpc

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-fees/app/fees"
	"github.com/vibast-solutions/ms-go-fees/app/mapper"
	"github.com/vibast-solutions/ms-go-fees/app/service"
	"github.com/vibast-solutions/ms-go-fees/app/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const serviceName = "fees.v1.FeeService"

// FeeServiceServer is the fees.v1.FeeService contract. Messages are
// google.protobuf.Struct values shaped like the HTTP JSON bodies.
type FeeServiceServer interface {
	QuoteFees(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	ResolveParameters(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

var FeeServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*FeeServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "QuoteFees", Handler: unaryHandler("QuoteFees", FeeServiceServer.QuoteFees)},
		{MethodName: "ResolveParameters", Handler: unaryHandler("ResolveParameters", FeeServiceServer.ResolveParameters)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "fees/v1/fees.proto",
}

func RegisterFeeServiceServer(registrar grpc.ServiceRegistrar, srv FeeServiceServer) {
	registrar.RegisterService(&FeeServiceDesc, srv)
}

type structMethod func(FeeServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call structMethod) grpc.MethodHandler {
	fullMethod := "/" + serviceName + "/" + method
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(FeeServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(FeeServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

type Server struct {
	feeService *service.FeeService
}

func NewServer(feeService *service.FeeService) *Server {
	return &Server{feeService: feeService}
}

func (s *Server) QuoteFees(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	l := loggerWithContext(ctx)
	req, err := types.NewQuoteFeesRequestFromStruct(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid request")
	}
	if err := req.Validate(); err != nil {
		l.WithError(err).Debug("Quote fees validation failed")
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	quote, err := s.feeService.Quote(ctx, service.QuoteInput{
		OrganizerID: req.OrganizerID,
		Currency:    req.Currency,
		Provider:    req.Provider,
		Subtotal:    req.Subtotal,
		TicketCount: req.TicketCount,
	})
	if err != nil {
		return nil, statusFromError(l, err, "Quote fees")
	}

	return respond(l, &types.QuoteEnvelopeResponse{Quote: mapper.QuoteToResponse(quote)})
}

func (s *Server) ResolveParameters(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	l := loggerWithContext(ctx)
	req, err := types.NewGetFeeParametersRequestFromStruct(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	params, err := s.feeService.ResolveParameters(ctx, req.OrganizerID, req.Currency)
	if err != nil {
		return nil, statusFromError(l, err, "Resolve fee parameters")
	}

	return respond(l, &types.FeeParametersEnvelopeResponse{Parameters: mapper.ParametersToResponse(params)})
}

func respond(l logrus.FieldLogger, v interface{}) (*structpb.Struct, error) {
	out, err := types.ToStruct(v)
	if err != nil {
		l.WithError(err).Error("Encode response failed")
		return nil, status.Error(codes.Internal, "internal server error")
	}
	return out, nil
}

func statusFromError(l logrus.FieldLogger, err error, operation string) error {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, fees.ErrCurrencyNotConfigured), errors.Is(err, service.ErrOrganizerNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, fees.ErrStoreUnavailable):
		l.WithError(err).Warn(operation + " temporarily unavailable")
		return status.Error(codes.Unavailable, "fee config store unavailable")
	default:
		l.WithError(err).Error(operation + " failed")
		return status.Error(codes.Internal, "internal server error")
	}
}
