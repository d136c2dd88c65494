package api

import (
	"context"
	"strings"
	"time"

	"goeventcity/internal/domain"
	"goeventcity/internal/models"
	"goeventcity/internal/service"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	quoteServiceName             = "goeventcity.quote.v1.QuoteService"
	quoteServiceGetQuoteMethod   = "/" + quoteServiceName + "/GetQuote"
	quoteServiceListVenuesMethod = "/" + quoteServiceName + "/ListVenues"
)

// QuoteServiceServer is the gRPC quote API. Messages are
// google.protobuf.Struct so clients need no generated stubs.
type QuoteServiceServer interface {
	GetQuote(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListVenues(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// QuoteBackend prices a request without a wizard session.
type QuoteBackend interface {
	Quote(ctx context.Context, req service.QuoteRequest) (*service.QuoteResult, error)
}

func RegisterQuoteServiceServer(s grpc.ServiceRegistrar, srv QuoteServiceServer) {
	s.RegisterService(&quoteServiceDesc, srv)
}

var quoteServiceDesc = grpc.ServiceDesc{
	ServiceName: quoteServiceName,
	HandlerType: (*QuoteServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetQuote", Handler: quoteServiceGetQuoteHandler},
		{MethodName: "ListVenues", Handler: quoteServiceListVenuesHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "goeventcity/quote/v1/quote.proto",
}

func quoteServiceGetQuoteHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(QuoteServiceServer).GetQuote(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: quoteServiceGetQuoteMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(QuoteServiceServer).GetQuote(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func quoteServiceListVenuesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(QuoteServiceServer).ListVenues(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: quoteServiceListVenuesMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(QuoteServiceServer).ListVenues(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

type QuoteService struct {
	quotes QuoteBackend
	venues domain.VenueService
}

func NewQuoteService(quotes QuoteBackend, venues domain.VenueService) *QuoteService {
	return &QuoteService{quotes: quotes, venues: venues}
}

func (s *QuoteService) GetQuote(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()

	venueID := int64(fields["venue_id"].GetNumberValue())
	if venueID <= 0 {
		return nil, status.Error(codes.InvalidArgument, "venue_id is required")
	}
	dateStr := strings.TrimSpace(fields["date"].GetStringValue())
	if dateStr == "" {
		return nil, status.Error(codes.InvalidArgument, "date is required")
	}
	date, err := time.Parse(models.DateLayout, dateStr)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid date format; expected YYYY-MM-DD")
	}

	res, err := s.quotes.Quote(ctx, service.QuoteRequest{
		VenueID:    venueID,
		Date:       date,
		StartTime:  fields["start_time"].GetStringValue(),
		EndTime:    fields["end_time"].GetStringValue(),
		EventType:  fields["event_type"].GetStringValue(),
		GuestCount: int(fields["guest_count"].GetNumberValue()),
	})
	if err != nil {
		return nil, grpcError(err)
	}

	b := res.Breakdown
	out, err := structpb.NewStruct(map[string]any{
		"venue_id":         res.Venue.ID,
		"venue_name":       res.Venue.Name,
		"date":             dateStr,
		"hours":            b.Hours,
		"base_cost":        b.BaseCost,
		"cleaning_fee":     b.CleaningFee,
		"security_deposit": b.SecurityDeposit,
		"total":            b.Total,
		"full_day_wrap":    b.FullDayWrap,
		"hold_amount":      res.HoldAmount,
		"available":        res.Available,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, "encode quote")
	}
	return out, nil
}

func (s *QuoteService) ListVenues(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	venues, err := s.venues.GetActiveVenues(ctx)
	if err != nil {
		return nil, grpcError(err)
	}

	list := make([]any, 0, len(venues))
	for _, v := range venues {
		fees := make([]any, 0, len(v.Fees))
		for _, f := range v.Fees {
			fees = append(fees, map[string]any{
				"kind":   string(f.NormalizeKind().Kind),
				"name":   f.Name,
				"amount": f.Amount,
			})
		}
		list = append(list, map[string]any{
			"id":                  v.ID,
			"name":                v.Name,
			"address":             v.Address,
			"image":               v.Image,
			"price_per_hour":      v.PricePerHour,
			"capacity":            v.Capacity,
			"response_time_hours": v.ResponseTimeHours,
			"fees":                fees,
		})
	}

	out, err := structpb.NewStruct(map[string]any{"venues": list})
	if err != nil {
		return nil, status.Error(codes.Internal, "encode venues")
	}
	return out, nil
}
