package grpc

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/simaogato/shiftescrow-backend/internal/adapter/auth"
	"github.com/simaogato/shiftescrow-backend/internal/adapter/dto"
	"github.com/simaogato/shiftescrow-backend/internal/domain"
	"github.com/simaogato/shiftescrow-backend/internal/usecase/dispute"
	"github.com/simaogato/shiftescrow-backend/internal/usecase/escrow"
	"github.com/simaogato/shiftescrow-backend/internal/usecase/fees"
)

// Server implements the EscrowService gRPC server
type Server struct {
	Ledger         *escrow.Ledger
	DisputeService *dispute.DisputeService
	Rates          fees.RateConfig // platform fee and buffer; agency commission comes per request
}

var _ EscrowServiceServer = (*Server)(nil)

// NewServer creates a new gRPC server instance
func NewServer(ledger *escrow.Ledger, disputeService *dispute.DisputeService, rates fees.RateConfig) *Server {
	return &Server{
		Ledger:         ledger,
		DisputeService: disputeService,
		Rates:          rates,
	}
}

// OpenEscrow handles the OpenEscrow RPC
func (s *Server) OpenEscrow(ctx context.Context, req *OpenEscrowRequest) (*TransactionResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}

	// Parse the assignment snapshot sent by the shift service
	assignment := domain.ShiftAssignment{Status: domain.AssignmentStatus(req.AssignmentStatus)}
	if assignment.ID, err = parseID("assignment_id", req.AssignmentID); err != nil {
		return nil, err
	}
	if assignment.ShiftID, err = parseID("shift_id", req.ShiftID); err != nil {
		return nil, err
	}
	if assignment.WorkerID, err = parseID("worker_id", req.WorkerID); err != nil {
		return nil, err
	}
	if assignment.BusinessID, err = parseID("business_id", req.BusinessID); err != nil {
		return nil, err
	}
	if assignment.AgencyID, err = parseOptionalID("agency_id", req.AgencyID); err != nil {
		return nil, err
	}

	gross, err := req.Gross.Parse()
	if err != nil {
		return nil, mapError(err)
	}

	// Agency commission applies only when an agency represents the worker
	rates := s.Rates
	rates.AgencyCommissionPercent = nil
	if req.AgencyCommissionPercent != "" {
		pct, err := decimal.NewFromString(req.AgencyCommissionPercent)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "invalid agency_commission_percent format: %v", err)
		}
		rates.AgencyCommissionPercent = &pct
	}

	tx, err := s.Ledger.OpenEscrow(ctx, actor, escrow.OpenEscrowInput{
		Assignment: assignment,
		Gross:      gross,
		Rates:      rates,
	})
	if err != nil {
		return nil, mapError(err)
	}
	return &TransactionResponse{Transaction: dto.NewTransaction(tx)}, nil
}

// ReleaseEscrow handles the ReleaseEscrow RPC
func (s *Server) ReleaseEscrow(ctx context.Context, req *TransactionRequest) (*TransactionResponse, error) {
	return s.transactionCall(ctx, req.TransactionID, s.Ledger.Release)
}

// InitiatePayout handles the InitiatePayout RPC
func (s *Server) InitiatePayout(ctx context.Context, req *TransactionRequest) (*TransactionResponse, error) {
	return s.transactionCall(ctx, req.TransactionID, s.Ledger.InitiatePayout)
}

// CompletePayout handles the CompletePayout RPC
func (s *Server) CompletePayout(ctx context.Context, req *TransactionRequest) (*TransactionResponse, error) {
	return s.transactionCall(ctx, req.TransactionID, s.Ledger.CompletePayout)
}

// FailPayout handles the FailPayout RPC
func (s *Server) FailPayout(ctx context.Context, req *FailPayoutRequest) (*TransactionResponse, error) {
	return s.transactionCall(ctx, req.TransactionID, func(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Transaction, error) {
		return s.Ledger.FailPayout(ctx, actor, id, req.Reason)
	})
}

// GetTransaction handles the GetTransaction RPC
func (s *Server) GetTransaction(ctx context.Context, req *TransactionRequest) (*TransactionResponse, error) {
	return s.transactionCall(ctx, req.TransactionID, s.Ledger.GetTransaction)
}

// GetPayoutInstructions handles the GetPayoutInstructions RPC
func (s *Server) GetPayoutInstructions(ctx context.Context, req *TransactionRequest) (*PayoutInstructionsResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	id, err := parseID("transaction_id", req.TransactionID)
	if err != nil {
		return nil, err
	}

	instructions, err := s.Ledger.PayoutInstructions(ctx, actor, id)
	if err != nil {
		return nil, mapError(err)
	}
	return &PayoutInstructionsResponse{Instructions: dto.NewInstructions(instructions)}, nil
}

// OpenDispute handles the OpenDispute RPC
func (s *Server) OpenDispute(ctx context.Context, req *OpenDisputeRequest) (*DisputeResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	txID, err := parseID("transaction_id", req.TransactionID)
	if err != nil {
		return nil, err
	}
	amount, err := req.DisputedAmount.Parse()
	if err != nil {
		return nil, mapError(err)
	}

	d, err := s.DisputeService.OpenDispute(ctx, actor, dispute.OpenDisputeInput{
		TransactionID:  txID,
		Type:           domain.DisputeType(req.Type),
		DisputedAmount: amount,
		Description:    req.Description,
		Evidence:       req.Evidence,
	})
	if err != nil {
		return nil, mapError(err)
	}
	return &DisputeResponse{Dispute: dto.NewDispute(d)}, nil
}

// SubmitBusinessResponse handles the SubmitBusinessResponse RPC
func (s *Server) SubmitBusinessResponse(ctx context.Context, req *BusinessResponseRequest) (*DisputeResponse, error) {
	return s.disputeCall(ctx, req.DisputeID, func(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Dispute, error) {
		return s.DisputeService.SubmitBusinessResponse(ctx, actor, id, req.Response)
	})
}

// SubmitEvidence handles the SubmitEvidence RPC
func (s *Server) SubmitEvidence(ctx context.Context, req *SubmitEvidenceRequest) (*DisputeResponse, error) {
	return s.disputeCall(ctx, req.DisputeID, func(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Dispute, error) {
		return s.DisputeService.SubmitEvidence(ctx, actor, id, req.References)
	})
}

// AssignMediator handles the AssignMediator RPC; the calling admin becomes the mediator
func (s *Server) AssignMediator(ctx context.Context, req *DisputeRequest) (*DisputeResponse, error) {
	return s.disputeCall(ctx, req.DisputeID, s.DisputeService.AssignMediator)
}

// ResolveDispute handles the ResolveDispute RPC
func (s *Server) ResolveDispute(ctx context.Context, req *ResolveDisputeRequest) (*DisputeResponse, error) {
	input := dispute.ResolveInput{
		Resolution: domain.Resolution(req.Resolution),
		Notes:      req.Notes,
	}
	if req.Amount != nil {
		amount, err := req.Amount.Parse()
		if err != nil {
			return nil, mapError(err)
		}
		input.Amount = &amount
	}

	return s.disputeCall(ctx, req.DisputeID, func(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Dispute, error) {
		return s.DisputeService.ResolveDispute(ctx, actor, id, input)
	})
}

// EscalateDispute handles the EscalateDispute RPC
func (s *Server) EscalateDispute(ctx context.Context, req *EscalateDisputeRequest) (*DisputeResponse, error) {
	return s.disputeCall(ctx, req.DisputeID, func(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Dispute, error) {
		return s.DisputeService.EscalateDispute(ctx, actor, id, req.Reason)
	})
}

// WithdrawDispute handles the WithdrawDispute RPC
func (s *Server) WithdrawDispute(ctx context.Context, req *DisputeRequest) (*DisputeResponse, error) {
	return s.disputeCall(ctx, req.DisputeID, s.DisputeService.WithdrawDispute)
}

// GetDispute handles the GetDispute RPC
func (s *Server) GetDispute(ctx context.Context, req *DisputeRequest) (*DisputeResponse, error) {
	return s.disputeCall(ctx, req.DisputeID, s.DisputeService.GetDispute)
}

// GetTimeline handles the GetTimeline RPC
func (s *Server) GetTimeline(ctx context.Context, req *DisputeRequest) (*TimelineResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	id, err := parseID("dispute_id", req.DisputeID)
	if err != nil {
		return nil, err
	}

	entries, err := s.DisputeService.Timeline(ctx, actor, id)
	if err != nil {
		return nil, mapError(err)
	}
	return &TimelineResponse{Entries: dto.NewTimeline(entries)}, nil
}

// RecommendResolution handles the RecommendResolution RPC
func (s *Server) RecommendResolution(ctx context.Context, req *DisputeRequest) (*RecommendationResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	id, err := parseID("dispute_id", req.DisputeID)
	if err != nil {
		return nil, err
	}

	rec, err := s.DisputeService.CalculateResolutionSplit(ctx, actor, id)
	if err != nil {
		return nil, mapError(err)
	}
	return &RecommendationResponse{Recommendation: dto.NewRecommendation(rec)}, nil
}

func (s *Server) transactionCall(ctx context.Context, rawID string, call func(context.Context, domain.Actor, uuid.UUID) (*domain.Transaction, error)) (*TransactionResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	id, err := parseID("transaction_id", rawID)
	if err != nil {
		return nil, err
	}

	tx, err := call(ctx, actor, id)
	if err != nil {
		return nil, mapError(err)
	}
	return &TransactionResponse{Transaction: dto.NewTransaction(tx)}, nil
}

func (s *Server) disputeCall(ctx context.Context, rawID string, call func(context.Context, domain.Actor, uuid.UUID) (*domain.Dispute, error)) (*DisputeResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	id, err := parseID("dispute_id", rawID)
	if err != nil {
		return nil, err
	}

	d, err := call(ctx, actor, id)
	if err != nil {
		return nil, mapError(err)
	}
	return &DisputeResponse{Dispute: dto.NewDispute(d)}, nil
}

// actorFrom returns the actor the AuthInterceptor stored in ctx
func actorFrom(ctx context.Context) (domain.Actor, error) {
	actor, ok := auth.ActorFrom(ctx)
	if !ok {
		return domain.Actor{}, status.Error(codes.Unauthenticated, "missing actor")
	}
	return actor, nil
}

func parseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", field, err)
	}
	return id, nil
}

func parseOptionalID(field, raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := parseID(field, raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

