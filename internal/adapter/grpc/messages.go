package grpc

import "github.com/simaogato/shiftescrow-backend/internal/adapter/dto"

type OpenEscrowRequest struct {
	AssignmentID            string    `json:"assignment_id"`
	ShiftID                 string    `json:"shift_id"`
	WorkerID                string    `json:"worker_id"`
	BusinessID              string    `json:"business_id"`
	AgencyID                string    `json:"agency_id,omitempty"`
	AssignmentStatus        string    `json:"assignment_status"`
	Gross                   dto.Money `json:"gross"`
	AgencyCommissionPercent string    `json:"agency_commission_percent,omitempty"`
}

type TransactionRequest struct {
	TransactionID string `json:"transaction_id"`
}

type FailPayoutRequest struct {
	TransactionID string `json:"transaction_id"`
	Reason        string `json:"reason"`
}

type TransactionResponse struct {
	Transaction *dto.Transaction `json:"transaction"`
}

type PayoutInstructionsResponse struct {
	Instructions []dto.PayoutInstruction `json:"instructions"`
}

type OpenDisputeRequest struct {
	TransactionID  string    `json:"transaction_id"`
	Type           string    `json:"type"`
	DisputedAmount dto.Money `json:"disputed_amount"`
	Description    string    `json:"description"`
	Evidence       []string  `json:"evidence,omitempty"`
}

type DisputeRequest struct {
	DisputeID string `json:"dispute_id"`
}

type BusinessResponseRequest struct {
	DisputeID string `json:"dispute_id"`
	Response  string `json:"response"`
}

type SubmitEvidenceRequest struct {
	DisputeID  string   `json:"dispute_id"`
	References []string `json:"references"`
}

type ResolveDisputeRequest struct {
	DisputeID  string     `json:"dispute_id"`
	Resolution string     `json:"resolution"`
	Amount     *dto.Money `json:"amount,omitempty"`
	Notes      string     `json:"notes,omitempty"`
}

type EscalateDisputeRequest struct {
	DisputeID string `json:"dispute_id"`
	Reason    string `json:"reason"`
}

type DisputeResponse struct {
	Dispute *dto.Dispute `json:"dispute"`
}

type TimelineResponse struct {
	Entries []dto.TimelineEntry `json:"entries"`
}

type RecommendationResponse struct {
	Recommendation *dto.Recommendation `json:"recommendation"`
}
